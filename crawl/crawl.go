// Package crawl walks a seed page, classifies discovered links and drives
// the pipeline over the likely articles with a bounded worker pool.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	harvest "github.com/zombar/newsharvest"
	"github.com/zombar/newsharvest/metrics"
	"github.com/zombar/newsharvest/models"
	"github.com/zombar/newsharvest/session"
)

// Options bounds one crawl run.
type Options struct {
	// MaxArticles stops the run after this many stored articles. Zero
	// means process every classified link once.
	MaxArticles int
	// Workers is the pipeline worker count.
	Workers int
	// SameHostOnly restricts discovered links to the seed's host.
	SameHostOnly bool
	// Seen skips URLs already stored by an earlier session when set.
	Seen URLSeen
	// Metrics records classifier decisions when set.
	Metrics *metrics.PipelineMetrics
}

// URLSeen reports whether a URL was stored by a previous run. *db.DB is the
// production implementation.
type URLSeen interface {
	HasURL(ctx context.Context, url string) (bool, error)
}

// DefaultOptions mirror a polite single-site run.
func DefaultOptions() Options {
	return Options{MaxArticles: 20, Workers: 4, SameHostOnly: true}
}

// Result is the outcome of one crawl.
type Result struct {
	SessionID     string
	LinksFound    int
	LinksAccepted int
	ArticlesSaved int
}

// Processor handles one classified link end to end. *harvest.Pipeline is
// the production implementation.
type Processor interface {
	Process(ctx context.Context, sess *session.Session, pageURL string) (*models.ArticleRecord, error)
}

// Crawler discovers article links from a seed page and runs them through
// the pipeline.
type Crawler struct {
	fetcher  harvest.PageFetcher
	pipeline Processor
	opts     Options
}

// New builds a crawler around an existing pipeline.
func New(fetcher harvest.PageFetcher, pipeline Processor, opts Options) *Crawler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Crawler{fetcher: fetcher, pipeline: pipeline, opts: opts}
}

// Run fetches the seed page, classifies every discovered link and processes
// the accepted ones. It returns early when the context is cancelled or the
// article budget is reached.
func (c *Crawler) Run(ctx context.Context, sess *session.Session, seedURL string) (Result, error) {
	res := Result{SessionID: sess.ID()}

	seed, err := c.fetcher.Fetch(ctx, seedURL)
	if err != nil {
		return res, fmt.Errorf("fetch seed page: %w", err)
	}

	candidates, err := DiscoverLinks(seed)
	if err != nil {
		return res, fmt.Errorf("discover links: %w", err)
	}
	res.LinksFound = len(candidates)

	accepted := c.filter(ctx, seed.URL, candidates)
	res.LinksAccepted = len(accepted)
	slog.Info("crawl starting",
		"seed", seedURL, "session", sess.ID(),
		"links_found", res.LinksFound, "links_accepted", res.LinksAccepted)

	// Budget slots are reserved before processing and released on failure,
	// so in-flight workers can never overshoot MaxArticles together.
	var (
		mu      sync.Mutex
		saved   int
		pending int
	)
	reserve := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if c.opts.MaxArticles > 0 && saved+pending >= c.opts.MaxArticles {
			return false
		}
		pending++
		return true
	}
	commit := func(stored bool) {
		mu.Lock()
		defer mu.Unlock()
		pending--
		if stored {
			saved++
		}
	}

	jobs := make(chan string, len(accepted))
	var wg sync.WaitGroup
	for w := 0; w < min(c.opts.Workers, len(accepted)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				if ctx.Err() != nil || !reserve() {
					continue
				}
				_, err := c.pipeline.Process(ctx, sess, link)
				if err != nil {
					commit(false)
					var skipped *harvest.ErrSkipped
					if !errors.As(err, &skipped) && !errors.Is(err, context.Canceled) {
						slog.Error("pipeline failure", "url", link, "error", err)
					}
					continue
				}
				commit(true)
			}
		}()
	}

	for _, link := range accepted {
		jobs <- link
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	res.ArticlesSaved = saved
	mu.Unlock()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// filter dedupes candidates, drops URLs stored by earlier sessions and
// keeps the ones the classifier accepts.
func (c *Crawler) filter(ctx context.Context, seedURL string, candidates []models.LinkCandidate) []string {
	seedHost := ""
	if u, err := url.Parse(seedURL); err == nil {
		seedHost = u.Host
	}

	seen := make(map[string]bool, len(candidates))
	var accepted []string
	for _, cand := range candidates {
		if seen[cand.URL] {
			continue
		}
		seen[cand.URL] = true

		if c.opts.SameHostOnly && seedHost != "" {
			u, err := url.Parse(cand.URL)
			if err != nil || u.Host != seedHost {
				continue
			}
		}
		if c.opts.Seen != nil {
			// An index lookup failure never blocks the crawl.
			if seen, err := c.opts.Seen.HasURL(ctx, cand.URL); err == nil && seen {
				continue
			}
		}
		likely := harvest.ClassifyLink(cand.URL, cand.AnchorText)
		if c.opts.Metrics != nil {
			outcome := "rejected"
			if likely {
				outcome = "accepted"
			}
			c.opts.Metrics.LinksClassified.WithLabelValues(outcome).Inc()
		}
		if !likely {
			continue
		}
		accepted = append(accepted, cand.URL)
	}
	return accepted
}

// DiscoverLinks extracts every absolute anchor from a fetched page,
// resolving relative hrefs against the page URL. Fragment-only and
// non-HTTP links are dropped.
func DiscoverLinks(page *models.FetchedPage) ([]models.LinkCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	var out []models.LinkCandidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		out = append(out, models.LinkCandidate{
			URL:        resolved.String(),
			AnchorText: strings.TrimSpace(sel.Text()),
		})
	})
	return out, nil
}
