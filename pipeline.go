// Package harvest implements a content-authenticity pipeline for news
// scraping: classify discovered links, extract article content through a
// fallback chain, score the result for authenticity, pick a hero image and
// persist accepted articles under a session.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zombar/newsharvest/extract"
	"github.com/zombar/newsharvest/metrics"
	"github.com/zombar/newsharvest/models"
	"github.com/zombar/newsharvest/runstate"
	"github.com/zombar/newsharvest/session"
	"github.com/zombar/newsharvest/storage"
)

// Skip reasons reported when a link does not become a stored article.
const (
	SkipFetchFailed      = "fetch_failed"
	SkipExtractionFailed = "extraction_failed"
	SkipRejectedByScorer = "rejected_by_scorer"
	SkipStorageFailed    = "storage_failed"
)

// ErrSkipped reports a page that was processed but produced no article.
type ErrSkipped struct {
	Reason string
	Err    error
}

func (e *ErrSkipped) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("skipped (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("skipped (%s)", e.Reason)
}

func (e *ErrSkipped) Unwrap() error { return e.Err }

// PageFetcher downloads one page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*models.FetchedPage, error)
}

// ImageFetcher downloads raw image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// ImageNormalizer converts raw image bytes to the stored encoding.
type ImageNormalizer func(data []byte) (*models.EncodedImage, error)

// ImageProber reads real dimensions from an image header without decoding
// pixel data, so undersized downloads are rejected before re-encoding.
type ImageProber func(data []byte) (width, height int, err error)

// ArticleIndexer is the optional database index hook.
type ArticleIndexer interface {
	IndexArticle(ctx context.Context, sessionID, folder, storageKey string, rec *models.ArticleRecord) error
}

// Pipeline processes one URL end to end. It is safe for concurrent use; all
// mutable state lives in the session and tracker.
type Pipeline struct {
	cfg     Config
	fetcher PageFetcher
	chain   *extract.Chain
	scorer  *Scorer
	images  *ImagePipeline

	imageFetcher ImageFetcher
	normalize    ImageNormalizer
	probe        ImageProber

	store   storage.Store
	indexer ArticleIndexer
	tracker *runstate.Tracker
	metrics *metrics.PipelineMetrics
}

// PipelineDeps wires the pipeline's collaborators.
type PipelineDeps struct {
	Fetcher      PageFetcher
	ImageFetcher ImageFetcher
	Normalize    ImageNormalizer
	Probe        ImageProber // optional
	Store        storage.Store
	Indexer      ArticleIndexer           // optional
	Tracker      *runstate.Tracker        // optional
	Metrics      *metrics.PipelineMetrics // optional
}

// NewPipeline builds a pipeline from configuration and dependencies.
func NewPipeline(cfg Config, deps PipelineDeps) *Pipeline {
	tracker := deps.Tracker
	if tracker == nil {
		tracker = runstate.New()
	}
	return &Pipeline{
		cfg:          cfg,
		fetcher:      deps.Fetcher,
		chain:        extract.DefaultChain(cfg.MinWords),
		scorer:       NewScorer(cfg.Score),
		images:       NewImagePipeline(cfg.Image),
		imageFetcher: deps.ImageFetcher,
		normalize:    deps.Normalize,
		probe:        deps.Probe,
		store:        deps.Store,
		indexer:      deps.Indexer,
		tracker:      tracker,
		metrics:      deps.Metrics,
	}
}

// Process fetches, extracts, scores and persists one URL within a session.
// A nil error means an article was stored. An *ErrSkipped means the page
// was handled but produced nothing; other errors are infrastructure
// failures.
func (p *Pipeline) Process(ctx context.Context, sess *session.Session, pageURL string) (*models.ArticleRecord, error) {
	log := slog.With("url", pageURL, "session", sess.ID())

	fetchStart := time.Now()
	page, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.Warn("page fetch failed", "error", err)
		p.tracker.Warningf(fmt.Sprintf("fetch failed: %s", pageURL))
		p.countFetch("error", time.Since(fetchStart))
		return nil, &ErrSkipped{Reason: SkipFetchFailed, Err: err}
	}
	p.countFetch("ok", time.Since(fetchStart))

	content, hints, err := p.chain.Extract(page)
	if err != nil {
		if errors.Is(err, extract.ErrExtractionFailed) {
			log.Info("no strategy extracted enough content")
			p.tracker.Warningf(fmt.Sprintf("extraction failed: %s", pageURL))
			return nil, &ErrSkipped{Reason: SkipExtractionFailed, Err: err}
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.Extractions.WithLabelValues(content.ExtractionMethod).Inc()
	}

	verdict := p.scorer.Score(content, page.URL)
	if p.metrics != nil {
		decision := "rejected"
		if verdict.IsArticle {
			decision = "accepted"
		}
		p.metrics.Verdicts.WithLabelValues(decision).Inc()
	}
	if !verdict.IsArticle {
		log.Info("page rejected by scorer", "score", verdict.Score)
		p.tracker.Infof(fmt.Sprintf("rejected (score %.0f): %s", verdict.Score, pageURL))
		return nil, &ErrSkipped{Reason: SkipRejectedByScorer}
	}
	p.tracker.ArticleFound()

	rec := &models.ArticleRecord{
		ID:               uuid.New().String(),
		URL:              page.URL,
		Title:            content.Title,
		BodyText:         content.BodyText,
		Author:           content.Author,
		PublishedDate:    content.PublishedDate,
		Description:      content.Description,
		ExtractionMethod: content.ExtractionMethod,
		WordCount:        content.WordCount,
		Verdict:          verdict,
		CreatedAt:        time.Now().UTC(),
	}

	folder := sess.FolderFor(content.Title)

	if candidate := p.images.SelectImage(page, hints); candidate != nil {
		if ref := p.storeImage(ctx, sess, folder, candidate); ref != "" {
			rec.Image = candidate
			rec.ImageRef = ref
			p.tracker.ImageFound()
			if p.metrics != nil {
				p.metrics.ImagesStored.Inc()
			}
		}
	}

	key, err := storage.SaveArticle(ctx, p.store, sess.ID(), folder, rec)
	if err != nil {
		log.Error("failed to store article", "error", err)
		p.tracker.Errorf(fmt.Sprintf("storage failed: %s", pageURL))
		return nil, &ErrSkipped{Reason: SkipStorageFailed, Err: err}
	}

	if p.indexer != nil {
		if err := p.indexer.IndexArticle(ctx, sess.ID(), folder, key, rec); err != nil {
			// The stored article is the source of truth; index lag is fine.
			log.Warn("failed to index article", "error", err)
		}
	}

	saved := p.tracker.ArticleSaved()
	p.tracker.Successf(fmt.Sprintf("saved article %d: %s", saved, content.Title))
	log.Info("article stored", "folder", folder, "score", verdict.Score, "words", content.WordCount)
	return rec, nil
}

func (p *Pipeline) countFetch(result string, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.PagesFetched.WithLabelValues(result).Inc()
	p.metrics.FetchDuration.Observe(elapsed.Seconds())
}

// storeImage downloads, validates against real dimensions, normalizes and
// stores a selected image candidate. Any failure drops the image; the
// article is stored without one.
func (p *Pipeline) storeImage(ctx context.Context, sess *session.Session, folder string, candidate *models.ImageCandidate) string {
	log := slog.With("image_url", candidate.URL, "session", sess.ID())

	if p.imageFetcher == nil || p.normalize == nil {
		return ""
	}

	data, err := p.imageFetcher.Fetch(ctx, candidate.URL)
	if err != nil {
		log.Warn("image download failed", "error", err)
		return ""
	}

	// Header probe rejects undersized images before the full decode and
	// re-encode. Probe failures fall through; normalize reports them.
	if p.probe != nil {
		if w, h, err := p.probe(data); err == nil && !p.images.MeetsMinimum(w, h) {
			log.Info("image below minimum dimensions", "width", w, "height", h)
			return ""
		}
	}

	encoded, err := p.normalize(data)
	if err != nil {
		log.Warn("image normalization failed", "error", err)
		return ""
	}
	if !p.images.MeetsMinimum(encoded.Width, encoded.Height) {
		log.Info("image below minimum dimensions", "width", encoded.Width, "height", encoded.Height)
		return ""
	}
	candidate.Width = encoded.Width
	candidate.Height = encoded.Height

	ref, err := storage.SaveImage(ctx, p.store, sess.ID(), folder, encoded)
	if err != nil {
		log.Warn("image store failed", "error", err)
		return ""
	}
	return ref
}
