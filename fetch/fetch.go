// Package fetch downloads pages politely: a per-host rate limit with
// jitter, a global concurrency cap, and bounded response bodies.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/zombar/newsharvest/models"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBody  = 5 * 1024 * 1024
	defaultInterval = 500 * time.Millisecond
	maxJitter       = 250 * time.Millisecond
)

// Fetcher downloads HTML pages. It is safe for concurrent use; the
// semaphore bounds in-flight requests across all goroutines sharing it.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBody     int64
	hostLimit   rate.Limit
	hostBurst   int
	semaphore   chan struct{}
	mu          sync.Mutex
	hostLimiter map[string]*rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent overrides the default user agent string.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithHostInterval sets the minimum spacing between requests to one host.
func WithHostInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.hostLimit = rate.Every(d) }
}

// WithMaxBody bounds the response body size in bytes.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

// NewFetcher creates a page fetcher with at most maxConcurrent requests in
// flight at once.
func NewFetcher(maxConcurrent int, opts ...Option) *Fetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent:   "Mozilla/5.0 (compatible; newsharvest/1.0)",
		maxBody:     defaultMaxBody,
		hostLimit:   rate.Every(defaultInterval),
		hostBurst:   1,
		semaphore:   make(chan struct{}, maxConcurrent),
		hostLimiter: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads one page. It blocks until the per-host rate limiter and
// the global semaphore both admit the request, or the context is cancelled.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*models.FetchedPage, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	if err := f.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	// Jitter keeps parallel workers from hitting a host in lockstep.
	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case f.semaphore <- struct{}{}:
		defer func() { <-f.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "xml") {
		return nil, fmt.Errorf("not an HTML page: content-type %q", ct)
	}

	// Decode to UTF-8 using the declared or sniffed charset; many news
	// sites still serve legacy encodings.
	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	return &models.FetchedPage{
		URL:       resp.Request.URL.String(),
		HTML:      string(body),
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.hostLimiter[host]
	if !ok {
		lim = rate.NewLimiter(f.hostLimit, f.hostBurst)
		f.hostLimiter[host] = lim
	}
	return lim
}
