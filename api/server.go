// Package api exposes the control surface for the harvest service: start
// and stop scraping runs, poll progress, trigger summarization and browse
// stored output.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombar/newsharvest/crawl"
	"github.com/zombar/newsharvest/db"
	"github.com/zombar/newsharvest/metrics"
	"github.com/zombar/newsharvest/runstate"
	"github.com/zombar/newsharvest/session"
	"github.com/zombar/newsharvest/storage"
	"github.com/zombar/newsharvest/summarize"
)

// CrawlFunc starts one crawl run. The production implementation wraps
// crawl.Crawler; tests substitute stubs.
type CrawlFunc func(ctx context.Context, sess *session.Session, seedURL string, maxArticles int) (crawl.Result, error)

// SummaryRunner runs batch summarization over a storage prefix.
type SummaryRunner interface {
	Run(ctx context.Context, prefix string) (summarize.BatchResult, error)
}

// ArticleLister queries the database index for a session's articles.
// *db.DB is the production implementation.
type ArticleLister interface {
	ListSessionArticles(ctx context.Context, sessionID string) ([]db.SessionArticle, error)
}

// Config contains server configuration.
type Config struct {
	Addr        string
	CORSEnabled bool

	Store      storage.Store
	Crawl      CrawlFunc
	Summaries  SummaryRunner
	Tracker    *runstate.Tracker
	SumTracker *runstate.Tracker
	Metrics    *metrics.PipelineMetrics
	Articles   ArticleLister
}

// Server is the control-plane HTTP server.
type Server struct {
	addr        string
	corsEnabled bool
	mux         *http.ServeMux
	server      *http.Server

	store      storage.Store
	crawl      CrawlFunc
	summaries  SummaryRunner
	tracker    *runstate.Tracker
	sumTracker *runstate.Tracker
	metrics    *metrics.PipelineMetrics
	articles   ArticleLister

	mu         sync.Mutex
	stopCrawl  context.CancelFunc
	lastResult *crawl.Result
	sumRunning bool
	sumResult  *summarize.BatchResult
}

// NewServer creates the control server.
func NewServer(config Config) (*Server, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if config.Tracker == nil {
		config.Tracker = runstate.New()
	}
	if config.SumTracker == nil {
		config.SumTracker = runstate.New()
	}

	s := &Server{
		addr:        config.Addr,
		corsEnabled: config.CORSEnabled,
		mux:         http.NewServeMux(),
		store:       config.Store,
		crawl:       config.Crawl,
		summaries:   config.Summaries,
		tracker:     config.Tracker,
		sumTracker:  config.SumTracker,
		metrics:     config.Metrics,
		articles:    config.Articles,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/start_scraping", s.handleStartScraping)
	s.mux.HandleFunc("/api/stop_scraping", s.handleStopScraping)
	s.mux.HandleFunc("/api/get_status", s.handleGetStatus)
	s.mux.HandleFunc("/api/generate_summaries", s.handleGenerateSummaries)
	s.mux.HandleFunc("/api/summarization_status", s.handleSummarizationStatus)
	s.mux.HandleFunc("/api/session_articles", s.handleSessionArticles)
	s.mux.HandleFunc("/api/list_bucket", s.handleListBucket)
	s.mux.HandleFunc("/api/download_file", s.handleDownloadFile)
}

// Start starts the control server.
func (s *Server) Start() error {
	slog.Info("control server starting", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and cancels any active run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCrawl != nil {
		s.stopCrawl()
	}
	s.mu.Unlock()
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.middleware(s.mux)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		start := time.Now()
		next.ServeHTTP(w, r)
		if r.URL.Path != "/health" && r.URL.Path != "/metrics" {
			slog.Info("request handled", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// StartScrapingRequest is the body for /api/start_scraping.
type StartScrapingRequest struct {
	URL         string `json:"url"`
	MaxArticles int    `json:"max_articles,omitempty"`
}

func (s *Server) handleStartScraping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.crawl == nil {
		respondError(w, http.StatusServiceUnavailable, "scraping is not configured")
		return
	}

	var req StartScrapingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	s.mu.Lock()
	if s.tracker.Running() {
		s.mu.Unlock()
		respondError(w, http.StatusConflict, "a scraping run is already active")
		return
	}
	sess := session.New()
	ctx, cancel := context.WithCancel(context.Background())
	s.stopCrawl = cancel
	s.lastResult = nil
	s.tracker.Start(sess.ID(), req.MaxArticles)
	s.mu.Unlock()

	go func() {
		defer cancel()
		res, err := s.crawl(ctx, sess, req.URL, req.MaxArticles)
		s.mu.Lock()
		s.lastResult = &res
		s.mu.Unlock()
		if err != nil {
			slog.Warn("scraping run ended with error", "session", sess.ID(), "error", err)
			s.tracker.Errorf(fmt.Sprintf("run ended: %v", err))
			s.tracker.Finish(false)
			return
		}
		slog.Info("scraping run completed", "session", sess.ID(), "articles_saved", res.ArticlesSaved)
		s.tracker.Finish(true)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"sessionId": sess.ID(),
		"status":    "started",
	})
}

func (s *Server) handleStopScraping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	cancel := s.stopCrawl
	s.mu.Unlock()

	if cancel == nil || !s.tracker.Running() {
		respondError(w, http.StatusConflict, "no scraping run is active")
		return
	}
	cancel()
	s.tracker.Infof("stop requested")
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, s.tracker.Snapshot())
}

// GenerateSummariesRequest is the body for /api/generate_summaries.
type GenerateSummariesRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleGenerateSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.summaries == nil {
		respondError(w, http.StatusServiceUnavailable, "summarization is not configured")
		return
	}

	var req GenerateSummariesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.mu.Lock()
	if s.sumRunning {
		s.mu.Unlock()
		respondError(w, http.StatusConflict, "summarization is already running")
		return
	}
	s.sumRunning = true
	s.sumResult = nil
	s.sumTracker.Start(req.SessionID, 0)
	s.mu.Unlock()

	prefix := strings.TrimSuffix(req.SessionID, "/") + "/"
	go func() {
		start := time.Now()
		res, err := s.summaries.Run(context.Background(), prefix)
		s.mu.Lock()
		s.sumRunning = false
		s.sumResult = &res
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.SummariesWritten.WithLabelValues("text").Add(float64(res.TextSummaries))
			s.metrics.SummariesWritten.WithLabelValues("image").Add(float64(res.ImageSummaries))
			s.metrics.SummaryDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			slog.Warn("summarization run failed", "session", req.SessionID, "error", err)
			s.sumTracker.Errorf(fmt.Sprintf("run ended: %v", err))
			s.sumTracker.Finish(false)
			return
		}
		slog.Info("summarization run completed", "session", req.SessionID,
			"text", res.TextSummaries, "images", res.ImageSummaries, "failed", res.Failed)
		s.sumTracker.Finish(true)
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"sessionId": req.SessionID,
		"status":    "started",
	})
}

func (s *Server) handleSummarizationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	result := s.sumResult
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"status": s.sumTracker.Snapshot(),
		"result": result,
	})
}

func (s *Server) handleSessionArticles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.articles == nil {
		respondError(w, http.StatusServiceUnavailable, "database index is not configured")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	articles, err := s.articles.ListSessionArticles(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to list session articles", "session", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list session articles")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"articles":  articles,
		"count":     len(articles),
	})
}

func (s *Server) handleListBucket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	keys, err := s.store.List(r.Context(), prefix)
	if err != nil {
		slog.Error("failed to list storage", "prefix", prefix, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list storage")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"prefix": prefix,
		"keys":   keys,
		"count":  len(keys),
	})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, http.StatusBadRequest, "key is required")
		return
	}

	data, err := s.store.Get(r.Context(), key)
	if err != nil {
		respondError(w, http.StatusNotFound, "object not found")
		return
	}

	w.Header().Set("Content-Type", contentTypeForKey(key))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return "application/json"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
