package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	harvest "github.com/zombar/newsharvest"
	"github.com/zombar/newsharvest/api"
	"github.com/zombar/newsharvest/crawl"
	"github.com/zombar/newsharvest/db"
	"github.com/zombar/newsharvest/fetch"
	"github.com/zombar/newsharvest/imaging"
	"github.com/zombar/newsharvest/metrics"
	"github.com/zombar/newsharvest/ollama"
	"github.com/zombar/newsharvest/runstate"
	"github.com/zombar/newsharvest/session"
	"github.com/zombar/newsharvest/storage"
	"github.com/zombar/newsharvest/summarize"
	"github.com/zombar/newsharvest/tracing"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("harvest service initializing", "version", "1.0.0")

	// Initialize tracing
	tp, err := tracing.InitTracer("newsharvest")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
		logger.Info("tracing initialized successfully")
	}

	// Default values
	defaultPort := getEnv("PORT", "8080")
	defaultStoragePath := getEnv("STORAGE_BASE_PATH", "./storage")
	defaultOllamaURL := getEnv("OLLAMA_URL", "http://localhost:11434")
	defaultOllamaModel := getEnv("OLLAMA_MODEL", "gpt-oss:20b")
	defaultOllamaVisionModel := getEnv("OLLAMA_VISION_MODEL", defaultOllamaModel)
	defaultWorkers := getEnv("CRAWL_WORKERS", "4")

	workers, err := strconv.Atoi(defaultWorkers)
	if err != nil || workers < 1 {
		logger.Warn("invalid CRAWL_WORKERS value, using default", "provided", defaultWorkers, "default", 4)
		workers = 4
	}

	// Command-line flags (override environment variables)
	port := flag.String("port", defaultPort, "Server port")
	storagePath := flag.String("storage-path", defaultStoragePath, "Local storage base directory")
	ollamaURL := flag.String("ollama-url", defaultOllamaURL, "Ollama base URL")
	ollamaModel := flag.String("ollama-model", defaultOllamaModel, "Ollama model to use for text summarization")
	ollamaVisionModel := flag.String("ollama-vision-model", defaultOllamaVisionModel, "Ollama model to use for image captions")
	configFile := flag.String("config", "", "Optional YAML tuning file")
	crawlWorkers := flag.Int("crawl-workers", workers, "Pipeline worker count per run")
	crossHost := flag.Bool("cross-host", false, "Follow article links to other hosts")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	flag.Parse()

	// Pipeline configuration
	cfg := harvest.DefaultConfig()
	if *configFile != "" {
		cfg, err = harvest.LoadConfigFile(*configFile)
		if err != nil {
			logger.Error("failed to load config file", "path", *configFile, "error", err)
			os.Exit(1)
		}
		logger.Info("loaded tuning config", "path", *configFile)
	}

	// Storage: S3 when a bucket is configured, local filesystem otherwise
	var store storage.Store
	if bucket := getEnv("S3_BUCKET", ""); bucket != "" {
		s3Store, err := storage.NewS3(context.Background(), storage.S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          bucket,
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnv("S3_USE_PATH_STYLE", "") == "true",
		})
		if err != nil {
			logger.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		store = s3Store
		logger.Info("using S3 storage", "bucket", bucket)
	} else {
		localStore, err := storage.NewLocal(*storagePath)
		if err != nil {
			logger.Error("failed to initialize storage", "error", err)
			os.Exit(1)
		}
		store = localStore
		logger.Info("using local storage", "path", *storagePath)
	}

	// Optional PostgreSQL index
	var indexer harvest.ArticleIndexer
	var sumIndexer summarize.SummaryIndexer
	var seen crawl.URLSeen
	var lister api.ArticleLister
	var database *db.DB
	if dbHost := getEnv("DB_HOST", ""); dbHost != "" {
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "harvest")
		dbPassword := getEnv("DB_PASSWORD", "harvest_dev_pass")
		dbName := getEnv("DB_NAME", "harvest")

		database, err = db.New(db.Config{
			DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				dbHost, dbPort, dbUser, dbPassword, dbName),
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		indexer = database
		sumIndexer = database
		seen = database
		lister = database
		logger.Info("using PostgreSQL index", "host", dbHost, "database", dbName)

		dbMetrics := metrics.NewDatabaseMetrics("harvest")
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				dbMetrics.UpdateDBStats(database.DB())
			}
		}()
	} else {
		logger.Info("DB_HOST not set, running without database index")
	}

	pipelineMetrics := metrics.NewPipelineMetrics("harvest")

	// Model client and pipeline
	ollamaClient := ollama.NewClient(*ollamaURL, *ollamaModel, *ollamaVisionModel)
	tracker := runstate.New()
	sumTracker := runstate.New()

	pageFetcher := fetch.NewFetcher(*crawlWorkers * 2)
	pipeline := harvest.NewPipeline(cfg, harvest.PipelineDeps{
		Fetcher:      pageFetcher,
		ImageFetcher: imaging.NewFetcher(cfg.ImageTimeout, cfg.MaxImageSizeBytes),
		Normalize:    imaging.Normalize,
		Probe:        imaging.Probe,
		Store:        store,
		Indexer:      indexer,
		Tracker:      tracker,
		Metrics:      pipelineMetrics,
	})

	crawlFn := func(ctx context.Context, sess *session.Session, seedURL string, maxArticles int) (crawl.Result, error) {
		opts := crawl.DefaultOptions()
		opts.Workers = *crawlWorkers
		opts.SameHostOnly = !*crossHost
		opts.Seen = seen
		opts.Metrics = pipelineMetrics
		if maxArticles > 0 {
			opts.MaxArticles = maxArticles
		}
		return crawl.New(pageFetcher, pipeline, opts).Run(ctx, sess, seedURL)
	}

	summarizer := summarize.New(ollamaClient, summarize.Options{
		ChunkWords:      cfg.Summarize.ChunkWords,
		SummaryWords:    cfg.Summarize.SummaryWords,
		FinalWords:      cfg.Summarize.FinalWords,
		ExcerptWords:    cfg.Summarize.ExcerptWords,
		MaxInputChars:   cfg.Summarize.MaxInputChars,
		MaxReducePasses: cfg.Summarize.MaxReducePasses,
	})
	batch := summarize.NewBatch(store, summarizer, ollamaClient, sumTracker, sumIndexer)

	server, err := api.NewServer(api.Config{
		Addr:        ":" + *port,
		CORSEnabled: !*disableCORS,
		Store:       store,
		Crawl:       crawlFn,
		Summaries:   batch,
		Tracker:     tracker,
		SumTracker:  sumTracker,
		Metrics:     pipelineMetrics,
		Articles:    lister,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Start server in a goroutine
	go func() {
		logger.Info("harvest service starting",
			"port", *port,
			"storage_path", *storagePath,
			"ollama_url", *ollamaURL,
			"ollama_model", *ollamaModel,
			"ollama_vision_model", *ollamaVisionModel,
			"crawl_workers", *crawlWorkers,
		)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	logger.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
