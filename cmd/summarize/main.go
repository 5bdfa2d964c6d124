// Command summarize runs batch summarization over a stored session without
// the control server: every article document gets a text summary and every
// stored image gets a caption.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	harvest "github.com/zombar/newsharvest"
	"github.com/zombar/newsharvest/db"
	"github.com/zombar/newsharvest/ollama"
	"github.com/zombar/newsharvest/storage"
	"github.com/zombar/newsharvest/summarize"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	defaultStoragePath := getEnv("STORAGE_BASE_PATH", "./storage")
	defaultOllamaURL := getEnv("OLLAMA_URL", "http://localhost:11434")
	defaultOllamaModel := getEnv("OLLAMA_MODEL", "gpt-oss:20b")
	defaultOllamaVisionModel := getEnv("OLLAMA_VISION_MODEL", defaultOllamaModel)

	sessionID := flag.String("session", "", "Session identifier to summarize (empty summarizes everything)")
	storagePath := flag.String("storage-path", defaultStoragePath, "Local storage base directory")
	ollamaURL := flag.String("ollama-url", defaultOllamaURL, "Ollama base URL")
	ollamaModel := flag.String("ollama-model", defaultOllamaModel, "Ollama model to use for text summarization")
	ollamaVisionModel := flag.String("ollama-vision-model", defaultOllamaVisionModel, "Ollama model to use for image captions")
	skipImages := flag.Bool("skip-images", false, "Skip image captioning")
	configFile := flag.String("config", "", "Optional YAML tuning file")
	flag.Parse()

	cfg := harvest.DefaultConfig()
	if *configFile != "" {
		loaded, err := harvest.LoadConfigFile(*configFile)
		if err != nil {
			logger.Error("failed to load config file", "path", *configFile, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

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
	} else {
		localStore, err := storage.NewLocal(*storagePath)
		if err != nil {
			logger.Error("failed to initialize storage", "error", err)
			os.Exit(1)
		}
		store = localStore
	}

	ollamaClient := ollama.NewClient(*ollamaURL, *ollamaModel, *ollamaVisionModel)
	summarizer := summarize.New(ollamaClient, summarize.Options{
		ChunkWords:      cfg.Summarize.ChunkWords,
		SummaryWords:    cfg.Summarize.SummaryWords,
		FinalWords:      cfg.Summarize.FinalWords,
		ExcerptWords:    cfg.Summarize.ExcerptWords,
		MaxInputChars:   cfg.Summarize.MaxInputChars,
		MaxReducePasses: cfg.Summarize.MaxReducePasses,
	})

	var captioner summarize.ImageCaptioner
	if !*skipImages {
		captioner = ollamaClient
	}

	// Optional PostgreSQL index, same wiring as the daemon.
	var indexer summarize.SummaryIndexer
	if dbHost := getEnv("DB_HOST", ""); dbHost != "" {
		database, err := db.New(db.Config{
			DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				dbHost, getEnv("DB_PORT", "5432"), getEnv("DB_USER", "harvest"),
				getEnv("DB_PASSWORD", "harvest_dev_pass"), getEnv("DB_NAME", "harvest")),
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		indexer = database
	}

	batch := summarize.NewBatch(store, summarizer, captioner, nil, indexer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefix := ""
	if *sessionID != "" {
		prefix = strings.TrimSuffix(*sessionID, "/") + "/"
	}

	logger.Info("batch summarization starting", "prefix", prefix, "ollama_url", *ollamaURL)
	res, err := batch.Run(ctx, prefix)
	if err != nil {
		logger.Error("batch summarization failed", "error", err)
		os.Exit(1)
	}

	logger.Info("batch summarization complete",
		"text_summaries", res.TextSummaries,
		"image_summaries", res.ImageSummaries,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
}
