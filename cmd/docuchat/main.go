package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"docuchat/internal/config"
	"docuchat/internal/convo"
	"docuchat/internal/events"
	"docuchat/internal/extract"
	"docuchat/internal/ingest"
	"docuchat/internal/ratelimit"
	"docuchat/internal/retrieval"
	"docuchat/internal/server"
	"docuchat/internal/summarize"
	"docuchat/internal/tokens"
	"docuchat/internal/util"
	"docuchat/pkg/ai"
	"docuchat/pkg/storage"
	"docuchat/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL, store.WithEmbeddingDim(cfg.EmbeddingDim))
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	aiClient := ai.NewOpenAIClient(ai.OpenAIConfig{
		BaseURL:         cfg.OpenAIBaseURL,
		APIKey:          cfg.OpenAIAPIKey,
		EmbeddingModel:  cfg.EmbeddingModel,
		GenerationModel: cfg.GenerationModel,
	})

	counter, err := tokens.NewCounter("")
	if err != nil {
		log.Fatalf("failed to init token counter: %v", err)
	}

	var ocr *extract.OCR
	if cfg.OCREnabled {
		ocr, err = extract.NewOCR(cfg.OCRCommand, time.Duration(cfg.OCRTimeoutSeconds)*time.Second)
		if err != nil {
			log.Fatalf("failed to init ocr: %v", err)
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("failed to connect event broker: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter, err = ratelimit.NewLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RateLimitPerMin, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
		defer limiter.Close()
	}

	retriever := retrieval.NewRetriever(st)
	summarizer := summarize.NewSummarizer(aiClient, cfg.SummaryInputMaxChars)

	orchestrator := ingest.NewOrchestrator(ingest.Config{
		Store:             st,
		Objects:           objects,
		Extractor:         extract.NewExtractor(),
		OCR:               ocr,
		Counter:           counter,
		Embedder:          aiClient,
		Retriever:         retriever,
		Summarizer:        summarizer,
		Publisher:         publisher,
		ChunkMaxWords:     cfg.ChunkMaxWords,
		TopK:              cfg.TopK,
		RAGTokenThreshold: cfg.RAGTokenThreshold,
	})

	conversations := convo.NewManager(convo.Config{
		Store:        st,
		Retriever:    retriever,
		Embedder:     aiClient,
		Generator:    aiClient,
		TopK:         cfg.TopK,
		HistoryLimit: cfg.HistoryLimit,
	})

	filesDir := ""
	if cfg.StorageBackend != "minio" {
		filesDir = cfg.FileBasePath
	}
	httpServer := server.New(server.Config{
		Ingester:       orchestrator,
		Conversations:  conversations,
		Store:          st,
		Limiter:        limiter,
		FilesDir:       filesDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("docuchat server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newObjectStore(cfg config.FileConfig) (storage.ObjectStore, error) {
	if cfg.StorageBackend == "minio" {
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	return storage.NewFileStore(cfg.FileBasePath, cfg.FileBaseURL)
}
