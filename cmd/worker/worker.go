package main

import (
	"log"
	"time"

	"github.com/hibiken/asynq"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/ingest"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/queue"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/services"
)

// The worker drains the ingest queue. It builds the same storage and
// embedding stack as the HTTP server so a task lands in the same place
// regardless of which process ran it.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required for the worker")
	}

	var primary store.Backend
	if cfg.MongoURI != "" {
		primary = store.NewMongoBackend(cfg.MongoURI, cfg.DBName, cfg.CollectionName)
	}
	backend := store.NewFallbackBackend(primary, store.NewFileBackend(cfg.FileStorageDir))

	var embedder ai.Embedder
	switch cfg.EmbeddingsProvider {
	case "google":
		if cfg.GeminiAPIKey != "" {
			embedder = ai.NewGoogleEmbedder(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.EmbeddingDim)
		}
	default:
		if cfg.HFAPIKey != "" {
			embedder = ai.NewHuggingFaceEmbedder(cfg.HFAPIKey, cfg.HFEmbeddingModel, cfg.HFAPIBaseURL,
				cfg.EmbeddingDim, time.Duration(cfg.EmbedIntervalMS)*time.Millisecond)
		}
	}
	if embedder == nil {
		log.Fatal("No embeddings provider configured; the worker cannot ingest")
	}

	splitter := services.NewPDFSplitter(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	pipeline := ingest.NewPipeline(splitter, embedder, backend, store.ParsePolicy(cfg.IngestPolicy))

	connOpt, err := queue.RedisConnOpt(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("Invalid redis URL:", err)
	}

	srv := asynq.NewServer(connOpt, asynq.Config{
		// Embedding calls are paced sequentially; extra concurrency only
		// queues on the rate limiter.
		Concurrency: 2,
		Queues: map[string]int{
			"ingest": 10,
		},
	})

	mux := asynq.NewServeMux()
	processor := queue.NewTaskProcessor(pipeline)
	mux.HandleFunc(queue.TaskIngestPDF, processor.HandleIngestPDF)

	logger.Info("Worker starting", "queue", "ingest")
	if err := srv.Run(mux); err != nil {
		log.Fatal("Worker stopped:", err)
	}
}
