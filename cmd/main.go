package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/ingest"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/queue"
	"pdf-rag-backend/internal/retrieval"
	"pdf-rag-backend/internal/store"
	"pdf-rag-backend/internal/telemetry"
	"pdf-rag-backend/middleware"
	"pdf-rag-backend/routes"
	"pdf-rag-backend/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("pdf-rag-backend", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Redis is optional. Without it the queue and rate limiter are
	// skipped and everything runs in-process.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, queue and rate limiting disabled", "error", err)
			rdb = nil
		}
	}

	// Storage tiers. The fallback file store always exists so uploads
	// survive a missing or unreachable MongoDB.
	var primary store.Backend
	if cfg.MongoURI != "" {
		primary = store.NewMongoBackend(cfg.MongoURI, cfg.DBName, cfg.CollectionName)
	}
	fileStore := store.NewFileBackend(cfg.FileStorageDir)
	backend := store.NewFallbackBackend(primary, fileStore)

	embedder := buildEmbedder(cfg)
	generator := ai.NewChain(buildProviders(cfg)...)
	if !generator.Configured() {
		logger.Warn("No generation provider configured, answers will fail until a key is set")
	}

	ranker := retrieval.NewRanker(embedder, cfg.LexicalMinTokens)
	answerPipeline := retrieval.NewPipeline(backend, ranker, generator,
		cfg.TopK, cfg.ContextExcerptLen, cfg.SourceExcerptLen)

	splitter := services.NewPDFSplitter(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	ingestPipeline := ingest.NewPipeline(splitter, embedder, backend, store.ParsePolicy(cfg.IngestPolicy))

	var asynqClient *asynq.Client
	if rdb != nil {
		connOpt, err := queue.RedisConnOpt(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("Invalid redis URL, async ingestion disabled", "error", err)
		} else {
			asynqClient = asynq.NewClient(connOpt)
			defer asynqClient.Close()
		}
	}

	cleanup := services.NewCleanupService(cfg.FileStorageDir+"/temp",
		time.Duration(cfg.TempFileMaxAge)*time.Hour)
	cleanup.Start()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("pdf-rag-backend"))
	}
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupChatRoutes(router, cfg, answerPipeline)
	routes.SetupDocumentRoutes(router, cfg, backend, ingestPipeline, asynqClient)
	routes.SetupDebugRoutes(router, cfg, primary, fileStore)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	cleanup.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

// buildEmbedder returns nil when no embeddings provider has a key.
// Ingestion then refuses uploads while retrieval degrades to lexical
// matching over whatever the store already holds.
func buildEmbedder(cfg *config.Config) ai.Embedder {
	switch cfg.EmbeddingsProvider {
	case "google":
		if cfg.GeminiAPIKey != "" {
			return ai.NewGoogleEmbedder(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, cfg.EmbeddingDim)
		}
	default:
		if cfg.HFAPIKey != "" {
			return ai.NewHuggingFaceEmbedder(cfg.HFAPIKey, cfg.HFEmbeddingModel, cfg.HFAPIBaseURL,
				cfg.EmbeddingDim, time.Duration(cfg.EmbedIntervalMS)*time.Millisecond)
		}
	}
	return nil
}

// buildProviders assembles the generation chain in fixed preference
// order: conversational model first, instruction-tuned model second,
// Gemini last when a key is present.
func buildProviders(cfg *config.Config) []ai.Provider {
	var providers []ai.Provider
	if cfg.HFAPIKey != "" {
		providers = append(providers,
			ai.NewHFProvider("hf-chat", cfg.HFChatModel, cfg.HFAPIKey, cfg.HFAPIBaseURL,
				cfg.MaxNewTokens, cfg.Temperature),
			ai.NewHFProvider("hf-text", cfg.HFTextModel, cfg.HFAPIKey, cfg.HFAPIBaseURL,
				cfg.MaxNewTokens, cfg.Temperature),
		)
	}
	if cfg.GeminiAPIKey != "" {
		providers = append(providers,
			ai.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxNewTokens, cfg.Temperature))
	}
	return providers
}
