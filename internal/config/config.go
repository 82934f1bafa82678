package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// MongoDB (primary passage store). An empty URI is a valid
	// configuration meaning "primary disabled, fallback only".
	MongoURI       string
	DBName         string
	CollectionName string

	// Hugging Face inference
	HFAPIKey         string
	HFEmbeddingModel string
	HFChatModel      string
	HFTextModel      string
	HFAPIBaseURL     string
	EmbeddingDim     int
	EmbedIntervalMS  int
	MaxNewTokens     int
	Temperature      float64

	// Embeddings provider selection: "huggingface" (default) or "google"
	EmbeddingsProvider    string
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	GeminiModel           string

	// Retrieval
	TopK              int
	LexicalMinTokens  int
	ContextExcerptLen int
	SourceExcerptLen  int

	// Ingestion
	IngestPolicy    string // "append" or "replace"
	MaxChunkSize    int
	ChunkOverlap    int
	MinChunkSize    int
	MaxFileSize     int64
	AllowedTypes    []string
	FileStorageDir  string
	AsyncSizeLimit  int64 // uploads above this go through the queue
	TempFileMaxAge  int   // hours before temp uploads are pruned

	// Redis (rate limiting + task queue). Optional.
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MongoURI:       getEnv("MONGODB_URI", ""),
		DBName:         getEnv("DB_NAME", "rag_chatbot"),
		CollectionName: getEnv("COLLECTION_NAME", "document_chunks"),

		HFAPIKey:         getEnv("HUGGINGFACE_API_KEY", ""),
		HFEmbeddingModel: getEnv("HF_EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		HFChatModel:      getEnv("HF_CHAT_MODEL", "microsoft/DialoGPT-medium"),
		HFTextModel:      getEnv("HF_TEXT_MODEL", "google/flan-t5-small"),
		HFAPIBaseURL:     getEnv("HF_API_BASE_URL", "https://api-inference.huggingface.co/models"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 384),
		EmbedIntervalMS:  getEnvInt("EMBED_INTERVAL_MS", 500),
		MaxNewTokens:     getEnvInt("MAX_NEW_TOKENS", 250),
		Temperature:      getEnvFloat64("GENERATION_TEMPERATURE", 0.7),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "huggingface"),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		TopK:              getEnvInt("TOP_K", 5),
		LexicalMinTokens:  getEnvInt("LEXICAL_MIN_TOKEN_LEN", 3),
		ContextExcerptLen: getEnvInt("CONTEXT_EXCERPT_LEN", 500),
		SourceExcerptLen:  getEnvInt("SOURCE_EXCERPT_LEN", 200),

		IngestPolicy:   getEnv("INGEST_POLICY", "append"),
		MaxChunkSize:   getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize:   getEnvInt("MIN_CHUNK_SIZE", 100),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		AllowedTypes:   strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf"), ","),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		AsyncSizeLimit: getEnvInt64("ASYNC_SIZE_LIMIT", 10485760), // 10MB
		TempFileMaxAge: getEnvInt("TEMP_FILE_MAX_AGE_HOURS", 24),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
