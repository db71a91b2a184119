package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "gemini"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "gemini"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	GeminiAPIKey      string
}

// PipelineConfig carries every tunable the orchestration pipeline reads.
// Retry budgets are fixed at one per class by the pipeline itself and are
// deliberately not configurable.
type PipelineConfig struct {
	CapabilityContractPath string
	DocumentServiceURL     string

	StepTimeout     time.Duration
	LLMTimeout      time.Duration
	MaxConcurrency  int
	PlannerTokens   int
	SynthesisTokens int

	ExactCacheTTL       time.Duration
	SimilarityThreshold float64

	AnomalyDeviationRatio float64
	AnomalyBaselineWindow int

	MemoryMaxItems    int
	MemoryTokenBudget int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			CapabilityContractPath: getEnv("CAPABILITY_CONTRACT_PATH", "capability.json"),
			DocumentServiceURL:     getEnv("DOCUMENT_SERVICE_URL", "http://localhost:8090"),

			StepTimeout:     getEnvAsDuration("PIPELINE_STEP_TIMEOUT", 15*time.Second),
			LLMTimeout:      getEnvAsDuration("PIPELINE_LLM_TIMEOUT", 60*time.Second),
			MaxConcurrency:  getEnvAsInt("PIPELINE_MAX_CONCURRENCY", 4),
			PlannerTokens:   getEnvAsInt("PIPELINE_PLANNER_MAX_TOKENS", 512),
			SynthesisTokens: getEnvAsInt("PIPELINE_SYNTHESIS_MAX_TOKENS", 1024),

			ExactCacheTTL:       getEnvAsDuration("CACHE_EXACT_TTL", 15*time.Minute),
			SimilarityThreshold: getEnvAsFloat("CACHE_SIMILARITY_THRESHOLD", 0.92),

			AnomalyDeviationRatio: getEnvAsFloat("ANOMALY_DEVIATION_RATIO", 5.0),
			AnomalyBaselineWindow: getEnvAsInt("ANOMALY_BASELINE_WINDOW", 20),

			MemoryMaxItems:    getEnvAsInt("MEMORY_MAX_ITEMS", 10),
			MemoryTokenBudget: getEnvAsInt("MEMORY_TOKEN_BUDGET", 2000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
