package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	EmbeddingsURL    string
	EmbeddingsAPIKey string
	EmbeddingModel   string
	EmbeddingDim     int
	PollInterval     time.Duration
	MaxWait          time.Duration
	CORSOrigins      string
	OTelExporter     string // "disabled", "stdout", "otlp-grpc" or "otlp-http"
	OTelEndpoint     string
	Env              string // "dev" or "prod"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8002"),
		DatabaseURL:      getEnv("DATABASE_URL", "./alm-rag.db"),
		EmbeddingsURL:    getEnv("EMBEDDINGS_LLM_URL", "http://localhost:8001"),
		EmbeddingsAPIKey: os.Getenv("EMBEDDINGS_API_KEY"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "nomic-ai/nomic-embed-text-v1.5"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 768),
		PollInterval:     getEnvDuration("INDEX_POLL_INTERVAL", 5*time.Second),
		MaxWait:          getEnvDuration("INDEX_MAX_WAIT", 600*time.Second),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "*"),
		OTelExporter:     getEnv("OTEL_EXPORTER", "disabled"),
		OTelEndpoint:     getEnv("OTEL_ENDPOINT", "localhost:4317"),
		Env:              getEnv("APP_ENV", "dev"),
	}

	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIM deve ser positivo, recebido %d", cfg.EmbeddingDim)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("INDEX_POLL_INTERVAL deve ser positivo")
	}

	// Validação Estrita para Produção
	if cfg.Env == "prod" {
		if os.Getenv("EMBEDDINGS_LLM_URL") == "" {
			return nil, fmt.Errorf("produção: EMBEDDINGS_LLM_URL é obrigatório")
		}
		if os.Getenv("DATABASE_URL") == "" {
			return nil, fmt.Errorf("produção: DATABASE_URL é obrigatório")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration aceita tanto durações Go ("5s", "10m") quanto segundos puros ("600").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
