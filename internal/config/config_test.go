package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("DefaultValues", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "8002" {
			t.Errorf("expected port 8002, got %s", cfg.Port)
		}
		if cfg.EmbeddingModel != "nomic-ai/nomic-embed-text-v1.5" {
			t.Errorf("unexpected default model: %s", cfg.EmbeddingModel)
		}
		if cfg.EmbeddingDim != 768 {
			t.Errorf("expected dim 768, got %d", cfg.EmbeddingDim)
		}
		if cfg.PollInterval != 5*time.Second {
			t.Errorf("expected poll interval 5s, got %s", cfg.PollInterval)
		}
		if cfg.MaxWait != 600*time.Second {
			t.Errorf("expected max wait 600s, got %s", cfg.MaxWait)
		}
	})

	t.Run("ProductionValidation", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("APP_ENV", "prod")
		_, err := Load()
		if err == nil {
			t.Error("expected error when EMBEDDINGS_LLM_URL is missing in production")
		}
	})

	t.Run("ProductionComplete", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("APP_ENV", "prod")
		os.Setenv("EMBEDDINGS_LLM_URL", "http://embeddings:8001")
		os.Setenv("DATABASE_URL", "/data/alm-rag.db")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.EmbeddingsURL != "http://embeddings:8001" {
			t.Errorf("unexpected embeddings URL: %s", cfg.EmbeddingsURL)
		}
	})

	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("PORT", "9000")
		os.Setenv("EMBEDDING_DIM", "384")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "9000" {
			t.Errorf("expected port 9000, got %s", cfg.Port)
		}
		if cfg.EmbeddingDim != 384 {
			t.Errorf("expected dim 384, got %d", cfg.EmbeddingDim)
		}
	})

	t.Run("DurationAsSeconds", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("INDEX_POLL_INTERVAL", "10")
		os.Setenv("INDEX_MAX_WAIT", "2m")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.PollInterval != 10*time.Second {
			t.Errorf("expected 10s, got %s", cfg.PollInterval)
		}
		if cfg.MaxWait != 2*time.Minute {
			t.Errorf("expected 2m, got %s", cfg.MaxWait)
		}
	})

	t.Run("InvalidDim", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("EMBEDDING_DIM", "-1")
		if _, err := Load(); err == nil {
			t.Error("expected error for negative EMBEDDING_DIM")
		}
	})
}
