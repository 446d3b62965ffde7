package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/PauloHFS/alm-rag/internal/db"
	"github.com/PauloHFS/alm-rag/internal/httpclient"
	"github.com/PauloHFS/alm-rag/internal/ingest"
	"github.com/PauloHFS/alm-rag/internal/llm"
	"github.com/PauloHFS/alm-rag/internal/logging"
	"github.com/PauloHFS/alm-rag/internal/vector"
)

// RunIngest embedda uma base de conhecimento YAML de verdade (contra o
// serviço de embeddings configurado) e grava na tabela compartilhada.
// É a versão local do job de ingestão para desenvolvimento e backfills.
func RunIngest() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ingest <knowledge-base.yaml>")
		os.Exit(1)
	}
	path := os.Args[2]

	cfg, dbConn, err := initDB()
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	logging.Init()
	logger := logging.Get()

	ctx := context.Background()
	if err := db.RunMigrations(ctx, dbConn); err != nil {
		logger.Error("failed to run migrations before ingest", "error", err)
		os.Exit(1)
	}

	kb, err := ingest.LoadKnowledgeBase(path)
	if err != nil {
		logger.Error("failed to load knowledge base", "path", path, "error", err)
		os.Exit(1)
	}

	hc := httpclient.New(httpclient.Config{
		Name:    "embeddings",
		Timeout: 60 * time.Second,
	})
	llmOpts := []llm.ClientOption{
		llm.WithBaseURL(cfg.EmbeddingsURL),
		llm.WithModel(cfg.EmbeddingModel),
		llm.WithHTTPClient(hc.Client),
		llm.WithMaxRetries(5),
	}
	if cfg.EmbeddingsAPIKey != "" {
		llmOpts = append(llmOpts, llm.WithAPIKey(cfg.EmbeddingsAPIKey))
	}
	llmClient, err := llm.NewClient(llmOpts...)
	if err != nil {
		logger.Error("failed to create embeddings client", "error", err)
		os.Exit(1)
	}
	embedder := vector.NewEmbedder(llmClient.WithMetrics(), cfg.EmbeddingModel)

	runner := ingest.NewRunner(embedder, dbConn, cfg.EmbeddingModel, cfg.EmbeddingDim, logger)
	inserted, err := runner.Run(ctx, kb)
	if err != nil {
		logger.Error("ingest failed", "inserted", inserted, "error", err)
		os.Exit(1)
	}
	logger.Info("ingest finished", "entries", len(kb.Errors), "inserted", inserted)
}
