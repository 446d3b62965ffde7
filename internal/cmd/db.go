package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PauloHFS/alm-rag/internal/config"
	"github.com/PauloHFS/alm-rag/internal/db"
	"github.com/PauloHFS/alm-rag/internal/ingest"
	"github.com/PauloHFS/alm-rag/internal/logging"
)

func initDB() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbConn, err := sql.Open("sqlite3", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Mesmos pragmas de performance e resiliência do servidor
	if err := config.GetSQLiteConfig().ApplyPragmas(dbConn); err != nil {
		dbConn.Close()
		return nil, nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return cfg, dbConn, nil
}

func RunMigrate() {
	_, dbConn, err := initDB()
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	logging.Init()
	logger := logging.Get()

	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations", "error", err)
		return
	}
	logger.Info("migrations executed successfully")
}

// RunSeed popula a tabela compartilhada com embeddings sintéticos da
// base de conhecimento embutida, para desenvolvimento sem o job de
// ingestão real rodando.
func RunSeed() {
	cfg, dbConn, err := initDB()
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	logging.Init()
	logger := logging.Get()

	ctx := context.Background()
	if err := db.RunMigrations(ctx, dbConn); err != nil {
		logger.Error("failed to run migrations during seed", "error", err)
		return
	}
	if err := ingest.Seed(ctx, dbConn, cfg.EmbeddingModel, cfg.EmbeddingDim, logger); err != nil {
		logger.Error("failed to seed database", "error", err)
		return
	}
	logger.Info("database seeded successfully")
}
