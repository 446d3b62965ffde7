package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/PauloHFS/alm-rag/migrations"
)

// RunMigrations aplica as migrações goose embutidas. A tabela
// rag_embeddings é compartilhada com o job de ingestão, então o CREATE
// é idempotente: qualquer um dos dois lados pode rodar primeiro.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("falha ao configurar dialeto: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("falha ao executar migrações: %w", err)
	}

	return nil
}
