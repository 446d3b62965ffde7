package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/PauloHFS/alm-rag/internal/vector"
)

// Embedder é a fatia do cliente de embeddings que o pipeline usa.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Runner embeda cada entrada da base de conhecimento e grava as linhas
// na rag_embeddings. Inserções são sempre linhas novas: o carregador
// do índice resolve duplicatas ficando com o maior id, então reingerir
// o mesmo arquivo é seguro e atômico por entrada.
type Runner struct {
	embedder Embedder
	write    *sql.DB
	limiter  *rate.Limiter
	model    string
	dim      int
	logger   *slog.Logger
}

func NewRunner(embedder Embedder, write *sql.DB, model string, dim int, logger *slog.Logger) *Runner {
	return &Runner{
		embedder: embedder,
		write:    write,
		// Educação com o backend de embeddings: 4 req/s, rajada de 8.
		limiter: rate.NewLimiter(4, 8),
		model:   model,
		dim:     dim,
		logger:  logger,
	}
}

func (r *Runner) Run(ctx context.Context, kb *KnowledgeBase) (int, error) {
	start := time.Now()
	inserted := 0

	for _, entry := range kb.Errors {
		if err := r.limiter.Wait(ctx); err != nil {
			return inserted, err
		}

		vec, err := r.embedder.Embed(ctx, entry.EmbeddingText())
		if err != nil {
			return inserted, fmt.Errorf("embed %s: %w", entry.ErrorID, err)
		}
		if r.dim > 0 && len(vec) != r.dim {
			return inserted, fmt.Errorf("embed %s: got dim %d, expected %d", entry.ErrorID, len(vec), r.dim)
		}

		if err := r.insert(ctx, entry, vec); err != nil {
			return inserted, err
		}
		inserted++
	}

	r.logger.InfoContext(ctx, "ingest completed",
		slog.Int("inserted", inserted),
		slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/1e6),
	)

	return inserted, nil
}

func (r *Runner) insert(ctx context.Context, entry Entry, vec []float32) error {
	metadata, err := json.Marshal(map[string]any{
		"source_file": entry.SourceFile,
		"page":        entry.Page,
		"sections":    entry.Sections,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", entry.ErrorID, err)
	}

	_, err = r.write.ExecContext(ctx, `
		INSERT INTO rag_embeddings
			(error_id, embedding, error_title, error_metadata, model_name, embedding_dim)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ErrorID, vector.EncodeFloat32(vec), entry.Title, string(metadata), r.model, len(vec))
	if err != nil {
		return fmt.Errorf("insert %s: %w", entry.ErrorID, err)
	}
	return nil
}
