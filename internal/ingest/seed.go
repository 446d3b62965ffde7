package ingest

import (
	"context"
	"database/sql"
	_ "embed"
	"hash/fnv"
	"log/slog"
	"math/rand"

	"github.com/PauloHFS/alm-rag/internal/vector"
)

//go:embed seed_kb.yaml
var seedKB []byte

// Seed popula o banco de desenvolvimento com a base embutida, usando
// pseudo-embeddings determinísticos (semeados pelo error_id) em vez do
// backend de embeddings real. `seed` + `server` dá uma instância
// consultável sem nenhum serviço externo — os scores não significam
// nada semanticamente, mas o pipeline inteiro funciona.
func Seed(ctx context.Context, write *sql.DB, model string, dim int, logger *slog.Logger) error {
	kb, err := ParseKnowledgeBase(seedKB)
	if err != nil {
		return err
	}

	r := &Runner{write: write, model: model, dim: dim, logger: logger}
	for _, entry := range kb.Errors {
		if err := r.insert(ctx, entry, pseudoEmbedding(entry.ErrorID, dim)); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "database seeded",
		slog.Int("entries", len(kb.Errors)),
		slog.Int("dim", dim),
	)
	return nil
}

// pseudoEmbedding gera um vetor unitário determinístico por id.
func pseudoEmbedding(id string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	vector.Normalize(vec)
	return vec
}
