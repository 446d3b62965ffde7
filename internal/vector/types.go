// Package vector holds the in-memory similarity index machinery: the
// flat inner-product index, the snapshot builder, the atomically
// swappable published state and the loader over the shared embedding
// store.
package vector

import "time"

// Record é uma linha da tabela rag_embeddings já decodificada.
type Record struct {
	RowID     int64
	ErrorID   string
	Vector    []float32
	Title     string
	Metadata  map[string]any
	ModelName string
	Dim       int
	UpdatedAt time.Time
}

// Hit é um resultado bruto de busca: posição no índice + similaridade.
type Hit struct {
	Slot  int
	Score float32
}

// Skip registra uma linha excluída de um build, para quarentena.
type Skip struct {
	ErrorID string
	Reason  string
	Detail  string
}

const (
	SkipReasonMalformed = "malformed_vector"
	SkipReasonDimension = "dimension_mismatch"
)
