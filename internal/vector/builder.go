package vector

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoVectors é devolvido quando o lote de entrada está vazio (ou
// todos os registros foram descartados). O chamador NÃO deve publicar
// nada nesse caso.
var ErrNoVectors = errors.New("no vectors to build index from")

// Snapshot é a unidade de publicação atômica: índice + mapeamento
// slot→registro construídos em conjunto, sempre trocados juntos.
// Imutável depois de publicado.
type Snapshot struct {
	Index      *Index
	Records    []Record // slot i ↔ Records[i]
	Dim        int
	Generation uint64 // atribuído pelo State no publish
	BuiltAt    time.Time
	Dropped    int // descartados por dimensão divergente
	Skips      []Skip
}

func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	return s.Index.Size()
}

// BuildSnapshot constrói um snapshot a partir de um lote de registros
// já deduplicado pelo Store. Registros cuja dimensão diverge da
// dimensão majoritária do lote são descartados e contados, nunca
// truncados ou preenchidos. Empate na eleição da dimensão majoritária
// prefere preferredDim; persistindo o empate, vence a maior.
func BuildSnapshot(records []Record, preferredDim int) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, ErrNoVectors
	}

	dim := electDimension(records, preferredDim)

	vectors := make([][]float32, 0, len(records))
	kept := make([]Record, 0, len(records))
	var skips []Skip

	for _, rec := range records {
		if len(rec.Vector) != dim {
			skips = append(skips, Skip{
				ErrorID: rec.ErrorID,
				Reason:  SkipReasonDimension,
				Detail:  fmt.Sprintf("vector dim %d, index dim %d", len(rec.Vector), dim),
			})
			continue
		}
		// Cópia normalizada: o registro original segue com o vetor cru.
		v := make([]float32, dim)
		copy(v, rec.Vector)
		Normalize(v)
		vectors = append(vectors, v)
		kept = append(kept, rec)
	}

	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}

	ix, err := NewIndex(dim, vectors)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Index:   ix,
		Records: kept,
		Dim:     dim,
		BuiltAt: time.Now().UTC(),
		Dropped: len(skips),
		Skips:   skips,
	}, nil
}

func electDimension(records []Record, preferredDim int) int {
	counts := make(map[int]int)
	for _, rec := range records {
		counts[len(rec.Vector)]++
	}

	best, bestCount := 0, 0
	for dim, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount = dim, count
		case count == bestCount:
			if dim == preferredDim || (best != preferredDim && dim > best) {
				best = dim
			}
		}
	}
	return best
}
