package vector

import (
	"fmt"
	"math"
	"sort"
)

// Index é um índice plano de produto interno exato sobre um lote fixo
// de vetores. Imutável depois de construído: uma mudança de dados gera
// um Index inteiramente novo. Com os vetores L2-normalizados o produto
// interno equivale à similaridade de cosseno.
type Index struct {
	dim  int
	n    int
	data []float32 // n*dim, row-major
}

// NewIndex empacota os vetores em um buffer contíguo. Todos precisam
// ter a dimensão dada; o builder garante isso antes de chamar.
func NewIndex(dim int, vectors [][]float32) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: dimension must be positive, got %d", dim)
	}
	data := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("index: vector %d has dim %d, want %d", i, len(v), dim)
		}
		data = append(data, v...)
	}
	return &Index{dim: dim, n: len(vectors), data: data}, nil
}

func (ix *Index) Size() int { return ix.n }

func (ix *Index) Dim() int { return ix.dim }

// Search retorna os k maiores produtos internos, ordenados por score
// decrescente com empate resolvido pelo slot menor. k maior que o
// índice devolve todos os slots.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("index: query dim %d != index dim %d", len(query), ix.dim)
	}
	if ix.n == 0 || k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, ix.n)
	for slot := 0; slot < ix.n; slot++ {
		row := ix.data[slot*ix.dim : (slot+1)*ix.dim]
		var score float32
		for j, q := range query {
			score += q * row[j]
		}
		hits[slot] = Hit{Slot: slot, Score: score}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Slot < hits[b].Slot
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Normalize aplica normalização L2 in place. Vetores de norma zero
// ficam intactos para não produzir NaN.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
