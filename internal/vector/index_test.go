package vector

import (
	"math"
	"testing"
)

func TestIndexSearch(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.6, 0.8, 0},
	}
	ix, err := NewIndex(3, vectors)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("OrderedByScoreDescending", func(t *testing.T) {
		hits, err := ix.Search([]float32{1, 0, 0}, 4)
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 4 {
			t.Fatalf("expected 4 hits, got %d", len(hits))
		}
		if hits[0].Slot != 0 || hits[0].Score != 1 {
			t.Errorf("expected slot 0 with score 1 first, got %+v", hits[0])
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].Score > hits[i-1].Score {
				t.Errorf("hits not sorted descending at %d: %+v", i, hits)
			}
		}
	})

	t.Run("TiesBrokenBySlotOrder", func(t *testing.T) {
		tied, err := NewIndex(2, [][]float32{{0, 1}, {1, 0}, {1, 0}})
		if err != nil {
			t.Fatal(err)
		}
		hits, err := tied.Search([]float32{1, 0}, 3)
		if err != nil {
			t.Fatal(err)
		}
		if hits[0].Slot != 1 || hits[1].Slot != 2 {
			t.Errorf("expected tied slots in original order, got %+v", hits)
		}
	})

	t.Run("KLargerThanIndex", func(t *testing.T) {
		hits, err := ix.Search([]float32{0, 1, 0}, 100)
		if err != nil {
			t.Fatal(err)
		}
		if len(hits) != 4 {
			t.Errorf("expected all 4 hits, got %d", len(hits))
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		if _, err := ix.Search([]float32{1, 0}, 3); err == nil {
			t.Error("expected error for query dim mismatch")
		}
	})

	t.Run("ZeroK", func(t *testing.T) {
		hits, err := ix.Search([]float32{1, 0, 0}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if hits != nil {
			t.Errorf("expected nil hits, got %+v", hits)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("UnitNorm", func(t *testing.T) {
		v := []float32{3, 4}
		Normalize(v)
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("expected unit norm, got %f", sum)
		}
		if math.Abs(float64(v[0])-0.6) > 1e-6 {
			t.Errorf("expected 0.6, got %f", v[0])
		}
	})

	t.Run("ZeroVectorUntouched", func(t *testing.T) {
		v := []float32{0, 0, 0}
		Normalize(v)
		for i, x := range v {
			if x != 0 {
				t.Errorf("value %d changed: %f", i, x)
			}
		}
	})
}
