package vector

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func record(id string, vec []float32) Record {
	return Record{ErrorID: id, Vector: vec, Dim: len(vec), Title: "title " + id}
}

func TestBuildSnapshot(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := BuildSnapshot(nil, 768); !errors.Is(err, ErrNoVectors) {
			t.Errorf("expected ErrNoVectors, got %v", err)
		}
	})

	t.Run("SlotsMatchRecords", func(t *testing.T) {
		recs := []Record{
			record("a", []float32{1, 0}),
			record("b", []float32{0, 1}),
		}
		snap, err := BuildSnapshot(recs, 2)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Size() != 2 || len(snap.Records) != 2 {
			t.Fatalf("index size %d, records %d", snap.Size(), len(snap.Records))
		}
		hits, err := snap.Index.Search([]float32{0, 1}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Records[hits[0].Slot].ErrorID != "b" {
			t.Errorf("slot mapping broken: got %s", snap.Records[hits[0].Slot].ErrorID)
		}
	})

	t.Run("MajorityDimensionDropsOutliers", func(t *testing.T) {
		recs := []Record{
			record("a", make([]float32, 768)),
			record("b", make([]float32, 768)),
			record("c", make([]float32, 512)),
		}
		recs[0].Vector[0] = 1
		recs[1].Vector[1] = 1
		recs[2].Vector[2] = 1

		snap, err := BuildSnapshot(recs, 768)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Dim != 768 {
			t.Errorf("expected dim 768, got %d", snap.Dim)
		}
		if snap.Size() != 2 {
			t.Errorf("expected 2 vectors, got %d", snap.Size())
		}
		if snap.Dropped != 1 {
			t.Errorf("expected 1 dropped, got %d", snap.Dropped)
		}
		if len(snap.Skips) != 1 || snap.Skips[0].ErrorID != "c" || snap.Skips[0].Reason != SkipReasonDimension {
			t.Errorf("unexpected skips: %+v", snap.Skips)
		}
	})

	t.Run("DimensionTiePrefersConfigured", func(t *testing.T) {
		recs := []Record{
			record("a", make([]float32, 512)),
			record("b", make([]float32, 768)),
		}
		snap, err := BuildSnapshot(recs, 768)
		if err != nil {
			t.Fatal(err)
		}
		if snap.Dim != 768 {
			t.Errorf("expected tie to resolve to 768, got %d", snap.Dim)
		}
	})

	t.Run("VectorsAreNormalized", func(t *testing.T) {
		recs := []Record{record("a", []float32{3, 4})}
		snap, err := BuildSnapshot(recs, 2)
		if err != nil {
			t.Fatal(err)
		}
		hits, err := snap.Index.Search([]float32{0.6, 0.8}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if diff := float64(hits[0].Score) - 1; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("expected similarity 1 against own direction, got %f", hits[0].Score)
		}
		// O registro mantém o vetor original, sem normalização.
		if recs[0].Vector[0] != 3 {
			t.Errorf("input record mutated: %v", recs[0].Vector)
		}
	})

	t.Run("OrderIndependentResults", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		var recs []Record
		for i := 0; i < 20; i++ {
			vec := make([]float32, 8)
			for j := range vec {
				vec[j] = rng.Float32()*2 - 1
			}
			recs = append(recs, record(fmt.Sprintf("id-%02d", i), vec))
		}

		shuffled := make([]Record, len(recs))
		copy(shuffled, recs)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		snapA, err := BuildSnapshot(recs, 8)
		if err != nil {
			t.Fatal(err)
		}
		snapB, err := BuildSnapshot(shuffled, 8)
		if err != nil {
			t.Fatal(err)
		}

		query := make([]float32, 8)
		query[0] = 1

		hitsA, _ := snapA.Index.Search(query, 5)
		hitsB, _ := snapB.Index.Search(query, 5)

		for i := range hitsA {
			idA := snapA.Records[hitsA[i].Slot].ErrorID
			idB := snapB.Records[hitsB[i].Slot].ErrorID
			if idA != idB {
				t.Errorf("rank %d differs by input order: %s vs %s", i, idA, idB)
			}
		}
	})
}
