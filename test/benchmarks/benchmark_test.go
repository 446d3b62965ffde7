package benchmarks

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PauloHFS/alm-rag/internal/vector"
)

func randomVector(rng *rand.Rand, dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	vector.Normalize(vec)
	return vec
}

func buildIndex(b *testing.B, n, dim int) (*vector.Index, []float32) {
	b.Helper()
	rng := rand.New(rand.NewSource(42))
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = randomVector(rng, dim)
	}
	ix, err := vector.NewIndex(dim, vectors)
	if err != nil {
		b.Fatal(err)
	}
	return ix, randomVector(rng, dim)
}

func BenchmarkIndexSearch(b *testing.B) {
	cases := []struct {
		n, dim int
	}{
		{1000, 256},
		{1000, 768},
		{10000, 768},
	}

	for _, tc := range cases {
		b.Run(fmt.Sprintf("N%d_Dim%d", tc.n, tc.dim), func(b *testing.B) {
			ix, query := buildIndex(b, tc.n, tc.dim)

			metrics := NewMetrics()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				start := time.Now()
				hits, err := ix.Search(query, 10)
				metrics.Record(time.Since(start))
				if err != nil {
					b.Fatal(err)
				}
				if len(hits) == 0 {
					b.Error("expected hits")
				}
			}

			b.ReportMetric(float64(metrics.P50().Nanoseconds()), "ns_p50")
			b.ReportMetric(float64(metrics.P99().Nanoseconds()), "ns_p99")
		})
	}
}

func BenchmarkIndexConcurrentSearch(b *testing.B) {
	ix, query := buildIndex(b, 10000, 768)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			hits, err := ix.Search(query, 10)
			if err != nil {
				b.Fatal(err)
			}
			if len(hits) == 0 {
				b.Error("expected hits")
			}
		}
	})
}

func BenchmarkBuildSnapshot(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	records := make([]vector.Record, 5000)
	for i := range records {
		records[i] = vector.Record{
			RowID:   int64(i + 1),
			ErrorID: fmt.Sprintf("ERR-%05d", i),
			Vector:  randomVector(rng, 768),
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap, err := vector.BuildSnapshot(records, 768)
		if err != nil {
			b.Fatal(err)
		}
		if snap.Size() != len(records) {
			b.Errorf("size = %d", snap.Size())
		}
	}
}

func BenchmarkDecodeVector(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	vec := randomVector(rng, 768)

	b.Run("BinaryBlob", func(b *testing.B) {
		raw := vector.EncodeFloat32(vec)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := vector.DecodeVector(raw); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("JSONText", func(b *testing.B) {
		raw, err := json.Marshal(vec)
		if err != nil {
			b.Fatal(err)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := vector.DecodeVector(raw); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkNormalize(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	src := randomVector(rng, 768)
	vec := make([]float32, len(src))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(vec, src)
		vector.Normalize(vec)
	}
}
