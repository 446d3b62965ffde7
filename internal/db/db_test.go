package db

import (
	"context"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func tempDSN(t *testing.T) string {
	t.Helper()
	tempFile, err := os.CreateTemp("", "alm_rag_test_*.db")
	if err != nil {
		t.Fatal(err)
	}
	tempFile.Close()
	dbPath := tempFile.Name()

	t.Cleanup(func() {
		os.Remove(dbPath)
		os.Remove(dbPath + "-shm")
		os.Remove(dbPath + "-wal")
	})

	return dbPath
}

func TestRunMigrations(t *testing.T) {
	pool, err := NewDualPool("sqlite3", tempDSN(t))
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := RunMigrations(ctx, pool.Write); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	t.Run("Idempotent", func(t *testing.T) {
		if err := RunMigrations(ctx, pool.Write); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
	})

	t.Run("TablesExist", func(t *testing.T) {
		for _, table := range []string{"rag_embeddings", "index_builds", "embedding_quarantine", "ingest_notifications"} {
			var name string
			err := pool.Read.QueryRowContext(ctx,
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&name)
			if err != nil {
				t.Errorf("table %s missing: %v", table, err)
			}
		}
	})

	t.Run("DuplicateErrorIDAllowed", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			_, err := pool.Write.ExecContext(ctx,
				"INSERT INTO rag_embeddings (error_id, embedding, embedding_dim) VALUES (?, ?, ?)",
				"E001", []byte{0, 0, 128, 63}, 1,
			)
			if err != nil {
				t.Fatalf("insert %d failed: %v", i, err)
			}
		}

		var count int
		if err := pool.Read.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM rag_embeddings WHERE error_id = 'E001'").Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 2 {
			t.Errorf("expected 2 rows for re-ingested error_id, got %d", count)
		}
	})
}

func TestPaging(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := PagingParams{}
		if p.Limit() != 20 {
			t.Errorf("expected default limit 20, got %d", p.Limit())
		}
		if p.Offset() != 0 {
			t.Errorf("expected offset 0, got %d", p.Offset())
		}
	})

	t.Run("Capped", func(t *testing.T) {
		p := PagingParams{Page: 3, PerPage: 500}
		if p.Limit() != 100 {
			t.Errorf("expected limit capped at 100, got %d", p.Limit())
		}
		if p.Offset() != 200 {
			t.Errorf("expected offset 200, got %d", p.Offset())
		}
	})

	t.Run("TotalPages", func(t *testing.T) {
		r := PagedResult[int]{TotalItems: 41, PerPage: 20}
		if r.TotalPages() != 3 {
			t.Errorf("expected 3 pages, got %d", r.TotalPages())
		}
	})
}
