package ingest

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PauloHFS/alm-rag/internal/db"
)

const sampleKB = `
errors:
  - error_id: "ERR-001"
    title: "Disk full on controller node"
    content: "The /var partition filled up during log rotation."
    source_file: "known_errors.pdf"
    page: 12
    sections: ["Storage", "Troubleshooting"]
  - error_id: "ERR-002"
    title: "Stale NFS handle"
`

func TestParseKnowledgeBase(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		kb, err := ParseKnowledgeBase([]byte(sampleKB))
		if err != nil {
			t.Fatal(err)
		}
		if len(kb.Errors) != 2 {
			t.Fatalf("entries = %d, want 2", len(kb.Errors))
		}
		if kb.Errors[0].Page != 12 || kb.Errors[0].SourceFile != "known_errors.pdf" {
			t.Errorf("metadata not parsed: %+v", kb.Errors[0])
		}
	})

	t.Run("EmptyFileRejected", func(t *testing.T) {
		if _, err := ParseKnowledgeBase([]byte("errors: []")); err == nil {
			t.Error("expected error for empty knowledge base")
		}
	})

	t.Run("MissingErrorIDRejected", func(t *testing.T) {
		if _, err := ParseKnowledgeBase([]byte("errors:\n  - title: 'No id'")); err == nil {
			t.Error("expected error for entry without error_id")
		}
	})

	t.Run("InvalidYAMLRejected", func(t *testing.T) {
		if _, err := ParseKnowledgeBase([]byte("{not yaml")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestEmbeddingText(t *testing.T) {
	e := Entry{ErrorID: "ERR-001", Title: "Disk full", Content: "Details here"}
	text := e.EmbeddingText()
	if !strings.HasPrefix(text, "search_document: ") {
		t.Errorf("missing document prefix: %q", text)
	}
	if !strings.Contains(text, "Details here") {
		t.Errorf("content missing: %q", text)
	}

	// Sem conteúdo, só o título é embedado.
	titleOnly := Entry{ErrorID: "ERR-002", Title: "Stale NFS handle"}
	if got := titleOnly.EmbeddingText(); got != "search_document: Stale NFS handle" {
		t.Errorf("got %q", got)
	}
}

type fakeEmbedder struct {
	dim   int
	calls []string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, f.dim)
	vec[0] = 1
	return vec, nil
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "ingest_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.RunMigrations(context.Background(), conn); err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestRunnerRun(t *testing.T) {
	t.Run("InsertsAllEntries", func(t *testing.T) {
		conn := openTestDB(t)
		kb, err := ParseKnowledgeBase([]byte(sampleKB))
		if err != nil {
			t.Fatal(err)
		}

		fe := &fakeEmbedder{dim: 4}
		runner := NewRunner(fe, conn, "test-model", 4, slog.New(slog.DiscardHandler))

		inserted, err := runner.Run(context.Background(), kb)
		if err != nil {
			t.Fatal(err)
		}
		if inserted != 2 {
			t.Errorf("inserted = %d, want 2", inserted)
		}

		var count int
		if err := conn.QueryRow(`SELECT COUNT(*) FROM rag_embeddings`).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 2 {
			t.Errorf("rows = %d, want 2", count)
		}

		for _, call := range fe.calls {
			if !strings.HasPrefix(call, "search_document: ") {
				t.Errorf("embedded text missing prefix: %q", call)
			}
		}
	})

	t.Run("DimensionMismatchAborts", func(t *testing.T) {
		conn := openTestDB(t)
		kb, err := ParseKnowledgeBase([]byte(sampleKB))
		if err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(&fakeEmbedder{dim: 3}, conn, "test-model", 4, slog.New(slog.DiscardHandler))
		if _, err := runner.Run(context.Background(), kb); err == nil {
			t.Error("expected dimension mismatch error")
		}
	})

	t.Run("EmbedderFailureStops", func(t *testing.T) {
		conn := openTestDB(t)
		kb, err := ParseKnowledgeBase([]byte(sampleKB))
		if err != nil {
			t.Fatal(err)
		}

		upstream := errors.New("backend down")
		runner := NewRunner(&fakeEmbedder{dim: 4, err: upstream}, conn, "test-model", 4, slog.New(slog.DiscardHandler))

		inserted, err := runner.Run(context.Background(), kb)
		if !errors.Is(err, upstream) {
			t.Errorf("err = %v, want wrapped %v", err, upstream)
		}
		if inserted != 0 {
			t.Errorf("inserted = %d, want 0", inserted)
		}
	})
}

func TestSeed(t *testing.T) {
	t.Run("PopulatesEmbeddedKnowledgeBase", func(t *testing.T) {
		conn := openTestDB(t)

		if err := Seed(context.Background(), conn, "test-model", 8, slog.New(slog.DiscardHandler)); err != nil {
			t.Fatal(err)
		}

		var count, dim int
		if err := conn.QueryRow(`SELECT COUNT(*), MAX(embedding_dim) FROM rag_embeddings`).Scan(&count, &dim); err != nil {
			t.Fatal(err)
		}
		if count == 0 {
			t.Fatal("seed inserted nothing")
		}
		if dim != 8 {
			t.Errorf("dim = %d, want 8", dim)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := pseudoEmbedding("ERR-001", 8)
		b := pseudoEmbedding("ERR-001", 8)
		c := pseudoEmbedding("ERR-002", 8)

		for i := range a {
			if a[i] != b[i] {
				t.Fatal("same id produced different vectors")
			}
		}
		same := true
		for i := range a {
			if a[i] != c[i] {
				same = false
				break
			}
		}
		if same {
			t.Error("different ids produced identical vectors")
		}
	})
}
