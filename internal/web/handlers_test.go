package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PauloHFS/alm-rag/internal/config"
	"github.com/PauloHFS/alm-rag/internal/db"
	"github.com/PauloHFS/alm-rag/internal/rag"
	"github.com/PauloHFS/alm-rag/internal/sse"
	"github.com/PauloHFS/alm-rag/internal/vector"
	"github.com/PauloHFS/alm-rag/internal/worker"
)

type fakeEmbedder struct {
	vec []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	out := make([]float32, len(f.vec))
	copy(out, f.vec)
	return out, nil
}

func setupTestDeps(t *testing.T, queryVec []float32) (HandlerDeps, *sql.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "web_test.db")
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	if err := db.RunMigrations(ctx, conn); err != nil {
		t.Fatalf("migração falhou: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	cfg := &config.Config{
		EmbeddingDim: len(queryVec),
		PollInterval: time.Second,
		MaxWait:      time.Minute,
		Env:          "test",
	}

	state := vector.NewState()
	store := vector.NewStore(conn, logger)
	broker := sse.NewBroker()
	t.Cleanup(broker.Shutdown)

	engine, err := rag.NewEngine(state, &fakeEmbedder{vec: queryVec}, "test-model")
	if err != nil {
		t.Fatal(err)
	}

	return HandlerDeps{
		Engine:  engine,
		State:   state,
		Indexer: worker.New(cfg, store, state, conn, broker, logger),
		Store:   store,
		Broker:  broker,
		Config:  cfg,
	}, conn
}

func TestHandleQuery(t *testing.T) {
	t.Run("NotReadyReturns503", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		body := bytes.NewBufferString(`{"query": "disk full"}`)
		req := httptest.NewRequest("POST", Query, body)
		rr := httptest.NewRecorder()

		Handle(deps, handleQuery).ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
		}
	})

	t.Run("InvalidJSONReturns400", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		req := httptest.NewRequest("POST", Query, bytes.NewBufferString("{not json"))
		rr := httptest.NewRecorder()

		Handle(deps, handleQuery).ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
	})

	t.Run("OutOfRangeParamsReturn400", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		cases := []string{
			`{"query": "q", "top_k": 101}`,
			`{"query": "q", "top_n": 21}`,
			`{"query": "q", "top_k": 2, "top_n": 5}`,
			`{"query": "q", "similarity_threshold": 1.5}`,
			`{"query": ""}`,
		}
		for _, payload := range cases {
			req := httptest.NewRequest("POST", Query, bytes.NewBufferString(payload))
			rr := httptest.NewRecorder()

			Handle(deps, handleQuery).ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("payload %s: expected status %d, got %d", payload, http.StatusBadRequest, rr.Code)
			}
		}
	})

	t.Run("ExplicitZeroThresholdDisablesCut", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})
		// Dois documentos: um quase paralelo à consulta (score ~1.0) e um
		// ortogonal (score 0, abaixo do default 0.6).
		deps.State.Publish(mustSnapshot(t, [][]float32{{1, 0.01}, {0, 1}}))

		body := bytes.NewBufferString(`{"query": "disk full", "similarity_threshold": 0}`)
		req := httptest.NewRequest("POST", Query, body)
		rr := httptest.NewRecorder()

		Handle(deps, handleQuery).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
		}

		var result rag.Result
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		// 0 explícito significa "sem corte": os dois documentos voltam,
		// e o metadata reporta o valor pedido, não o default.
		if result.Metadata.NumResults != 2 {
			t.Errorf("num_results = %d, want 2", result.Metadata.NumResults)
		}
		if result.Metadata.SimilarityThreshold != 0 {
			t.Errorf("similarity_threshold = %v, want 0", result.Metadata.SimilarityThreshold)
		}
	})

	t.Run("QueryAfterPublishReturnsResults", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})
		snap := mustSnapshot(t, [][]float32{{1, 0.01}, {0, 1}})
		deps.State.Publish(snap)

		body := bytes.NewBufferString(`{"query": "disk full"}`)
		req := httptest.NewRequest("POST", Query, body)
		rr := httptest.NewRecorder()

		Handle(deps, handleQuery).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
		}

		var result rag.Result
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if result.Metadata.NumResults != 1 {
			t.Errorf("num_results = %d, want 1 (orthogonal doc below threshold)", result.Metadata.NumResults)
		}
		if result.Results[0].ErrorID != "ERR-001" {
			t.Errorf("top result = %s, want ERR-001", result.Results[0].ErrorID)
		}
	})
}

func mustSnapshot(t *testing.T, vectors [][]float32) *vector.Snapshot {
	t.Helper()
	records := make([]vector.Record, len(vectors))
	for i, v := range vectors {
		records[i] = vector.Record{
			RowID:   int64(i + 1),
			ErrorID: fmt.Sprintf("ERR-%03d", i+1),
			Title:   fmt.Sprintf("Error %d", i+1),
			Vector:  v,
		}
	}
	snap, err := vector.BuildSnapshot(records, len(vectors[0]))
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestHandleHealth(t *testing.T) {
	t.Run("UnhealthyBeforeIndexStill200", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		req := httptest.NewRequest("GET", Health, nil)
		rr := httptest.NewRecorder()

		Handle(deps, handleHealth).ServeHTTP(rr, req)

		// Liveness nunca vira 503: o corpo é que carrega o estado.
		if rr.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["status"] != "unhealthy" {
			t.Errorf("status = %v, want unhealthy", body["status"])
		}
		if body["reason"] != "index not loaded" {
			t.Errorf("reason = %v, want 'index not loaded'", body["reason"])
		}
	})

	t.Run("HealthyAfterPublish", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})
		deps.State.Publish(mustSnapshot(t, [][]float32{{1, 0}, {0, 1}}))

		req := httptest.NewRequest("GET", Health, nil)
		rr := httptest.NewRecorder()

		Handle(deps, handleHealth).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", body["status"])
		}
		if body["index_size"] != float64(2) {
			t.Errorf("index_size = %v, want 2", body["index_size"])
		}
	})
}

func TestHandleReady(t *testing.T) {
	t.Run("503BeforePublish200After", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		req := httptest.NewRequest("GET", Ready, nil)
		rr := httptest.NewRecorder()
		Handle(deps, handleReady).ServeHTTP(rr, req)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("before publish: expected %d, got %d", http.StatusServiceUnavailable, rr.Code)
		}

		deps.State.Publish(mustSnapshot(t, [][]float32{{1, 0}}))

		rr = httptest.NewRecorder()
		Handle(deps, handleReady).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("after publish: expected %d, got %d", http.StatusOK, rr.Code)
		}
	})
}

func insertEmbedding(t *testing.T, conn *sql.DB, errorID string, vec []float32) {
	t.Helper()
	_, err := conn.ExecContext(context.Background(), `
		INSERT INTO rag_embeddings (error_id, embedding, error_title, error_metadata, model_name, embedding_dim)
		VALUES (?, ?, ?, ?, 'test-model', ?)
	`, errorID, vector.EncodeFloat32(vec), "Title "+errorID, `{"source_file":"kb.pdf","page":7}`, len(vec))
	if err != nil {
		t.Fatal(err)
	}
}

func TestHandleReload(t *testing.T) {
	t.Run("EmptyStoreKeepsServiceUnready", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		req := httptest.NewRequest("POST", Reload, nil)
		rr := httptest.NewRecorder()

		Handle(deps, handleReload).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
		}
		if deps.State.Ready() {
			t.Error("state should stay unready with empty store")
		}
	})

	t.Run("PublishesGenerationFromStoredRows", func(t *testing.T) {
		deps, conn := setupTestDeps(t, []float32{1, 0})
		insertEmbedding(t, conn, "ERR-001", []float32{1, 0})
		insertEmbedding(t, conn, "ERR-002", []float32{0, 1})

		req := httptest.NewRequest("POST", Reload, nil)
		rr := httptest.NewRecorder()

		Handle(deps, handleReload).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
		}
		if !deps.State.Ready() {
			t.Fatal("state should be ready after reload with rows")
		}
		if deps.State.Size() != 2 {
			t.Errorf("index size = %d, want 2", deps.State.Size())
		}
	})
}

func TestHandleRecords(t *testing.T) {
	t.Run("EmptyStoreReturnsEmptyPage", func(t *testing.T) {
		deps, _ := setupTestDeps(t, []float32{1, 0})

		req := httptest.NewRequest("GET", Records, nil)
		rr := httptest.NewRecorder()

		Handle(deps, handleRecords).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var result db.PagedResult[vector.RecordMeta]
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if result.TotalItems != 0 {
			t.Errorf("total = %d, want 0", result.TotalItems)
		}
	})

	t.Run("ListsStoredRecordsNewestFirst", func(t *testing.T) {
		deps, conn := setupTestDeps(t, []float32{1, 0})
		insertEmbedding(t, conn, "ERR-001", []float32{1, 0})
		insertEmbedding(t, conn, "ERR-002", []float32{0, 1})

		req := httptest.NewRequest("GET", Records+"?page=1&per_page=10", nil)
		rr := httptest.NewRecorder()

		Handle(deps, handleRecords).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var result db.PagedResult[vector.RecordMeta]
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if result.TotalItems != 2 || len(result.Items) != 2 {
			t.Fatalf("unexpected page: %+v", result)
		}
		if result.Items[0].ErrorID != "ERR-002" {
			t.Errorf("first item = %s, want ERR-002 (newest first)", result.Items[0].ErrorID)
		}
	})
}
