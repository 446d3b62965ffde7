// Package web expõe a superfície HTTP do serviço: consulta RAG,
// readiness, reload e inspeção de registros.
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/PauloHFS/alm-rag/internal/config"
	"github.com/PauloHFS/alm-rag/internal/db"
	"github.com/PauloHFS/alm-rag/internal/llm"
	"github.com/PauloHFS/alm-rag/internal/logging"
	"github.com/PauloHFS/alm-rag/internal/rag"
	"github.com/PauloHFS/alm-rag/internal/sse"
	"github.com/PauloHFS/alm-rag/internal/validator"
	"github.com/PauloHFS/alm-rag/internal/vector"
	"github.com/PauloHFS/alm-rag/internal/worker"
)

type HandlerDeps struct {
	Engine  *rag.Engine
	State   *vector.State
	Indexer *worker.Indexer
	Store   *vector.Store
	Broker  *sse.Broker
	Config  *config.Config
}

// AppHandler é um tipo customizado que permite retornar erros dos handlers
type AppHandler func(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error

// Handle envolve nosso AppHandler para conformidade com http.HandlerFunc
func Handle(deps HandlerDeps, h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(deps, w, r); err != nil {
			logging.Get().Error("request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)

			writeError(w, http.StatusInternalServerError, "internal server error")
		}
	}
}

func RegisterRoutes(mux *http.ServeMux, deps HandlerDeps) {
	mux.HandleFunc("POST "+Query, Handle(deps, handleQuery))
	mux.HandleFunc("POST "+Reload, Handle(deps, handleReload))
	mux.HandleFunc("GET "+Records, Handle(deps, handleRecords))

	mux.HandleFunc("GET "+Health, Handle(deps, handleHealth))
	mux.HandleFunc("GET "+Ready, Handle(deps, handleReady))

	mux.HandleFunc("GET "+Events, deps.Broker.Handler(sse.TopicIndex))

	mux.HandleFunc("GET "+Home, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"service": "alm-rag-api"})
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- Handler Implementations ---

type queryInput struct {
	Query     string   `json:"query" validate:"required"`
	TopK      int      `json:"top_k"`
	TopN      int      `json:"top_n"`
	Threshold *float64 `json:"similarity_threshold"`
}

// handleQuery executa uma consulta de similaridade
// @Summary Consulta RAG
// @Description Embedda a pergunta e retorna os erros conhecidos mais similares da geração corrente do índice.
// @Tags rag
// @Accept json
// @Produce json
// @Param payload body queryInput true "Consulta"
// @Success 200 {object} rag.Result
// @Failure 400 {object} validator.ValidationResult
// @Failure 502 {string} string "Bad Gateway"
// @Failure 503 {string} string "Service Unavailable"
// @Router /rag/query [post]
func handleQuery(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	var input queryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return nil
	}

	logging.AddToEvent(r.Context(),
		slog.String("operation", "rag_query"),
		slog.Int("query_length", len(input.Query)),
	)

	// Defaults resolvidos antes da validação: o cliente pode mandar só a
	// query. Threshold segue como ponteiro até o engine para distinguir
	// 0 explícito (sem corte) de omitido (default 0.6).
	params := rag.Params{
		Query:     input.Query,
		TopK:      input.TopK,
		TopN:      input.TopN,
		Threshold: input.Threshold,
	}
	if params.TopK == 0 {
		params.TopK = rag.DefaultTopK
	}
	if params.TopN == 0 {
		params.TopN = rag.DefaultTopN
	}
	threshold := rag.DefaultThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	validation := validator.ValidateQueryParams(params.Query, params.TopK, params.TopN, threshold)
	if !validation.Valid {
		writeJSON(w, http.StatusBadRequest, validation)
		return nil
	}

	result, err := deps.Engine.Query(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrIndexNotReady):
			logging.AddToEvent(r.Context(), slog.String("outcome", "not_ready"))
			writeError(w, http.StatusServiceUnavailable, "index not ready: embeddings still loading")
			return nil
		case isUpstreamError(err):
			logging.AddToEvent(r.Context(),
				slog.String("outcome", "error"),
				slog.String("error_reason", "embedding_upstream"),
			)
			writeError(w, http.StatusBadGateway, "embedding service unavailable")
			return nil
		default:
			return err
		}
	}

	logging.AddToEvent(r.Context(),
		slog.String("outcome", "success"),
		slog.Int("num_results", result.Metadata.NumResults),
		slog.Float64("search_time_ms", result.Metadata.SearchTimeMs),
	)

	writeJSON(w, http.StatusOK, result)
	return nil
}

// isUpstreamError separa falhas do serviço de embeddings (502) de bugs
// nossos (500).
func isUpstreamError(err error) bool {
	if errors.Is(err, vector.ErrNoEmbedding) || errors.Is(err, llm.ErrNoEmbeddings) || errors.Is(err, llm.ErrMaxRetries) {
		return true
	}
	var apiErr *llm.APIError
	return errors.As(err, &apiErr)
}

// handleHealth é o liveness check
// @Summary Health Check
// @Description Sempre 200 enquanto o processo responde; o corpo reporta healthy/unhealthy conforme o índice.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func handleHealth(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	if !deps.State.Ready() {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "unhealthy",
			"reason": "index not loaded",
		})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"index_size": deps.State.Size(),
		"generation": deps.State.Generation(),
	})
	return nil
}

// handleReady é o readiness check
// @Summary Readiness Check
// @Description 200 quando há uma geração do índice publicada; 503 antes disso.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /ready [get]
func handleReady(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	if !deps.State.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "loading",
			"detail": "no index generation published yet",
		})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"index_size": deps.State.Size(),
		"generation": deps.State.Generation(),
	})
	return nil
}

// handleReload força um rebuild do índice
// @Summary Reload do índice
// @Description Reconstrói o índice a partir do banco fora do intervalo regular de polling.
// @Tags rag
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 500 {string} string "Internal Server Error"
// @Router /rag/reload [post]
func handleReload(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	logging.AddToEvent(r.Context(), slog.String("operation", "index_reload"))

	if err := deps.Indexer.Reload(r.Context(), worker.TriggerReload); err != nil {
		if errors.Is(err, vector.ErrNoVectors) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "empty",
				"detail": "no embeddings in store; previous generation (if any) kept",
			})
			return nil
		}
		return err
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"index_size": deps.State.Size(),
		"generation": deps.State.Generation(),
	})
	return nil
}

// handleRecords lista os registros armazenados
// @Summary Listar registros
// @Description Pagina os metadados dos embeddings armazenados (sem os vetores).
// @Tags rag
// @Produce json
// @Param page query int false "Página (1-based)"
// @Param per_page query int false "Itens por página (máx 100)"
// @Success 200 {object} db.PagedResult[vector.RecordMeta]
// @Router /rag/records [get]
func handleRecords(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := deps.Store.ListRecords(r.Context(), db.PagingParams{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusOK, result)
			return nil
		}
		return err
	}

	writeJSON(w, http.StatusOK, result)
	return nil
}
