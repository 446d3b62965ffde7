// Package webhook recebe notificações de ingest do produtor de
// embeddings e dispara o rebuild do índice fora do intervalo regular.
package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/PauloHFS/alm-rag/internal/validator"
	"github.com/PauloHFS/alm-rag/internal/worker"
)

type webhookInput struct {
	RunID string `json:"run_id" validate:"required"`
}

// Reloader é a fatia do Indexer que o webhook precisa.
type Reloader interface {
	Reload(ctx context.Context, trigger string) error
}

type Handler struct {
	write    *sql.DB
	reloader Reloader
	logger   *slog.Logger
}

func NewHandler(write *sql.DB, reloader Reloader, logger *slog.Logger) *Handler {
	return &Handler{write: write, reloader: reloader, logger: logger}
}

// ServeHTTP handles incoming webhooks
// @Summary Receber Webhook de Ingest
// @Description Registra a notificação de um ciclo de ingest e dispara um rebuild assíncrono do índice.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param source path string true "Fonte da notificação (ex: ingest)"
// @Param payload body webhookInput true "Payload da notificação"
// @Success 202 {string} string "Accepted"
// @Failure 400 {string} string "Bad Request"
// @Router /webhooks/{source} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	if source == "" {
		http.Error(w, "source required", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	var input webhookInput
	if err := json.Unmarshal(payload, &input); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if input.RunID == "" {
		input.RunID = uuid.NewString()
	}
	if err := validator.Validate(input); err != nil {
		http.Error(w, "validation failed", http.StatusUnprocessableEntity)
		return
	}

	// 1. Persistir a notificação bruta para auditoria
	_, err = h.write.ExecContext(r.Context(), `
		INSERT INTO ingest_notifications (source, run_id, payload) VALUES (?, ?, ?)
	`, source, input.RunID, payload)
	if err != nil {
		http.Error(w, "failed to store notification", http.StatusInternalServerError)
		return
	}

	// 2. Disparar o rebuild fora do ciclo da requisição: o produtor não
	// deve esperar o build terminar.
	if source == "ingest" && h.reloader != nil {
		go func() {
			if err := h.reloader.Reload(context.Background(), worker.TriggerWebhook); err != nil {
				h.logger.Warn("webhook-triggered rebuild failed",
					slog.String("run_id", input.RunID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	// 3. Responder rápido (202 Accepted)
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "run_id": input.RunID})
}
