package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/PauloHFS/alm-rag/internal/vector"
)

const QuarantineRetentionDays = 14

// Quarantine persiste os registros excluídos de cada build
// (vetor malformado ou dimensão divergente) para que operadores
// descubram o que está faltando no índice sem ler logs.
type Quarantine struct {
	write  *sql.DB
	logger *slog.Logger
}

func NewQuarantine(write *sql.DB, logger *slog.Logger) *Quarantine {
	return &Quarantine{write: write, logger: logger}
}

// Record substitui a entrada de cada error_id pulado. Falha aqui é
// apenas observabilidade degradada: nunca derruba o build.
func (q *Quarantine) Record(ctx context.Context, skips []vector.Skip) {
	for _, skip := range skips {
		_, err := q.write.ExecContext(ctx, `
			INSERT INTO embedding_quarantine (error_id, reason, detail, recorded_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(error_id) DO UPDATE SET
				reason = excluded.reason,
				detail = excluded.detail,
				recorded_at = excluded.recorded_at
		`, skip.ErrorID, skip.Reason, skip.Detail)
		if err != nil {
			q.logger.WarnContext(ctx, "failed to record quarantined embedding",
				slog.String("error_id", skip.ErrorID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Cleanup remove entradas antigas; registros que voltaram a entrar no
// índice saem naturalmente quando o retention expira.
func (q *Quarantine) Cleanup(ctx context.Context) error {
	res, err := q.write.ExecContext(ctx, `
		DELETE FROM embedding_quarantine
		WHERE recorded_at < datetime('now', ?)
	`, fmt.Sprintf("-%d days", QuarantineRetentionDays))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		q.logger.InfoContext(ctx, "quarantine cleanup", slog.Int64("removed", n))
	}
	return nil
}
