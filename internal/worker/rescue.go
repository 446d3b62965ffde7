package worker

import (
	"context"
	"log/slog"
)

// RescueZombies marca como 'aborted' builds que ficaram presos em
// 'running' por um crash ou restart no meio de um build. O índice em
// si não precisa de resgate: ele vive só em memória e o loop
// reconstrói do zero de qualquer forma.
func (ix *Indexer) RescueZombies(ctx context.Context) error {
	res, err := ix.write.ExecContext(ctx, `
		UPDATE index_builds
		SET status = 'aborted', finished_at = CURRENT_TIMESTAMP
		WHERE status = 'running'
	`)
	if err != nil {
		ix.logger.Error("zombie hunter: failed to rescue stuck builds", slog.String("error", err.Error()))
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		ix.logger.Info("zombie hunter: aborted stuck builds", slog.Int64("count", n))
	}
	return nil
}
