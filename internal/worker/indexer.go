// Package worker runs the background index lifecycle: the poll loop
// that watches the shared embedding store, builds snapshots and
// publishes them, plus the audit/quarantine bookkeeping around it.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/PauloHFS/alm-rag/internal/config"
	"github.com/PauloHFS/alm-rag/internal/logging"
	"github.com/PauloHFS/alm-rag/internal/metrics"
	"github.com/PauloHFS/alm-rag/internal/sse"
	"github.com/PauloHFS/alm-rag/internal/vector"
)

const (
	// Cadência dos logs de progresso enquanto o índice não carrega.
	progressLogInterval = 30 * time.Second

	TriggerPoll    = "poll"
	TriggerReload  = "reload"
	TriggerWebhook = "webhook"
)

// Indexer é o loop de controle do índice. Ele nunca conversa com o
// produtor: só observa a tabela compartilhada a cada tick, constrói
// um snapshot quando há dados e publica atomicamente no State.
//
// Regras que o loop garante:
//   - startup não bloqueia: o serviço aceita tráfego antes do primeiro
//     build terminar;
//   - falha de tick nunca derruba o processo nem a geração anterior;
//   - o deadline de espera inicial é SOFT: expira, vira warning, e o
//     loop continua esperando os dados aparecerem;
//   - reload explícito e tick regular nunca constroem ao mesmo tempo.
type Indexer struct {
	store  *vector.Store
	state  *vector.State
	write  *sql.DB
	cfg    *config.Config
	logger *slog.Logger
	broker *sse.Broker

	quarantine *Quarantine

	// Serializa builds (tick regular x reload explícito).
	buildMu sync.Mutex
	wg      sync.WaitGroup

	// Fingerprint do último build publicado, para não reconstruir o
	// índice a cada tick quando nada mudou.
	lastCount int
	lastMaxID int64
}

func New(cfg *config.Config, store *vector.Store, state *vector.State, write *sql.DB, broker *sse.Broker, logger *slog.Logger) *Indexer {
	return &Indexer{
		store:      store,
		state:      state,
		write:      write,
		cfg:        cfg,
		logger:     logger,
		broker:     broker,
		quarantine: NewQuarantine(write, logger),
	}
}

// Start roda o loop de polling até o contexto ser cancelado. Deve ser
// chamado em uma goroutine própria; Wait() drena o build em andamento
// no shutdown.
func (ix *Indexer) Start(ctx context.Context) {
	ix.logger.Info("index poller started",
		slog.Duration("interval", ix.cfg.PollInterval),
		slog.Duration("max_wait", ix.cfg.MaxWait),
	)

	ticker := time.NewTicker(ix.cfg.PollInterval)
	defer ticker.Stop()

	startedAt := time.Now()
	lastProgress := startedAt

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("index poller stopping: waiting for in-flight build")
			return
		case <-ticker.C:
			ix.tick(ctx, startedAt, &lastProgress)
		}
	}
}

// Wait bloqueia até o build em andamento (se houver) terminar.
func (ix *Indexer) Wait() {
	ix.wg.Wait()
}

func (ix *Indexer) tick(ctx context.Context, startedAt time.Time, lastProgress *time.Time) {
	err := ix.buildOnce(ctx, TriggerPoll)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, errUnchanged):
		// Nada novo na tabela; silêncio.
	case errors.Is(err, vector.ErrNoVectors):
		ix.logProgress(startedAt, lastProgress)
	case ctx.Err() != nil:
		// Shutdown no meio do tick; o build incompleto é descartado.
	default:
		ix.logger.Error("index build tick failed",
			slog.String("error", err.Error()),
			slog.Bool("serving_previous", ix.state.Ready()),
		)
	}
}

// logProgress emite a cada 30s enquanto o índice ainda não existe;
// depois do soft deadline o nível sobe para Warn, mas o loop NUNCA
// desiste — ausência de dados não é fatal.
func (ix *Indexer) logProgress(startedAt time.Time, lastProgress *time.Time) {
	if ix.state.Ready() || time.Since(*lastProgress) < progressLogInterval {
		return
	}
	*lastProgress = time.Now()

	waiting := time.Since(startedAt).Round(time.Second)
	if waiting > ix.cfg.MaxWait {
		ix.logger.Warn("still no embeddings after soft deadline: continuing to poll",
			slog.Duration("waiting", waiting),
			slog.Duration("max_wait", ix.cfg.MaxWait),
		)
		return
	}
	ix.logger.Info("waiting for embeddings to appear",
		slog.Duration("waiting", waiting),
	)
}

// Reload dispara um build fora do intervalo regular. Usa o mesmo
// mutex do tick, então nunca roda em paralelo com um build do loop.
// Retorna o resultado DESTE build; uma falha mantém a geração
// anterior servindo.
func (ix *Indexer) Reload(ctx context.Context, trigger string) error {
	err := ix.buildOnce(ctx, trigger)
	if errors.Is(err, errUnchanged) {
		// Reload explícito reconstrói mesmo sem mudança detectada.
		return ix.rebuild(ctx, trigger)
	}
	return err
}

// errUnchanged sinaliza que o fingerprint da tabela não mudou desde o
// último build publicado.
var errUnchanged = errors.New("store unchanged since last build")

func (ix *Indexer) buildOnce(ctx context.Context, trigger string) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	var count int
	var maxID int64
	err := withRetry(ctx, 3, func() error {
		var e error
		count, maxID, e = ix.store.Fingerprint(ctx)
		return e
	})
	if err != nil {
		return fmt.Errorf("probe store: %w", err)
	}

	if count == 0 {
		return vector.ErrNoVectors
	}
	if ix.state.Ready() && count == ix.lastCount && maxID == ix.lastMaxID {
		return errUnchanged
	}

	if err := ix.buildAndPublish(ctx, trigger); err != nil {
		return err
	}
	ix.lastCount, ix.lastMaxID = count, maxID
	return nil
}

// rebuild força um build ignorando o fingerprint. Tabela vazia ainda
// cai em ErrNoVectors e nada é publicado.
func (ix *Indexer) rebuild(ctx context.Context, trigger string) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	if err := ix.buildAndPublish(ctx, trigger); err != nil {
		return err
	}
	if count, maxID, err := ix.store.Fingerprint(ctx); err == nil {
		ix.lastCount, ix.lastMaxID = count, maxID
	}
	return nil
}

// buildAndPublish é o corpo do build: carrega, constrói, publica.
// Sempre chamado com buildMu em mãos. Um erro em qualquer etapa
// descarta o snapshot incompleto; o State nunca vê builds parciais.
func (ix *Indexer) buildAndPublish(ctx context.Context, trigger string) error {
	ix.wg.Add(1)
	defer ix.wg.Done()

	tracer := otel.Tracer("alm-rag/indexer")
	ctx, span := tracer.Start(ctx, "index.build")
	span.SetAttributes(attribute.String("trigger", trigger))
	defer span.End()

	start := time.Now()
	auditID := ix.auditStart(ctx, trigger)

	var records []vector.Record
	var skips []vector.Skip
	err := withRetry(ctx, 3, func() error {
		var e error
		records, skips, e = ix.store.Load(ctx)
		return e
	})
	if err != nil {
		err = fmt.Errorf("load records: %w", err)
		ix.finishBuild(ctx, auditID, "failed", nil, err, trigger, start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return err
	}

	snap, err := vector.BuildSnapshot(records, ix.cfg.EmbeddingDim)
	if err != nil {
		status := "failed"
		if errors.Is(err, vector.ErrNoVectors) {
			status = "empty"
		}
		ix.finishBuild(ctx, auditID, status, nil, err, trigger, start)
		span.RecordError(err)
		return err
	}
	snap.Skips = append(snap.Skips, skips...)

	ix.state.Publish(snap)

	duration := time.Since(start)
	ix.finishBuild(ctx, auditID, "published", snap, nil, trigger, start)
	ix.quarantine.Record(ctx, snap.Skips)
	if err := ix.quarantine.Cleanup(ctx); err != nil {
		ix.logger.WarnContext(ctx, "quarantine cleanup failed", slog.String("error", err.Error()))
	}

	metrics.IndexSize.Set(float64(snap.Size()))
	metrics.IndexGeneration.Set(float64(snap.Generation))
	for _, skip := range snap.Skips {
		metrics.IndexVectorsDropped.WithLabelValues(skip.Reason).Inc()
	}

	span.SetAttributes(
		attribute.Int("index.size", snap.Size()),
		attribute.Int64("index.generation", int64(snap.Generation)),
		attribute.Int("index.dropped", len(snap.Skips)),
	)

	event := logging.EventFromContext(ctx)
	attrs := []slog.Attr{
		slog.String("trigger", trigger),
		slog.Uint64("generation", snap.Generation),
		slog.Int("size", snap.Size()),
		slog.Int("dim", snap.Dim),
		slog.Int("dropped", len(snap.Skips)),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if event != nil {
		event.Add(attrs...)
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	ix.logger.InfoContext(ctx, "index generation published", args...)

	if ix.broker != nil {
		ix.broker.Publish(sse.TopicIndex, "index_published",
			fmt.Sprintf(`{"generation":%d,"size":%d}`, snap.Generation, snap.Size()))
	}

	return nil
}

// auditStart grava a linha 'running' em index_builds. Auditoria é
// melhor esforço: falha vira log, nunca falha de build.
func (ix *Indexer) auditStart(ctx context.Context, trigger string) int64 {
	res, err := ix.write.ExecContext(ctx, `
		INSERT INTO index_builds (triggered_by, status) VALUES (?, 'running')
	`, trigger)
	if err != nil {
		ix.logger.WarnContext(ctx, "failed to record build start", slog.String("error", err.Error()))
		return 0
	}
	id, _ := res.LastInsertId()
	return id
}

func (ix *Indexer) finishBuild(ctx context.Context, auditID int64, status string, snap *vector.Snapshot, buildErr error, trigger string, start time.Time) {
	metrics.IndexBuildsTotal.WithLabelValues(trigger, status).Inc()
	metrics.IndexBuildDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())

	if auditID == 0 {
		return
	}

	var errMsg any
	if buildErr != nil {
		errMsg = buildErr.Error()
	}
	var generation uint64
	var size, dropped, dim int
	if snap != nil {
		generation = snap.Generation
		size = snap.Size()
		dropped = len(snap.Skips)
		dim = snap.Dim
	}

	_, err := ix.write.ExecContext(ctx, `
		UPDATE index_builds
		SET generation = ?, status = ?, vectors = ?, dropped = ?, dim = ?,
		    error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, generation, status, size, dropped, dim, errMsg, auditID)
	if err != nil {
		ix.logger.WarnContext(ctx, "failed to record build result", slog.String("error", err.Error()))
	}
}
