package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/PauloHFS/alm-rag/internal/db"
)

// Store lê a tabela rag_embeddings, que é populada por um job de
// ingestão independente. Este serviço nunca faz handshake com o
// produtor: só observa o que existe no banco a cada carga.
type Store struct {
	read   *sql.DB
	logger *slog.Logger
}

func NewStore(read *sql.DB, logger *slog.Logger) *Store {
	return &Store{read: read, logger: logger}
}

// Count é a sondagem barata usada pelo loop de polling antes de pagar
// o custo de um Load completo.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_embeddings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Fingerprint resume o estado da tabela (total de linhas + maior id)
// para detectar mudanças entre ticks sem reler tudo.
func (s *Store) Fingerprint(ctx context.Context) (count int, maxID int64, err error) {
	err = s.read.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(id), 0) FROM rag_embeddings`,
	).Scan(&count, &maxID)
	if err != nil {
		return 0, 0, fmt.Errorf("fingerprint embeddings: %w", err)
	}
	return count, maxID, nil
}

// Load lê um snapshot completo da tabela. Responsabilidades do Store
// (não do builder):
//   - deduplicar por error_id, vencendo a linha de maior id
//     (reingestões inserem linha nova em vez de sobrescrever);
//   - decodificar o vetor de cada linha (BLOB float32 ou texto JSON);
//   - pular com warning linhas com vetor malformado ou cujo tamanho
//     decodificado diverge da dimensão declarada — nunca abortar o
//     lote inteiro por causa de uma linha.
//
// Os registros voltam ordenados por id da linha vencedora, o que dá
// uma ordem de slots estável entre builds do mesmo conteúdo.
func (s *Store) Load(ctx context.Context) ([]Record, []Skip, error) {
	rows, err := s.read.QueryContext(ctx, `
		SELECT id, error_id, embedding, error_title, error_metadata,
		       model_name, embedding_dim, updated_at
		FROM rag_embeddings
		ORDER BY id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	winners := make(map[string]Record)
	var skips []Skip

	for rows.Next() {
		var (
			rec          Record
			raw          []byte
			metadataJSON string
		)
		if err := rows.Scan(&rec.RowID, &rec.ErrorID, &raw, &rec.Title,
			&metadataJSON, &rec.ModelName, &rec.Dim, &rec.UpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan embedding row: %w", err)
		}

		vec, err := DecodeVector(raw)
		if err == nil && rec.Dim > 0 && len(vec) != rec.Dim {
			err = fmt.Errorf("%w: decoded %d values, declared dim %d", ErrMalformedVector, len(vec), rec.Dim)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "skipping embedding row",
				slog.Int64("row_id", rec.RowID),
				slog.String("error_id", rec.ErrorID),
				slog.String("error", err.Error()),
			)
			if errors.Is(err, ErrMalformedVector) {
				skips = append(skips, Skip{ErrorID: rec.ErrorID, Reason: SkipReasonMalformed, Detail: err.Error()})
			}
			continue
		}
		rec.Vector = vec

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
				s.logger.WarnContext(ctx, "embedding row has invalid metadata json",
					slog.Int64("row_id", rec.RowID),
					slog.String("error_id", rec.ErrorID),
				)
				rec.Metadata = nil
			}
		}

		// ORDER BY id garante que a última atribuição é a de maior id.
		winners[rec.ErrorID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	records := make([]Record, 0, len(winners))
	for _, rec := range winners {
		records = append(records, rec)
	}
	sort.Slice(records, func(a, b int) bool { return records[a].RowID < records[b].RowID })

	return records, skips, nil
}

// RecordMeta é a visão de operador de um registro, sem o vetor.
type RecordMeta struct {
	RowID     int64     `json:"id"`
	ErrorID   string    `json:"error_id"`
	Title     string    `json:"error_title"`
	ModelName string    `json:"model_name"`
	Dim       int       `json:"embedding_dim"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRecords pagina os registros armazenados (metadados apenas),
// para inspeção via GET /rag/records.
func (s *Store) ListRecords(ctx context.Context, params db.PagingParams) (db.PagedResult[RecordMeta], error) {
	var result db.PagedResult[RecordMeta]

	var total int
	if err := s.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_embeddings`).Scan(&total); err != nil {
		return result, fmt.Errorf("count records: %w", err)
	}

	rows, err := s.read.QueryContext(ctx, `
		SELECT id, error_id, error_title, model_name, embedding_dim, updated_at
		FROM rag_embeddings
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, params.Limit(), params.Offset())
	if err != nil {
		return result, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	items := make([]RecordMeta, 0, params.Limit())
	for rows.Next() {
		var m RecordMeta
		if err := rows.Scan(&m.RowID, &m.ErrorID, &m.Title, &m.ModelName, &m.Dim, &m.UpdatedAt); err != nil {
			return result, fmt.Errorf("scan record: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate records: %w", err)
	}

	result.Items = items
	result.TotalItems = total
	result.CurrentPage = max(params.Page, 1)
	result.PerPage = params.Limit()
	return result, nil
}
