// Package rag implements the query engine: embed the question, search
// the published index generation and shape the scored results.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/PauloHFS/alm-rag/internal/metrics"
	"github.com/PauloHFS/alm-rag/internal/vector"
)

// ErrIndexNotReady indica que nenhuma geração do índice foi publicada
// ainda. O chamador HTTP traduz para 503.
var ErrIndexNotReady = errors.New("index not ready: no generation published yet")

const (
	// Prefixo de tarefa exigido pelo modelo nomic para consultas.
	queryPrefix = "search_query: "

	DefaultTopK      = 10
	DefaultTopN      = 3
	DefaultThreshold = 0.6

	MaxTopK = 100
	MaxTopN = 20

	embeddingCacheSize = 512
)

// Embedder é a dependência mínima do motor: texto → vetor.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Params são os parâmetros de uma consulta já validados pela camada
// HTTP. Zero values recebem os defaults em applyDefaults. Threshold é
// ponteiro: nil recebe o default, 0 explícito desliga o corte.
type Params struct {
	Query     string
	TopK      int
	TopN      int
	Threshold *float64
}

func (p *Params) applyDefaults() {
	if p.TopK == 0 {
		p.TopK = DefaultTopK
	}
	if p.TopN == 0 {
		p.TopN = DefaultTopN
	}
	if p.Threshold == nil {
		d := DefaultThreshold
		p.Threshold = &d
	}
}

// ScoredResult é um item da resposta, já desnormalizado com os campos
// de proveniência extraídos do metadata do registro.
type ScoredResult struct {
	ErrorID         string   `json:"error_id"`
	ErrorTitle      string   `json:"error_title"`
	SimilarityScore float64  `json:"similarity_score"`
	SourceFile      string   `json:"source_file,omitempty"`
	Page            int      `json:"page,omitempty"`
	Sections        []string `json:"sections,omitempty"`
}

type ResultMetadata struct {
	NumResults          int     `json:"num_results"`
	SearchTimeMs        float64 `json:"search_time_ms"`
	TopK                int     `json:"top_k"`
	TopN                int     `json:"top_n"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type Result struct {
	Query    string         `json:"query"`
	Results  []ScoredResult `json:"results"`
	Metadata ResultMetadata `json:"metadata"`
}

// Engine executa a pipeline de consulta sobre a geração publicada. O
// cache LRU evita re-embeddar consultas repetidas; a chave inclui o
// modelo para o cache sobreviver a trocas de modelo sem servir lixo.
type Engine struct {
	state    *vector.State
	embedder Embedder
	model    string
	cache    *lru.Cache[string, []float32]
}

func NewEngine(state *vector.State, embedder Embedder, model string) (*Engine, error) {
	cache, err := lru.New[string, []float32](embeddingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Engine{
		state:    state,
		embedder: embedder,
		model:    model,
		cache:    cache,
	}, nil
}

// Query embedda a pergunta, busca top_k candidatos na geração corrente,
// filtra pelo threshold e devolve até top_n resultados. A geração é
// capturada uma única vez no início: um publish no meio da consulta não
// mistura gerações.
func (e *Engine) Query(ctx context.Context, params Params) (*Result, error) {
	params.applyDefaults()
	threshold := *params.Threshold

	tracer := otel.Tracer("alm-rag/engine")
	ctx, span := tracer.Start(ctx, "rag.query")
	defer span.End()

	start := time.Now()

	snap := e.state.Current()
	if snap == nil {
		metrics.RagQueriesTotal.WithLabelValues("not_ready").Inc()
		span.SetStatus(codes.Error, "index not ready")
		return nil, ErrIndexNotReady
	}
	span.SetAttributes(
		attribute.Int64("index.generation", int64(snap.Generation)),
		attribute.Int("index.size", snap.Size()),
	)

	query, err := e.embedQuery(ctx, params.Query)
	if err != nil {
		metrics.RagQueriesTotal.WithLabelValues("embed_error").Inc()
		metrics.RagQueryDuration.WithLabelValues("embed_error").Observe(time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if len(query) != snap.Dim {
		metrics.RagQueriesTotal.WithLabelValues("dim_mismatch").Inc()
		err := fmt.Errorf("query embedding dim %d does not match index dim %d", len(query), snap.Dim)
		span.RecordError(err)
		return nil, err
	}

	hits, err := snap.Index.Search(query, params.TopK)
	if err != nil {
		metrics.RagQueriesTotal.WithLabelValues("search_error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]ScoredResult, 0, params.TopN)
	for _, hit := range hits {
		if float64(hit.Score) < threshold {
			// Hits vêm ordenados por score; daqui para frente só piora.
			break
		}
		if len(results) == params.TopN {
			break
		}
		results = append(results, shapeResult(snap.Records[hit.Slot], hit.Score))
	}

	elapsed := time.Since(start)
	metrics.RagQueriesTotal.WithLabelValues("ok").Inc()
	metrics.RagQueryDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("results", len(results)))

	return &Result{
		Query:   params.Query,
		Results: results,
		Metadata: ResultMetadata{
			NumResults:          len(results),
			SearchTimeMs:        float64(elapsed.Nanoseconds()) / 1e6,
			TopK:                params.TopK,
			TopN:                params.TopN,
			SimilarityThreshold: threshold,
		},
	}, nil
}

// embedQuery resolve o vetor da consulta, via cache quando possível. O
// vetor cacheado já está normalizado.
func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	key := e.model + "\x00" + text
	if vec, ok := e.cache.Get(key); ok {
		metrics.EmbeddingCacheHits.Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheMisses.Inc()

	vec, err := e.embedder.Embed(ctx, queryPrefix+text)
	if err != nil {
		return nil, err
	}
	vector.Normalize(vec)
	e.cache.Add(key, vec)
	return vec, nil
}

func shapeResult(rec vector.Record, score float32) ScoredResult {
	out := ScoredResult{
		ErrorID:         rec.ErrorID,
		ErrorTitle:      rec.Title,
		SimilarityScore: float64(score),
	}
	if rec.Metadata == nil {
		return out
	}
	if v, ok := rec.Metadata["source_file"].(string); ok {
		out.SourceFile = v
	}
	// JSON numbers decodificam como float64.
	if v, ok := rec.Metadata["page"].(float64); ok {
		out.Page = int(v)
	}
	if raw, ok := rec.Metadata["sections"].([]any); ok {
		for _, s := range raw {
			if str, ok := s.(string); ok {
				out.Sections = append(out.Sections, str)
			}
		}
	}
	return out
}
