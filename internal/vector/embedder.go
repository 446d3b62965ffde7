package vector

import (
	"context"
	"errors"

	"github.com/PauloHFS/alm-rag/internal/llm"
)

var ErrNoEmbedding = errors.New("no embedding returned")

// Embedder adapta o cliente de embeddings para a superfície mínima
// que o motor de consulta precisa: texto entra, []float32 sai.
type Embedder struct {
	client llm.EmbeddingsClient
	model  string
}

func NewEmbedder(client llm.EmbeddingsClient, model string) *Embedder {
	return &Embedder{
		client: client,
		model:  model,
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, llm.EmbeddingRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	vecs := resp.Vectors()
	if len(vecs) == 0 {
		return nil, ErrNoEmbedding
	}

	return vecs[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embed(ctx, llm.EmbeddingRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	vecs := resp.Vectors()
	if len(vecs) == 0 {
		return nil, ErrNoEmbedding
	}

	return vecs, nil
}
