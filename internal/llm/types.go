package llm

// EmbeddingRequest segue o formato OpenAI (POST /embeddings).
type EmbeddingRequest struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     *int   `json:"dimensions,omitempty"`
}

// EmbeddingResponse aceita as DUAS formas de resposta encontradas em
// backends reais: a forma OpenAI ({"data":[{"embedding":[...]}]}) e a
// forma TEI ({"embeddings":[[...]]}). Vectors() abstrai a diferença.
type EmbeddingResponse struct {
	Object     string      `json:"object,omitempty"`
	Data       []Embedding `json:"data,omitempty"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
	Model      string      `json:"model,omitempty"`
	Usage      Usage       `json:"usage,omitempty"`
}

type Embedding struct {
	Object    string    `json:"object,omitempty"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Vectors normaliza a resposta para [][]float32 independente da forma.
// Retorna nil se o backend não devolveu nenhum vetor.
func (r *EmbeddingResponse) Vectors() [][]float32 {
	if len(r.Data) > 0 {
		out := make([][]float32, len(r.Data))
		for i, d := range r.Data {
			out[i] = d.Embedding
		}
		return out
	}
	if len(r.Embeddings) > 0 {
		return r.Embeddings
	}
	return nil
}
