// Package llm provides an HTTP client for OpenAI-compatible embedding
// services.
//
// The client targets POST {base_url}/embeddings and understands both
// common response shapes:
//
//   - OpenAI: {"data":[{"embedding":[...]}]}
//   - TEI:    {"embeddings":[[...]]}
//
// # Quick Start
//
//	client, err := llm.NewClient(
//	    llm.WithBaseURL("http://localhost:8001"),
//	    llm.WithModel("nomic-ai/nomic-embed-text-v1.5"),
//	)
//
//	resp, err := client.Embed(ctx, llm.EmbeddingRequest{
//	    Input: "search_query: ansible unreachable host",
//	})
//	vecs := resp.Vectors()
//
// # With Metrics
//
//	traced := client.WithMetrics()
//	resp, err := traced.Embed(ctx, req)
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *Client) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	if req.Model == "" && c.model != "" {
		req.Model = c.model
	}

	if req.Model == "" {
		return nil, &APIError{Message: "model is required"}
	}

	if req.Input == nil {
		return nil, &APIError{Message: "input is required"}
	}

	if req.EncodingFormat == "" {
		req.EncodingFormat = "float"
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, "/embeddings", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read error response: %w", readErr)
		}
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	var embeddingResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if embeddingResp.Vectors() == nil {
		return nil, ErrNoEmbeddings
	}

	return &embeddingResp, nil
}
