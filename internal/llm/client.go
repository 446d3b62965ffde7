package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// EmbeddingsClient é a superfície consumida pelo resto do serviço.
// Tanto Client quanto TracedClient a implementam.
type EmbeddingsClient interface {
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
}

type Client struct {
	baseURL        string
	apiKey         string
	model          string
	httpClient     *http.Client
	defaultHeaders map[string]string
	timeout        time.Duration
	maxRetries     int
	retryWaitMin   time.Duration
	retryWaitMax   time.Duration
}

func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:      "http://localhost:8001",
		httpClient:   http.DefaultClient,
		timeout:      60 * time.Second,
		maxRetries:   3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Cópia própria: ajustar o timeout não pode mutar um client
	// compartilhado (http.DefaultClient por padrão).
	httpClient := *c.httpClient
	if c.timeout > 0 {
		httpClient.Timeout = c.timeout
	}
	c.httpClient = &httpClient

	return c, nil
}

func (c *Client) buildURL(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.buildURL(path)

	var bodyData []byte
	if body != nil {
		var err error
		bodyData, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}

	return req, nil
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// doRequestWithRetry refaz a chamada em falhas transientes (transporte,
// 429, 5xx) com backoff exponencial e jitter. Respostas definitivas
// (2xx, 4xx exceto 429/408) saem na primeira tentativa.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateRetryAfter(attempt)):
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.doRequest(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = &APIError{
			StatusCode: resp.StatusCode,
			Message:    "max retries exceeded",
		}
	}

	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return true
	}
	return status >= 500 && status < 600
}

func (c *Client) calculateRetryAfter(attempt int) time.Duration {
	waitTime := c.retryWaitMin * time.Duration(1<<attempt)
	if waitTime > c.retryWaitMax {
		waitTime = c.retryWaitMax
	}

	// jitter de +/-10%
	jitter := time.Duration(float64(waitTime) * 0.1 * (rand.Float64()*2 - 1))

	return waitTime + jitter
}
