package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of a failed response is kept in an APIError.
const maxErrorBody = 4 << 10

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data []embedItem `json:"data"`
}

// apiErrorBody is the OpenAI-style error envelope: {"error":{"message","type"}}.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// APIError is a non-200 answer from the embeddings endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("embeddings endpoint returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("embeddings endpoint returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Message = parsed.Error.Message
		apiErr.Type = parsed.Error.Type
		return apiErr
	}
	apiErr.Message = string(bytes.TrimSpace(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// Client calls an OpenAI-compatible embeddings endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Client allowing at most ratePerSec requests per second.
// A non-positive rate disables limiting.
func NewClient(endpoint, apiKey, model string, ratePerSec float64) *Client {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// EmbedTexts returns one vector per input text, in input order.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	payload, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encode embeddings request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embeddings endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(resp.StatusCode, body)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	return orderVectors(decoded.Data, len(texts))
}

// orderVectors places each item at its reported index. Every input must be
// answered exactly once.
func orderVectors(items []embedItem, n int) ([][]float32, error) {
	if len(items) != n {
		return nil, fmt.Errorf("embeddings endpoint returned %d vectors for %d inputs", len(items), n)
	}
	vectors := make([][]float32, n)
	for _, it := range items {
		if it.Index < 0 || it.Index >= n || vectors[it.Index] != nil {
			return nil, fmt.Errorf("embeddings endpoint returned bad index %d", it.Index)
		}
		vectors[it.Index] = it.Embedding
	}
	return vectors, nil
}
