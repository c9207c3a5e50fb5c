// Package openai provides a minimal HTTP client for OpenAI's embeddings API.
// Only embeddings are used here; text generation goes through Anthropic.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const embeddingsURL = "https://api.openai.com/v1/embeddings"

type Embedder struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewEmbedder creates an embeddings client. text-embedding-3-small (1536d)
// is the expected model; the dimension is whatever the API returns.
func NewEmbedder(apiKey, model string) *Embedder {
	return &Embedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: embeddingsURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (e *Embedder) SetTestTransport(url string) {
	e.baseURL = url
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }

// Embed returns the embedding vector for a single text. Transient failures
// are retried with exponential backoff for up to 20 seconds.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var vector []float64
	operation := func() error {
		vector, err = e.doRequest(ctx, body)
		if err == nil {
			return nil
		}
		if _, ok := err.(retryableError); ok {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(20*time.Second)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return vector, nil
}

func (e *Embedder) doRequest(ctx context.Context, body []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, retryableError{fmt.Errorf("api call: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retryableError{fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, retryableError{apiErr}
		}
		return nil, apiErr
	}

	var apiResp embedResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("api error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	return apiResp.Data[0].Embedding, nil
}
