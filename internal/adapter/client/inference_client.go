package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is echoed into errors
const maxErrorBody = 4 << 10

// PredictRequest represents a request to the inference server
type PredictRequest struct {
	Inputs   string `json:"inputs"`
	Truncate bool   `json:"truncate"`
}

// Prediction represents a single label/score pair
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// InfoResponse describes the model served by the inference server
type InfoResponse struct {
	ModelID  string `json:"model_id"`
	ModelSHA string `json:"model_sha"`
	Version  string `json:"version"`
}

// InferenceClient is an HTTP client for a text-embeddings-inference
// compatible sequence classification server
type InferenceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewInferenceClient creates a new inference server client.
// token may be empty for unauthenticated servers.
func NewInferenceClient(baseURL, token string, timeout time.Duration) *InferenceClient {
	return &InferenceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict sends a single text for classification and returns every
// label/score pair reported by the server
func (c *InferenceClient) Predict(ctx context.Context, text, requestID string) ([]Prediction, error) {
	body, err := json.Marshal(PredictRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	var result []Prediction
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// Info returns the model identity reported by the server
func (c *InferenceClient) Info(ctx context.Context) (*InfoResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/info", http.NoBody)
	if err != nil {
		return nil, err
	}

	var result InfoResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Health checks the inference server health
func (c *InferenceClient) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server not healthy: status %d", resp.StatusCode)
	}

	return nil
}

func (c *InferenceClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *InferenceClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil || len(respBody) == 0 {
			return fmt.Errorf("inference server returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
