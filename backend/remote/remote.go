// Package remote adapts an HTTP model-server sidecar to the backend
// contract. The sidecar receives the prepared window as JSON and answers
// with one probability per class; it is expected to be stateless between
// calls, matching the backend contract.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Backend calls a model server over HTTP POST.
type Backend struct {
	baseURL  string
	inputLen int
	client   *http.Client
}

type inferRequest struct {
	Window []float32 `json:"window"`
}

type inferResponse struct {
	Probabilities []float32 `json:"probabilities"`
}

// New returns a remote backend for the model server at baseURL (e.g.
// "http://localhost:9090"). Inference POSTs to baseURL + "/infer".
func New(baseURL string, inputLen int) *Backend {
	return &Backend{
		baseURL:  baseURL,
		inputLen: inputLen,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// InputLen implements backend.Backend.
func (b *Backend) InputLen() int {
	return b.inputLen
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// Infer implements backend.Backend.
func (b *Backend) Infer(ctx context.Context, window []float32) ([]float32, error) {
	body, err := json.Marshal(inferRequest{Window: window})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/infer", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model server %s: %s", resp.Status, string(msg))
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("model server decode: %w", err)
	}
	return out.Probabilities, nil
}
