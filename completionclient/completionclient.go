// Package completionclient is the narrow HTTP collaborator the switcher and
// detection engine use to talk to a running llama-server: a liveness check
// and a single completions call, nothing more.
package completionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"llamahost/errs"
)

// Timings mirrors the subset of llama-server's /completion response this
// module depends on.
type Timings struct {
	PromptPerSecond    float64 `json:"prompt_per_second"`
	PredictedPerSecond float64 `json:"predicted_per_second"`
}

// Client is the narrow interface the rest of this module programs against,
// so tests can substitute an httptest.Server-backed implementation.
type Client interface {
	Health(ctx context.Context) error
	Complete(ctx context.Context, prompt string, maxTokens int) (Timings, error)
}

// HTTPClient is the default net/http-based Client implementation, bound to
// a single server's base URL.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns an HTTPClient targeting baseURL (e.g. "http://localhost:8080"),
// using a client with the given timeout for every request it issues.
func New(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health issues GET /health and succeeds only on HTTP 200 with body
// {"status":"ok"}.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return errs.New("completionclient.Health", errs.ProtocolError, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errs.New("completionclient.Health", errs.Timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New("completionclient.Health", errs.ProtocolError, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errs.New("completionclient.Health", errs.ProtocolError, err)
	}
	if body.Status != "ok" {
		return errs.New("completionclient.Health", errs.ProtocolError, fmt.Errorf("status = %q, want ok", body.Status))
	}
	return nil
}

type completionRequest struct {
	Prompt   string `json:"prompt"`
	NPredict int    `json:"n_predict"`
}

type completionResponse struct {
	Timings Timings `json:"timings"`
}

// Complete issues POST /completion with {prompt, n_predict} and extracts
// the timings record. A missing timings block is a ProtocolError.
func (c *HTTPClient) Complete(ctx context.Context, prompt string, maxTokens int) (Timings, error) {
	payload, err := json.Marshal(completionRequest{Prompt: prompt, NPredict: maxTokens})
	if err != nil {
		return Timings{}, errs.New("completionclient.Complete", errs.ProtocolError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/completion", bytes.NewReader(payload))
	if err != nil {
		return Timings{}, errs.New("completionclient.Complete", errs.ProtocolError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Timings{}, errs.New("completionclient.Complete", errs.Timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Timings{}, errs.New("completionclient.Complete", errs.ProtocolError, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Timings{}, errs.New("completionclient.Complete", errs.ProtocolError, err)
	}
	if body.Timings.PromptPerSecond == 0 && body.Timings.PredictedPerSecond == 0 {
		return Timings{}, errs.New("completionclient.Complete", errs.ProtocolError, fmt.Errorf("response missing timings"))
	}
	return body.Timings, nil
}
