package provider

import (
	"context"
	"net/http"
)

const defaultLlamaBaseURL = "http://localhost:11434/v1"

// NewLlamaCaller builds a caller for a locally hosted Llama model exposed
// through an OpenAI-compatible endpoint (Ollama, LM Studio, vLLM). No API
// key is required; the endpoint must still be explicitly reachable.
func NewLlamaCaller(cfg Config) (*OpenAICaller, error) {
	cfg = cfg.withDefaults()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLlamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1:8b"
	}
	return &OpenAICaller{
		id:      "llama",
		apiKey:  cfg.APIKey, // optional for local endpoints
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}, nil
}

// Ping checks that an OpenAI-compatible endpoint is reachable. Used at
// startup to fail fast on misconfigured local deployments.
func (c *OpenAICaller) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return NewError(c.id, "create request: "+err.Error(), false, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(c.id, "endpoint unreachable: "+err.Error(), true, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return classifyHTTPStatus(c.id, resp.StatusCode)
	}
	return nil
}
