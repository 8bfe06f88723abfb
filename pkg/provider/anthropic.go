package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicCaller talks to the Anthropic messages API.
type AnthropicCaller struct {
	id      string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewAnthropicCaller validates cfg and builds an Anthropic caller.
func NewAnthropicCaller(cfg Config) (*AnthropicCaller, error) {
	if cfg.APIKey == "" {
		return nil, NewError("anthropic", "API key is required", false, nil)
	}
	cfg = cfg.withDefaults()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-haiku-20240307"
	}
	return &AnthropicCaller{
		id:      "anthropic",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}, nil
}

func (c *AnthropicCaller) ID() string    { return c.id }
func (c *AnthropicCaller) Model() string { return c.model }

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Model      string `json:"model"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Call performs one bounded messages request against the Anthropic API.
func (c *AnthropicCaller) Call(ctx context.Context, prompt, systemContext string, opts CallOptions) (*Result, error) {
	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		System:      systemContext,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewError(c.id, fmt.Sprintf("marshal request: %v", err), false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, NewError(c.id, fmt.Sprintf("create request: %v", err), false, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError(c.id, "request timed out", true, err)
		}
		return nil, NewError(c.id, fmt.Sprintf("connection failed: %v", err), true, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(c.id, resp.StatusCode)
	}

	var msgResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return nil, NewError(c.id, fmt.Sprintf("decode response: %v", err), true, err)
	}

	// Responses may carry multiple content blocks; join the text ones.
	var parts []string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return nil, NewError(c.id, "no text content in response", true, nil)
	}
	content := strings.Join(parts, "\n")

	confidence := estimateConfidence(content,
		msgResp.StopReason == "end_turn", msgResp.StopReason == "max_tokens")

	return &Result{
		Provider:   c.id,
		Model:      c.model,
		Content:    content,
		Reasoning:  extractReasoning(content),
		Confidence: &confidence,
		Timestamp:  time.Now().UTC(),
		TokensUsed: msgResp.Usage.InputTokens + msgResp.Usage.OutputTokens,
	}, nil
}
