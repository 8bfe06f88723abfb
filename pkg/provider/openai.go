package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAICaller talks to the OpenAI chat completions API.
type OpenAICaller struct {
	id      string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAICaller validates cfg and builds an OpenAI caller. A missing API
// key is a fatal configuration error.
func NewOpenAICaller(cfg Config) (*OpenAICaller, error) {
	if cfg.APIKey == "" {
		return nil, NewError("openai", "API key is required", false, nil)
	}
	cfg = cfg.withDefaults()
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAICaller{
		id:      "openai",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}, nil
}

func (c *OpenAICaller) ID() string    { return c.id }
func (c *OpenAICaller) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// Call performs one bounded chat-completion request. Errors are classified:
// rate limits, 5xx, and transport failures are recoverable; auth and
// malformed-request failures are fatal.
func (c *OpenAICaller) Call(ctx context.Context, prompt, systemContext string, opts CallOptions) (*Result, error) {
	msgs := make([]chatMessage, 0, 2)
	if systemContext != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemContext})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewError(c.id, fmt.Sprintf("marshal request: %v", err), false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, NewError(c.id, fmt.Sprintf("create request: %v", err), false, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, NewError(c.id, fmt.Sprintf("decode response: %v", err), true, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, NewError(c.id, "empty choices in response", true, nil)
	}

	choice := chatResp.Choices[0]
	content := choice.Message.Content
	confidence := estimateConfidence(content,
		choice.FinishReason == "stop", choice.FinishReason == "length")

	return &Result{
		Provider:   c.id,
		Model:      c.model,
		Content:    content,
		Reasoning:  extractReasoning(content),
		Confidence: &confidence,
		Timestamp:  time.Now().UTC(),
		TokensUsed: chatResp.Usage.TotalTokens,
	}, nil
}

// classifyHTTPStatus maps an HTTP error status to the retry taxonomy.
func classifyHTTPStatus(providerID string, status int) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return NewError(providerID, "rate limit exceeded", true, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(providerID, fmt.Sprintf("invalid credentials (status %d)", status), false, nil)
	case status >= 500:
		return NewError(providerID, fmt.Sprintf("server error (status %d)", status), true, nil)
	default:
		return NewError(providerID, fmt.Sprintf("malformed request (status %d)", status), false, nil)
	}
}
