// Package provider wraps external text-generation services behind a uniform
// call contract with retry, backoff, per-attempt timeouts, and health
// accounting. Individual provider failures are absorbed here and surface as
// error outcomes so the orchestrator can treat them as abstentions.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the derived health state of an adapter.
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Config configures one provider adapter.
type Config struct {
	APIKey         string  `yaml:"api_key" json:"-"`
	BaseURL        string  `yaml:"base_url" json:"base_url,omitempty"`
	Model          string  `yaml:"model" json:"model"`
	MaxRetries     int     `yaml:"max_retries" json:"max_retries"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	// Temperature is a pointer so an explicit 0 (deterministic sampling)
	// is distinguishable from unset.
	Temperature *float64 `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens      int     `yaml:"max_tokens" json:"max_tokens"`
	// RateLimit is the sustained requests/second allowed against the
	// provider; zero disables client-side rate limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit,omitempty"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst,omitempty"`
}

// withDefaults fills zero-valued knobs with production defaults.
func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 60
	}
	if c.Temperature == nil {
		temp := 0.7
		c.Temperature = &temp
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2000
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}

// CallOptions are the per-call sampling parameters.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
}

// Result is the raw outcome of one provider call attempt. Immutable after
// creation. Err is set when the call terminally failed; such results carry
// no content and are excluded from voting.
type Result struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Content    string    `json:"content"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	LatencyMS  float64   `json:"latency_ms,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// Failed reports whether this result is an error outcome.
func (r *Result) Failed() bool { return r.Err != "" }

// Caller is the capability implemented per provider. A Caller performs a
// single bounded network call; retry and health tracking live in Adapter.
type Caller interface {
	ID() string
	Model() string
	Call(ctx context.Context, prompt, systemContext string, opts CallOptions) (*Result, error)
}

// Error classifies a provider failure as recoverable (worth retrying) or
// fatal (invalid credentials, malformed request).
type Error struct {
	Provider    string
	Message     string
	Recoverable bool
	cause       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified provider error.
func NewError(providerID, message string, recoverable bool, cause error) *Error {
	return &Error{Provider: providerID, Message: message, Recoverable: recoverable, cause: cause}
}

// IsRecoverable reports whether retrying err might succeed. Timeouts and
// unclassified errors count as recoverable; only an explicit fatal
// classification stops the retry loop.
func IsRecoverable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Recoverable
	}
	return true
}
