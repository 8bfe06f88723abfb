package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// initialBackoff is the suspension before the second attempt; it doubles on
// each further retry.
const initialBackoff = time.Second

// Adapter wraps a Caller with retries, exponential backoff, per-attempt
// timeouts, optional rate limiting, and lifetime health counters. Counters
// use atomic updates so a single Adapter may serve concurrent decision
// rounds; it holds no other shared mutable state.
type Adapter struct {
	caller  Caller
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	requests atomic.Int64
	errors   atomic.Int64

	// sleep is injectable for tests; defaults to a context-aware timer.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithSleeper replaces the backoff sleep function (used by tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Adapter) { a.sleep = sleep }
}

// NewAdapter wraps caller with the retry and health policy from cfg.
func NewAdapter(caller Caller, cfg Config, opts ...Option) *Adapter {
	a := &Adapter{
		caller: caller,
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "provider", "provider_id", caller.ID()),
		sleep:  sleepCtx,
	}
	if a.cfg.RateLimit > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(a.cfg.RateLimit), a.cfg.RateBurst)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the wrapped provider's identifier.
func (a *Adapter) ID() string { return a.caller.ID() }

// Model returns the wrapped provider's model identifier.
func (a *Adapter) Model() string { return a.caller.Model() }

// Generate performs up to MaxRetries bounded call attempts with doubling
// backoff between them. Fatal errors stop retrying immediately. On
// exhaustion it returns an error outcome carrying the last error's message
// rather than an error value, so callers can treat the provider as having
// abstained.
func (a *Adapter) Generate(ctx context.Context, prompt, systemContext string) *Result {
	start := time.Now()
	opts := CallOptions{Temperature: *a.cfg.Temperature, MaxTokens: a.cfg.MaxTokens}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0 // deterministic, strictly increasing delays
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < a.cfg.MaxRetries; attempt++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		a.requests.Inc()

		callCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.TimeoutSeconds)*time.Second)
		res, err := a.caller.Call(callCtx, prompt, systemContext, opts)
		cancel()

		if err == nil {
			res.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)
			a.logger.InfoContext(ctx, "provider call succeeded",
				"attempt", attempt+1, "tokens", res.TokensUsed, "latency_ms", res.LatencyMS)
			return res
		}

		lastErr = err
		a.errors.Inc()
		a.logger.WarnContext(ctx, "provider call failed",
			"attempt", attempt+1, "max_retries", a.cfg.MaxRetries, "error", err)

		if !IsRecoverable(err) {
			a.logger.ErrorContext(ctx, "fatal provider error, skipping retries", "error", err)
			break
		}
		if attempt < a.cfg.MaxRetries-1 {
			if err := a.sleep(ctx, bo.NextBackOff()); err != nil {
				lastErr = err
				break
			}
		}
	}

	return &Result{
		Provider:  a.caller.ID(),
		Model:     a.caller.Model(),
		Timestamp: time.Now().UTC(),
		LatencyMS: float64(time.Since(start)) / float64(time.Millisecond),
		Err:       fmt.Sprintf("failed after %d attempts: %v", attempts, lastErr),
	}
}

// Health is the monitoring snapshot exposed per adapter.
type Health struct {
	Provider      string  `json:"provider"`
	Status        Status  `json:"status"`
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	ErrorRate     float64 `json:"error_rate"`
	HealthScore   float64 `json:"health_score"`
}

// Pinger is implemented by callers that can probe endpoint reachability
// without issuing a completion.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping probes the underlying endpoint when the caller supports it. Callers
// without a probe are assumed reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if p, ok := a.caller.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Health derives the adapter's health from its lifetime error rate:
// >0.5 unavailable, >0.2 degraded, otherwise healthy.
func (a *Adapter) Health() Health {
	requests := a.requests.Load()
	errs := a.errors.Load()

	var errorRate float64
	if requests > 0 {
		errorRate = float64(errs) / float64(requests)
	}

	status := StatusHealthy
	switch {
	case errorRate > 0.5:
		status = StatusUnavailable
	case errorRate > 0.2:
		status = StatusDegraded
	}

	score := 1 - errorRate
	if score < 0 {
		score = 0
	}

	return Health{
		Provider:      a.caller.ID(),
		Status:        status,
		TotalRequests: requests,
		TotalErrors:   errs,
		ErrorRate:     errorRate,
		HealthScore:   score,
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
