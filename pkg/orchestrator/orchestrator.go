// Package orchestrator runs the multi-model adjudication pipeline: it fans a
// case out to every registered provider in parallel, classifies the raw
// responses into decision categories, computes consensus, applies the safety
// engine, and seals the finished record with an audit digest.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/trustchain-labs/trustchain/pkg/audit"
	"github.com/trustchain-labs/trustchain/pkg/casestore"
	"github.com/trustchain-labs/trustchain/pkg/decision"
	"github.com/trustchain-labs/trustchain/pkg/observability"
	"github.com/trustchain-labs/trustchain/pkg/provider"
	"github.com/trustchain-labs/trustchain/pkg/safety"
)

var (
	ErrNoProviders        = errors.New("orchestrator: no providers configured")
	ErrAllProvidersFailed = errors.New("orchestrator: all providers failed")
	ErrInvalidRequest     = errors.New("orchestrator: invalid request")
)

// defaultConsensusThreshold is the minimum agreement level below which a
// round is routed to human review even when the safety engine is satisfied.
const defaultConsensusThreshold = 0.66

// Provider is the adapter surface the orchestrator fans out to.
// *provider.Adapter satisfies it.
type Provider interface {
	ID() string
	Model() string
	Generate(ctx context.Context, prompt, systemContext string) *provider.Result
	Health() provider.Health
}

// Request describes one case to adjudicate.
type Request struct {
	CaseID        string                 `json:"case_id" yaml:"case_id"`
	DecisionType  string                 `json:"decision_type" yaml:"decision_type"`
	InputFields   map[string]interface{} `json:"input_fields" yaml:"input_fields"`
	PolicyContext string                 `json:"policy_context,omitempty" yaml:"policy_context,omitempty"`
}

func (r Request) validate() error {
	if r.CaseID == "" {
		return fmt.Errorf("%w: case_id is required", ErrInvalidRequest)
	}
	if r.DecisionType == "" {
		return fmt.Errorf("%w: decision_type is required", ErrInvalidRequest)
	}
	return nil
}

// Orchestrator coordinates decision rounds across a fixed provider set.
// Safe for concurrent use; per-round state lives on the stack.
type Orchestrator struct {
	providers []Provider
	safety    *safety.Engine
	threshold float64
	logger    *slog.Logger

	trail     *audit.Trail
	store     casestore.Store
	telemetry *observability.Provider
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithConsensusThreshold overrides the minimum agreement level for automatic
// completion.
func WithConsensusThreshold(threshold float64) Option {
	return func(o *Orchestrator) { o.threshold = threshold }
}

// WithSafetyOptions configures the safety engine's thresholds.
func WithSafetyOptions(opts safety.Options) Option {
	return func(o *Orchestrator) { o.safety = safety.NewEngine(opts) }
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTrail records lifecycle events to the given audit trail.
func WithTrail(t *audit.Trail) Option {
	return func(o *Orchestrator) { o.trail = t }
}

// WithStore persists finished records to the given store.
func WithStore(s casestore.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithTelemetry instruments decision rounds with traces and metrics.
func WithTelemetry(p *observability.Provider) Option {
	return func(o *Orchestrator) { o.telemetry = p }
}

// New builds an orchestrator over the given providers.
func New(providers []Provider, opts ...Option) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	o := &Orchestrator{
		providers: providers,
		safety:    safety.NewEngine(safety.DefaultOptions()),
		threshold: defaultConsensusThreshold,
		logger:    slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Decide runs one full adjudication round. Individual provider failures are
// tolerated; the round fails only when every provider fails, in which case
// the returned record carries the failed status and the error is
// ErrAllProvidersFailed. The record is always stamped with its audit digest
// before being returned or persisted.
func (o *Orchestrator) Decide(ctx context.Context, req Request) (*decision.Record, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var finish func(error)
	if o.telemetry != nil {
		ctx, finish = o.telemetry.TrackDecision(ctx,
			attribute.String("decision_type", req.DecisionType),
		)
	}

	rec := &decision.Record{
		ID:            uuid.New().String(),
		CaseID:        req.CaseID,
		DecisionType:  req.DecisionType,
		InputFields:   req.InputFields,
		PolicyContext: req.PolicyContext,
		Status:        decision.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	o.record(audit.EventDecisionRequested, req.CaseID, map[string]interface{}{
		"decision_id":   rec.ID,
		"decision_type": req.DecisionType,
	})

	o.logger.InfoContext(ctx, "decision round started",
		"decision_id", rec.ID, "case_id", req.CaseID,
		"decision_type", req.DecisionType, "providers", len(o.providers))

	rec.Status = decision.StatusInProgress
	prompt := BuildPrompt(req.CaseID, req.DecisionType, req.InputFields)
	results := o.fanOut(ctx, prompt, req.PolicyContext)

	for _, res := range results {
		if res.Failed() {
			o.logger.WarnContext(ctx, "provider abstained",
				"decision_id", rec.ID, "provider", res.Provider, "error", res.Err)
			o.record(audit.EventProviderFailure, req.CaseID, map[string]interface{}{
				"decision_id": rec.ID,
				"provider":    res.Provider,
				"error":       res.Err,
			})
			continue
		}
		md := toModelDecision(res)
		rec.Decisions = append(rec.Decisions, md)
		o.record(audit.EventProviderResponse, req.CaseID, map[string]interface{}{
			"decision_id": rec.ID,
			"provider":    md.Provider,
			"outcome":     string(md.Outcome),
			"confidence":  md.Confidence,
		})
	}

	if len(rec.Decisions) == 0 {
		return o.finishRound(ctx, rec, decision.StatusFailed, ErrAllProvidersFailed, finish)
	}

	cons := analyzeConsensus(rec.Decisions)
	rec.Consensus = cons
	rec.Final = cons.Majority
	o.record(audit.EventConsensusReached, req.CaseID, map[string]interface{}{
		"decision_id":     rec.ID,
		"majority":        string(cons.Majority),
		"agreement_level": cons.AgreementLevel,
	})

	assessment := o.safety.Assess(rec.Decisions, *cons, req.DecisionType, req.InputFields)
	rec.Safety = &assessment
	o.record(audit.EventSafetyAssessed, req.CaseID, map[string]interface{}{
		"decision_id":      rec.ID,
		"bias_detected":    assessment.BiasDetected,
		"mandatory_review": assessment.MandatoryReview,
	})

	status := decision.StatusCompleted
	if assessment.MandatoryReview || cons.AgreementLevel < o.threshold {
		status = decision.StatusRequiresReview
	}

	return o.finishRound(ctx, rec, status, nil, finish)
}

// fanOut queries every provider concurrently and returns one result per
// provider in registration order. A panicking provider is converted into an
// error outcome rather than taking the round down. No cross-provider
// cancellation: a slow provider never invalidates a finished sibling.
func (o *Orchestrator) fanOut(ctx context.Context, prompt, systemContext string) []*provider.Result {
	results := make([]*provider.Result, len(o.providers))

	var wg sync.WaitGroup
	for i, p := range o.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.logger.ErrorContext(ctx, "provider panicked",
						"provider", p.ID(), "panic", r)
					results[i] = &provider.Result{
						Provider:  p.ID(),
						Model:     p.Model(),
						Timestamp: time.Now().UTC(),
						Err:       fmt.Sprintf("provider panicked: %v", r),
					}
				}
			}()
			res := p.Generate(ctx, prompt, systemContext)
			if res == nil {
				// Adapters never return nil, but a custom Provider might.
				res = &provider.Result{
					Provider:  p.ID(),
					Model:     p.Model(),
					Timestamp: time.Now().UTC(),
					Err:       "provider returned no result",
				}
			}
			results[i] = res
		}(i, p)
	}
	wg.Wait()

	return results
}

// finishRound seals the record: terminal status, completion time, audit
// digest, trail event, and persistence.
func (o *Orchestrator) finishRound(ctx context.Context, rec *decision.Record, status decision.Status, roundErr error, finish func(error)) (*decision.Record, error) {
	rec.Status = status
	rec.CompletedAt = time.Now().UTC()

	if err := rec.StampDigest(); err != nil {
		// Stamping only fails on an unserializable payload; the round still
		// terminates, but without tamper evidence.
		o.logger.ErrorContext(ctx, "failed to stamp audit digest",
			"decision_id", rec.ID, "error", err)
	}

	event := audit.EventDecisionCompleted
	if status == decision.StatusFailed {
		event = audit.EventDecisionFailed
	}
	o.record(event, rec.CaseID, map[string]interface{}{
		"decision_id":  rec.ID,
		"status":       string(status),
		"final":        string(rec.Final),
		"audit_digest": rec.AuditDigest,
	})

	if o.store != nil {
		if err := o.store.Put(ctx, rec); err != nil {
			o.logger.ErrorContext(ctx, "failed to persist decision record",
				"decision_id", rec.ID, "error", err)
		}
	}

	o.logger.InfoContext(ctx, "decision round finished",
		"decision_id", rec.ID, "status", string(status), "final", string(rec.Final))

	if finish != nil {
		finish(roundErr)
	}
	if roundErr != nil {
		return rec, roundErr
	}
	return rec, nil
}

// record appends a trail event, if a trail is configured.
func (o *Orchestrator) record(event audit.EventType, caseID string, payload map[string]interface{}) {
	if o.trail == nil {
		return
	}
	if _, err := o.trail.Record(event, caseID, payload); err != nil {
		o.logger.Error("failed to record audit event", "event", string(event), "error", err)
	}
}

// ProviderHealth reports the health snapshot of every registered provider.
func (o *Orchestrator) ProviderHealth() []provider.Health {
	out := make([]provider.Health, 0, len(o.providers))
	for _, p := range o.providers {
		out = append(out, p.Health())
	}
	return out
}
