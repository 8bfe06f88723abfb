package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trustchain-labs/trustchain/pkg/audit"
	"github.com/trustchain-labs/trustchain/pkg/casestore"
	"github.com/trustchain-labs/trustchain/pkg/config"
	"github.com/trustchain-labs/trustchain/pkg/observability"
	"github.com/trustchain-labs/trustchain/pkg/orchestrator"
	"github.com/trustchain-labs/trustchain/pkg/provider"
)

// buildAdapters constructs one adapter per enabled profile provider, in
// profile order.
func buildAdapters(profile *config.Profile) ([]orchestrator.Provider, error) {
	registry := provider.NewRegistry()

	var adapters []orchestrator.Provider
	for i := range profile.Providers {
		p := &profile.Providers[i]
		if !p.IsEnabled() {
			continue
		}
		cfg := p.Resolve()
		caller, err := registry.Build(p.Name, cfg)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		adapters = append(adapters, provider.NewAdapter(caller, cfg))
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("profile enables no providers")
	}
	return adapters, nil
}

func runDecideCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("decide", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		casePath    string
		profilePath string
		dbPath      string
		jsonOutput  bool
	)
	envCfg := config.Load()
	cmd.StringVar(&casePath, "case", "", "Path to the case request YAML (REQUIRED)")
	cmd.StringVar(&profilePath, "profile", envCfg.ProfilePath, "Path to the adjudication profile YAML")
	cmd.StringVar(&dbPath, "db", envCfg.DatabasePath, "Path to the SQLite decision database")
	cmd.BoolVar(&jsonOutput, "json", true, "Output the decision record as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if casePath == "" {
		fmt.Fprintln(stderr, "Error: --case is required")
		cmd.Usage()
		return 2
	}

	data, err := os.ReadFile(casePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading case: %v\n", err)
		return 2
	}
	var req orchestrator.Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		fmt.Fprintf(stderr, "Error parsing case: %v\n", err)
		return 2
	}

	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading profile: %v\n", err)
		return 2
	}
	adapters, err := buildAdapters(profile)
	if err != nil {
		fmt.Fprintf(stderr, "Error building providers: %v\n", err)
		return 2
	}

	ctx := context.Background()

	store, err := casestore.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	telemetry, err := observability.New(ctx, &observability.Config{
		ServiceName:    "trustchain",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   envCfg.OTLPEndpoint,
		SampleRate:     1.0,
		Enabled:        envCfg.TelemetryEnabled,
		Insecure:       true,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing telemetry: %v\n", err)
		return 2
	}
	defer func() { _ = telemetry.Shutdown(ctx) }()

	opts := []orchestrator.Option{
		orchestrator.WithStore(store),
		orchestrator.WithTrail(audit.NewTrail()),
		orchestrator.WithTelemetry(telemetry),
		orchestrator.WithSafetyOptions(profile.SafetyOptions()),
	}
	if profile.Consensus.Threshold > 0 {
		opts = append(opts, orchestrator.WithConsensusThreshold(profile.Consensus.Threshold))
	}

	o, err := orchestrator.New(adapters, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	rec, decideErr := o.Decide(ctx, req)
	if rec == nil {
		fmt.Fprintf(stderr, "Decision failed: %v\n", decideErr)
		return 1
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Fprintln(stdout, string(out))
	} else {
		fmt.Fprintf(stdout, "Decision %s: %s (%s)\n", rec.ID, rec.Final, rec.Status)
	}

	if decideErr != nil {
		fmt.Fprintf(stderr, "Decision failed: %v\n", decideErr)
		return 1
	}
	return 0
}

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("health", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	envCfg := config.Load()
	var (
		profilePath string
		ping        bool
	)
	cmd.StringVar(&profilePath, "profile", envCfg.ProfilePath, "Path to the adjudication profile YAML")
	cmd.BoolVar(&ping, "ping", false, "Probe each provider endpoint for reachability")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading profile: %v\n", err)
		return 2
	}
	adapters, err := buildAdapters(profile)
	if err != nil {
		fmt.Fprintf(stderr, "Error building providers: %v\n", err)
		return 2
	}

	type healthReport struct {
		provider.Health
		Reachable *bool  `json:"reachable,omitempty"`
		PingError string `json:"ping_error,omitempty"`
	}

	snapshots := make([]healthReport, 0, len(adapters))
	for _, a := range adapters {
		report := healthReport{Health: a.Health()}
		if p, ok := a.(provider.Pinger); ok && ping {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := p.Ping(ctx)
			cancel()
			reachable := pingErr == nil
			report.Reachable = &reachable
			if pingErr != nil {
				report.PingError = pingErr.Error()
			}
		}
		snapshots = append(snapshots, report)
	}

	out, _ := json.MarshalIndent(snapshots, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}

func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	envCfg := config.Load()
	var (
		dbPath     string
		decisionID string
	)
	cmd.StringVar(&dbPath, "db", envCfg.DatabasePath, "Path to the SQLite decision database")
	cmd.StringVar(&decisionID, "id", "", "Decision ID to verify (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if decisionID == "" {
		fmt.Fprintln(stderr, "Error: --id is required")
		cmd.Usage()
		return 2
	}

	store, err := casestore.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening database: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Get(context.Background(), decisionID)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if !rec.VerifyDigest() {
		fmt.Fprintf(stderr, "Verification FAILED for %s: record altered after stamping\n", decisionID)
		return 1
	}

	fmt.Fprintf(stdout, "Verified %s: digest %s intact\n", decisionID, rec.AuditDigest)
	return 0
}
