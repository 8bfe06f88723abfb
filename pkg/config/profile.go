package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trustchain-labs/trustchain/pkg/provider"
	"github.com/trustchain-labs/trustchain/pkg/safety"
)

// Profile is a complete adjudication configuration: which providers vote,
// and which thresholds govern consensus and safety.
type Profile struct {
	Name      string            `yaml:"name" json:"name"`
	Providers []ProviderProfile `yaml:"providers" json:"providers"`
	Consensus ConsensusConfig   `yaml:"consensus" json:"consensus"`
	Safety    SafetyConfig      `yaml:"safety" json:"safety"`
}

// ProviderProfile configures one voting provider. APIKeyEnv names the
// environment variable holding the credential; the key itself is resolved at
// load time and never serialized.
type ProviderProfile struct {
	Name      string `yaml:"name" json:"name"`
	Enabled   *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`

	provider.Config `yaml:",inline"`
}

// ConsensusConfig holds the agreement threshold for automatic completion.
type ConsensusConfig struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// SafetyConfig holds the safety engine thresholds.
type SafetyConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	VarianceThreshold   float64 `yaml:"variance_threshold" json:"variance_threshold"`
	ConsensusThreshold  float64 `yaml:"consensus_threshold" json:"consensus_threshold"`
}

// IsEnabled reports whether the provider participates in voting. Providers
// are enabled unless explicitly disabled.
func (p *ProviderProfile) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Resolve returns the provider configuration with the API key filled in from
// the environment variable named by APIKeyEnv.
func (p *ProviderProfile) Resolve() provider.Config {
	cfg := p.Config
	if p.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(p.APIKeyEnv)
	}
	return cfg
}

// SafetyOptions converts the profile thresholds to safety engine options.
// Zero values defer to the engine's defaults.
func (p *Profile) SafetyOptions() safety.Options {
	return safety.Options{
		ConfidenceThreshold: p.Safety.ConfidenceThreshold,
		VarianceThreshold:   p.Safety.VarianceThreshold,
		ConsensusThreshold:  p.Safety.ConsensusThreshold,
	}
}

// LoadProfile loads an adjudication profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}

	if len(profile.Providers) == 0 {
		return nil, fmt.Errorf("profile %q: no providers configured", path)
	}
	for i, p := range profile.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %q: provider %d has no name", path, i)
		}
	}

	return &profile, nil
}
