// Package config loads runtime configuration: process-level settings from
// environment variables and adjudication profiles from YAML files. API keys
// never live in profile files; profiles name the environment variable that
// holds them.
package config

import "os"

// Config holds process-level configuration.
type Config struct {
	LogLevel         string
	DatabasePath     string
	ProfilePath      string
	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbPath := os.Getenv("TRUSTCHAIN_DB")
	if dbPath == "" {
		dbPath = "trustchain.db"
	}

	profilePath := os.Getenv("TRUSTCHAIN_PROFILE")
	if profilePath == "" {
		profilePath = "trustchain.yaml"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	telemetryEnabled := os.Getenv("TELEMETRY_ENABLED") == "true"

	return &Config{
		LogLevel:         logLevel,
		DatabasePath:     dbPath,
		ProfilePath:      profilePath,
		OTLPEndpoint:     otlpEndpoint,
		TelemetryEnabled: telemetryEnabled,
	}
}
