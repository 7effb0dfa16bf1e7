// Package config defines the runtime configuration of the secrets helper.
// Configuration is read once at process start from the environment (plus an
// optional dotenv file) and is immutable once the CLI flags have been
// applied.
//
// Values are resolved via a priority chain:
//
//	CLI Flags (Highest) -> OS Environment -> Dotenv File -> Defaults (Lowest)
//
// Any invalid value aborts the process before stdin is read.
package config

import (
	"time"
)

// Config is the top-level configuration struct for the secrets helper.
type Config struct {
	LogLevel  string `envconfig:"SECRETS_HELPER_LOG_LEVEL" default:"warn" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"SECRETS_HELPER_LOG_FORMAT" default:"text" validate:"oneof=text json"`

	AWS     AWSConfig
	Fetch   FetchConfig
	Metrics MetricsConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo `ignored:"true"`
}

// AWSConfig holds the overrides applied on top of the SDK's default chain.
type AWSConfig struct {
	// Region overrides the region resolved by the SDK. Empty keeps the chain.
	Region string `envconfig:"AWS_REGION"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"SECRETS_HELPER_ENDPOINT_URL" validate:"omitempty,url"`
}

// FetchConfig tunes how a load talks to the backend.
type FetchConfig struct {
	// Timeout bounds each individual fetch. Zero disables the deadline.
	Timeout time.Duration `envconfig:"SECRETS_HELPER_FETCH_TIMEOUT" default:"0s" validate:"gte=0"`

	// MaxConcurrency bounds in-flight fetches. Zero means unlimited.
	MaxConcurrency int `envconfig:"SECRETS_HELPER_MAX_CONCURRENCY" default:"0" validate:"gte=0"`

	// BreakerThreshold opens the circuit breaker after this many consecutive
	// failed fetches. Zero disables the breaker.
	BreakerThreshold int `envconfig:"SECRETS_HELPER_BREAKER_THRESHOLD" default:"0" validate:"gte=0"`
}

// MetricsConfig controls CloudWatch publishing.
type MetricsConfig struct {
	// Namespace enables CloudWatch metrics when non-empty.
	Namespace string `envconfig:"SECRETS_HELPER_METRICS_NAMESPACE"`
}

// Enabled reports whether load metrics should be published.
func (m MetricsConfig) Enabled() bool {
	return m.Namespace != ""
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrDotenv indicates the configured dotenv file could not be loaded.
	ErrDotenv ConfigErrorType = "DOTENV_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
