// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Load the dotenv file named by SECRETS_HELPER_DOTENV, if any.
//  2. Use envconfig to process struct tags and populate the Config struct.
//  3. Populate BuildInfo from linker-injected variables.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// dotenvVar names the environment variable pointing at an optional dotenv
// file. The helper runs inside another process's working directory, so no
// implicit ./.env is read.
const dotenvVar = "SECRETS_HELPER_DOTENV"

// envLookup is a function type for looking up environment variables.
// It matches the signature of os.LookupEnv and allows injection for testing.
type envLookup func(key string) (string, bool)

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without mutating global state.
type loaderDeps struct {
	lookupEnv  envLookup
	loadDotenv func(filenames ...string) error
}

// defaultDeps returns the standard OS-backed dependencies.
func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv:  os.LookupEnv,
		loadDotenv: godotenv.Load,
	}
}

// LoadConfig loads and validates the helper configuration.
//
// It performs the following steps in order:
//  1. Loads the dotenv file named by SECRETS_HELPER_DOTENV, if set. Values
//     already present in the environment are not overridden.
//  2. Processes envconfig tags to populate the Config struct.
//  3. Populates Config.Build from linker-injected variables.
//  4. Validates the Config struct.
func LoadConfig() (*Config, error) {
	return loadConfigWithDeps(defaultDeps())
}

// loadConfigWithDeps is the internal implementation of LoadConfig that accepts
// injectable dependencies for testing.
func loadConfigWithDeps(deps loaderDeps) (*Config, error) {
	if path, ok := deps.lookupEnv(dotenvVar); ok && path != "" {
		if err := deps.loadDotenv(path); err != nil {
			return nil, &ConfigError{
				Type:    ErrDotenv,
				Message: fmt.Sprintf("failed to load dotenv file %q", path),
				Err:     err,
			}
		}
	}

	// The empty prefix "" means envconfig will use the exact tag values.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct validation rules. The CLI calls it again after
// applying flag overrides.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return nil
}
