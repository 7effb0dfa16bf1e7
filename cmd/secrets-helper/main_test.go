package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretshelper/internal/backend"
	"secretshelper/internal/config"
	"secretshelper/internal/loader"
	"secretshelper/internal/types"
)

// clearHelperEnv resets every variable the config loader reads.
func clearHelperEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"SECRETS_HELPER_LOG_LEVEL",
		"SECRETS_HELPER_LOG_FORMAT",
		"SECRETS_HELPER_ENDPOINT_URL",
		"SECRETS_HELPER_FETCH_TIMEOUT",
		"SECRETS_HELPER_MAX_CONCURRENCY",
		"SECRETS_HELPER_BREAKER_THRESHOLD",
		"SECRETS_HELPER_METRICS_NAMESPACE",
		"SECRETS_HELPER_DOTENV",
		"AWS_REGION",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// harness drives the CLI in-process and records how the client factory was
// invoked.
type harness struct {
	stdout bytes.Buffer
	stderr bytes.Buffer

	mu          sync.Mutex
	calls       int
	backendName string
	cfg         config.Config

	fetcher    backend.Fetcher
	metrics    loader.MetricPublisher
	factoryErr error
}

func newHarness(t *testing.T, values map[string]string) *harness {
	t.Helper()
	clearHelperEnv(t)

	return &harness{
		fetcher: backend.FetcherFunc(func(_ context.Context, id string) types.FetchOutcome {
			if v, ok := values[id]; ok {
				return types.Fetched(v)
			}
			return types.FetchFailed("parameter not found")
		}),
	}
}

func (h *harness) env(stdin string) *appEnv {
	return &appEnv{
		stdin:  strings.NewReader(stdin),
		stdout: &h.stdout,
		stderr: &h.stderr,
		newClients: func(_ context.Context, backendName string, cfg *config.Config) (backend.Fetcher, loader.MetricPublisher, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.calls++
			h.backendName = backendName
			h.cfg = *cfg
			if h.factoryErr != nil {
				return nil, nil, h.factoryErr
			}
			return h.fetcher, h.metrics, nil
		},
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) error {
	t.Helper()
	return newApp(context.Background(), h.env(stdin)).Run(append([]string{"secrets-helper"}, args...))
}

// exitCode runs the CLI the way main does and returns the exit code.
func (h *harness) exitCode(t *testing.T, stdin string, args ...string) int {
	t.Helper()
	return run(context.Background(), h.env(stdin), append([]string{"secrets-helper"}, args...))
}

func (h *harness) result(t *testing.T) types.SecretsResult {
	t.Helper()

	var result types.SecretsResult
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &result), "stdout: %s", h.stdout.String())
	return result
}

func TestRun_SSMAllFound(t *testing.T) {
	h := newHarness(t, map[string]string{"db_password": "hunter2", "api_key": "abc"})

	err := h.run(t, `{"version":"1.0","secrets":["db_password","api_key"]}`, "ssm")
	require.NoError(t, err)

	assert.Equal(t, types.BackendSSM, h.backendName)
	assert.Equal(t, types.SecretsResult{
		"db_password": types.Fetched("hunter2"),
		"api_key":     types.Fetched("abc"),
	}, h.result(t))
	assert.True(t, strings.HasSuffix(h.stdout.String(), "\n"))
}

func TestRun_PartialFailureStillSucceeds(t *testing.T) {
	h := newHarness(t, map[string]string{"present": "v"})

	err := h.run(t, `{"version":"1.0","secrets":["present","missing"]}`, "secretsmanager")
	require.NoError(t, err)

	result := h.result(t)
	assert.Equal(t, types.Fetched("v"), result["present"])
	assert.Equal(t, types.FetchFailed("parameter not found"), result["missing"])
}

func TestRun_CommandAliases(t *testing.T) {
	tests := []struct {
		command string
		backend string
	}{
		{"ssm", types.BackendSSM},
		{"parameter-store", types.BackendSSM},
		{"secretsmanager", types.BackendSecretsManager},
		{"vault", types.BackendSecretsManager},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			h := newHarness(t, nil)

			require.NoError(t, h.run(t, `{"version":"1.0","secrets":[]}`, tt.command))
			assert.Equal(t, tt.backend, h.backendName)
		})
	}
}

func TestRun_EmptyRequest(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":[]}`, "ssm"))
	assert.Equal(t, "{}\n", h.stdout.String())
}

func TestRun_MalformedInput(t *testing.T) {
	h := newHarness(t, nil)

	err := h.run(t, `this is not json`, "ssm")
	require.Error(t, err)

	assert.True(t, types.IsInputError(err))
	assert.Empty(t, h.stdout.String())
	assert.Zero(t, h.calls, "clients must not be built for a malformed request")
}

func TestRun_MissingCommand(t *testing.T) {
	h := newHarness(t, nil)

	err := h.run(t, `{"version":"1.0","secrets":[]}`)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeSetupUsage, appErr.Code)
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "secretsmanager")
}

func TestRun_UnknownCommand(t *testing.T) {
	h := newHarness(t, nil)

	err := h.run(t, `{"version":"1.0","secrets":[]}`, "keyvault")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "keyvault"`)
	assert.Empty(t, h.stdout.String())
}

func TestRun_FlagsOverrideEnvironment(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_ENDPOINT_URL", "http://env-endpoint:4566")
	t.Setenv("AWS_REGION", "eu-west-1")

	err := h.run(t, `{"version":"1.0","secrets":[]}`,
		"--endpoint-url", "http://localhost:4566",
		"--region", "us-east-1",
		"ssm")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4566", h.cfg.AWS.EndpointURL)
	assert.Equal(t, "us-east-1", h.cfg.AWS.Region)
}

func TestRun_EndpointShortFlag(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":[]}`, "-e", "http://localhost:4566", "vault"))
	assert.Equal(t, "http://localhost:4566", h.cfg.AWS.EndpointURL)
}

func TestRun_EnvironmentUsedWithoutFlags(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_ENDPOINT_URL", "http://env-endpoint:4566")

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":[]}`, "ssm"))
	assert.Equal(t, "http://env-endpoint:4566", h.cfg.AWS.EndpointURL)
}

func TestRun_InvalidFlagValue(t *testing.T) {
	h := newHarness(t, nil)

	err := h.run(t, `{"version":"1.0","secrets":[]}`, "--log-level", "loud", "ssm")
	require.Error(t, err)

	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, config.ErrValidation, cfgErr.Type)
	assert.Empty(t, h.stdout.String())
	assert.Zero(t, h.calls)
}

func TestRun_ClientSetupFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.factoryErr = errors.New("loading AWS config: no credentials")

	err := h.run(t, `{"version":"1.0","secrets":["a"]}`, "ssm")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeSetupClient, appErr.Code)
	assert.ErrorIs(t, err, h.factoryErr)
	assert.Empty(t, h.stdout.String())
}

func TestRun_FetchTimeout(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_FETCH_TIMEOUT", "20ms")
	h.fetcher = backend.FetcherFunc(func(ctx context.Context, id string) types.FetchOutcome {
		if id == "slow" {
			<-ctx.Done()
			return types.FetchFailed("abandoned")
		}
		return types.Fetched("fast-value")
	})

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":["slow","fast"]}`, "ssm"))

	result := h.result(t)
	assert.Equal(t, types.Fetched("fast-value"), result["fast"])
	assert.Equal(t, types.FetchFailed("fetch timed out after 20ms"), result["slow"])
}

func TestRun_DebugLogsRedactValues(t *testing.T) {
	h := newHarness(t, map[string]string{"token": "super-secret-value"})

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":["token"]}`, "--log-level", "debug", "ssm"))

	assert.Contains(t, h.stderr.String(), "load completed")
	assert.NotContains(t, h.stderr.String(), "super-secret-value")
	assert.Contains(t, h.stdout.String(), "super-secret-value")
}

func TestRun_DefaultLevelIsQuietOnSuccess(t *testing.T) {
	h := newHarness(t, map[string]string{"a": "1"})

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":["a"]}`, "ssm"))
	assert.Empty(t, h.stderr.String())
}

func TestRun_JSONLogFormat(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_LOG_FORMAT", "json")

	require.NoError(t, h.run(t, `{"version":"1.0","secrets":["missing"]}`, "ssm"))

	line, _, _ := strings.Cut(h.stderr.String(), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "secret fetch failed", entry["msg"])
	assert.Equal(t, "missing", entry["id"])
}

func TestRun_Version(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.run(t, "", "--version"))
	assert.Contains(t, h.stderr.String(), "dev")
	assert.Empty(t, h.stdout.String())
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{LogLevel: "error", LogFormat: "text"})

	logger.Warn("suppressed")
	logger.Error("shown")

	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=secrets-helper")
}

func TestExitCode_Success(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.exitCode(t, `{"version":"1.0","secrets":["missing"]}`, "ssm"))
	assert.Contains(t, h.stdout.String(), "parameter not found")
}

func TestExitCode_SetupFailureUsesConfiguredFormat(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_LOG_FORMAT", "json")
	h.factoryErr = errors.New("loading AWS config: no credentials")

	assert.Equal(t, 1, h.exitCode(t, `{"version":"1.0","secrets":["a"]}`, "ssm"))
	assert.Empty(t, h.stdout.String())

	line, _, _ := strings.Cut(h.stderr.String(), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "stderr: %s", h.stderr.String())
	assert.Equal(t, "secrets-helper failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "no credentials")
}

func TestExitCode_MalformedInputUsesConfiguredFormat(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_LOG_FORMAT", "json")

	assert.Equal(t, 1, h.exitCode(t, `{"version":"1.0","secrets":[null]}`, "vault"))
	assert.Empty(t, h.stdout.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(h.stderr.Bytes()), &entry), "stderr: %s", h.stderr.String())
	assert.Equal(t, "secrets-helper failed", entry["msg"])
}

func TestExitCode_ConfigFailureFallsBackToText(t *testing.T) {
	h := newHarness(t, nil)
	t.Setenv("SECRETS_HELPER_FETCH_TIMEOUT", "soon")

	assert.Equal(t, 1, h.exitCode(t, `{"version":"1.0","secrets":[]}`, "ssm"))
	assert.Contains(t, h.stderr.String(), "level=ERROR")
	assert.Contains(t, h.stderr.String(), `msg="secrets-helper failed"`)
	assert.Empty(t, h.stdout.String())
}
