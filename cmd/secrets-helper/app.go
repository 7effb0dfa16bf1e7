package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"secretshelper/internal/backend"
	"secretshelper/internal/config"
	"secretshelper/internal/loader"
	"secretshelper/internal/protocol"
	"secretshelper/internal/types"
)

// clientFactory builds the fetcher for a backend, plus the metrics publisher
// when metrics are enabled. It runs only after stdin has been parsed.
type clientFactory func(ctx context.Context, backendName string, cfg *config.Config) (backend.Fetcher, loader.MetricPublisher, error)

// appEnv carries the process boundary so tests can drive the CLI in-process.
type appEnv struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	newClients clientFactory

	// logger is the configured logger, set once configuration has loaded.
	logger *slog.Logger
}

func defaultEnv() *appEnv {
	return &appEnv{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		newClients: newAWSClients,
	}
}

const (
	flagEndpointURL = "endpoint-url"
	flagRegion      = "region"
	flagLogLevel    = "log-level"
)

func newApp(ctx context.Context, env *appEnv) *cli.App {
	app := cli.NewApp()
	app.Name = "secrets-helper"
	app.Usage = "Batch secret retrieval for exec secret backends"
	app.UsageText = "secrets-helper [global options] command < request.json"
	app.Version = config.NewBuildInfo().String()

	// stdout is reserved for the result document.
	app.Writer = env.stderr
	app.ErrWriter = env.stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  flagEndpointURL + ", e",
			Usage: "Override the AWS service endpoint (for example a LocalStack URL)",
		},
		cli.StringFlag{
			Name:  flagRegion,
			Usage: "Override the AWS region resolved from the default chain",
		},
		cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "Diagnostic log level written to stderr (debug, info, warn, error)",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:    types.BackendSSM,
			Aliases: []string{"parameter-store"},
			Usage:   "Get secrets from SSM Parameter Store",
			Action: func(c *cli.Context) error {
				return runLoad(ctx, c, env, types.BackendSSM)
			},
		},
		{
			Name:    types.BackendSecretsManager,
			Aliases: []string{"vault"},
			Usage:   "Get secrets from Secrets Manager",
			Action: func(c *cli.Context) error {
				return runLoad(ctx, c, env, types.BackendSecretsManager)
			},
		},
	}

	// Reached when no command, or an unknown one, is given.
	app.Action = func(c *cli.Context) error {
		_ = cli.ShowAppHelp(c)
		if c.NArg() > 0 {
			return types.NewAppError(types.ErrCodeSetupUsage,
				fmt.Sprintf("unknown command %q", c.Args().First()), nil)
		}
		return types.NewAppError(types.ErrCodeSetupUsage, "a backend command is required", nil)
	}

	return app
}

// run executes the CLI and returns the process exit code. Failures are
// logged with the configured logger when configuration got that far.
func run(ctx context.Context, env *appEnv, args []string) int {
	if err := newApp(ctx, env).Run(args); err != nil {
		logger := env.logger
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(env.stderr, nil))
		}
		logger.Error("secrets-helper failed", "error", err)
		return 1
	}
	return 0
}

// runLoad executes one request/response exchange against backendName.
func runLoad(ctx context.Context, c *cli.Context, env *appEnv, backendName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(c, cfg); err != nil {
		return err
	}

	logger := newLogger(env.stderr, cfg)
	env.logger = logger

	req, err := protocol.ReadRequest(env.stdin)
	if err != nil {
		return err
	}

	fetcher, metrics, err := env.newClients(ctx, backendName, cfg)
	if err != nil {
		return types.NewAppError(types.ErrCodeSetupClient, "initializing "+backendName+" backend", err)
	}

	fetcher = backend.WithTimeout(fetcher, cfg.Fetch.Timeout)
	fetcher = backend.WithCircuitBreaker(fetcher, backendName, cfg.Fetch.BreakerThreshold, logger)

	result := loader.Load(ctx, req, fetcher,
		loader.WithLogger(logger),
		loader.WithBackendName(backendName),
		loader.WithMaxConcurrency(cfg.Fetch.MaxConcurrency),
		loader.WithMetrics(metrics),
	)

	return protocol.WriteResult(env.stdout, result)
}

// applyFlags overlays global CLI flags onto cfg and revalidates it.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.GlobalIsSet(flagEndpointURL) {
		cfg.AWS.EndpointURL = c.GlobalString(flagEndpointURL)
	}
	if c.GlobalIsSet(flagRegion) {
		cfg.AWS.Region = c.GlobalString(flagRegion)
	}
	if c.GlobalIsSet(flagLogLevel) {
		cfg.LogLevel = c.GlobalString(flagLogLevel)
	}
	return cfg.Validate()
}

// newLogger builds the stderr logger from the configured level and format.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("component", "secrets-helper")
}

// newAWSClients resolves the SDK configuration and builds the real clients.
func newAWSClients(ctx context.Context, backendName string, cfg *config.Config) (backend.Fetcher, loader.MetricPublisher, error) {
	awsCfg, err := backend.LoadAWSConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, nil, err
	}

	var fetcher backend.Fetcher
	switch backendName {
	case types.BackendSSM:
		fetcher = backend.NewSSMFetcherFromConfig(awsCfg, cfg.AWS.EndpointURL, true)
	case types.BackendSecretsManager:
		fetcher = backend.NewSecretsManagerFetcherFromConfig(awsCfg, cfg.AWS.EndpointURL)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backendName)
	}

	var metrics loader.MetricPublisher
	if cfg.Metrics.Enabled() {
		metrics = loader.NewCloudWatchPublisherFromConfig(awsCfg, cfg.Metrics.Namespace)
	}
	return fetcher, metrics, nil
}
