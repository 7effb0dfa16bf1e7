// Package main implements secrets-helper, an "exec" secrets backend for log
// and metrics pipelines such as Vector.
//
// The pipeline starts the helper, writes a request to its stdin and reads the
// result from its stdout:
//
//	{"version": "1.0", "secrets": ["/prod/db/password", "/prod/api/key"]}
//
//	{"/prod/api/key": {"value": "...", "error": null},
//	 "/prod/db/password": {"value": null, "error": "service error: ParameterNotFound"}}
//
// Usage:
//
//	secrets-helper ssm
//	secrets-helper secretsmanager
//	secrets-helper --endpoint-url=http://localhost:4566 --region=us-east-1 ssm
//
// Every identifier gets an entry. A secret that cannot be fetched is reported
// in its own "error" field and the process still exits 0; only setup failures
// (bad configuration, malformed stdin, unusable AWS config) exit non-zero, and
// they write nothing to stdout.
//
// Credentials and region come from the AWS SDK default chain. Tuning knobs
// (timeouts, concurrency, breaker, metrics, logging) are read from
// SECRETS_HELPER_* environment variables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Set up cancellation context with signal handling.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	code := run(ctx, defaultEnv(), os.Args)
	cancel()
	os.Exit(code)
}
