// Package loader resolves a whole SecretsRequest against a backend.Fetcher.
//
// A load fans out one goroutine per distinct identifier, waits for every one
// of them, and only then merges the outcomes into a SecretsResult. Individual
// fetch failures are data: they never cancel sibling fetches and never make
// the load itself fail.
package loader

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"secretshelper/internal/backend"
	"secretshelper/internal/types"
)

// Loader runs loads against a single fetcher. It is safe for concurrent use.
type Loader struct {
	fetcher        backend.Fetcher
	logger         *slog.Logger
	metrics        MetricPublisher
	backendName    string
	maxConcurrency int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics publishes per-load counters through p.
func WithMetrics(p MetricPublisher) Option {
	return func(l *Loader) {
		if p != nil {
			l.metrics = p
		}
	}
}

// WithBackendName labels logs and metrics with the backend in use.
func WithBackendName(name string) Option {
	return func(l *Loader) {
		l.backendName = name
	}
}

// WithMaxConcurrency bounds the number of fetches in flight. Zero or a
// negative value means every identifier is fetched at once.
func WithMaxConcurrency(n int) Option {
	return func(l *Loader) {
		l.maxConcurrency = n
	}
}

// New creates a Loader for fetcher.
func New(fetcher backend.Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: noopPublisher{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves req with fetcher. It is shorthand for New(fetcher, opts...).Load.
func Load(ctx context.Context, req types.SecretsRequest, fetcher backend.Fetcher, opts ...Option) types.SecretsResult {
	return New(fetcher, opts...).Load(ctx, req)
}

// Load fetches every distinct identifier of req concurrently and returns the
// merged result once all fetches have completed. The result holds exactly one
// entry per distinct identifier.
//
// Duplicate identifiers are fetched once. Load never fails; ctx is passed to
// the fetcher and a cancelled context surfaces as failed outcomes.
func (l *Loader) Load(ctx context.Context, req types.SecretsRequest) types.SecretsResult {
	start := time.Now()
	loadID := uuid.NewString()
	logger := l.logger.With("load_id", loadID, "backend", l.backendName)

	ids := req.Identifiers()
	logger.Debug("load started",
		"version", req.Version,
		"requested", len(req.Secrets),
		"distinct", len(ids),
	)

	// Each goroutine owns exactly one slot, so no locking is needed until
	// the merge below.
	outcomes := make([]types.FetchOutcome, len(ids))

	var g errgroup.Group
	if l.maxConcurrency > 0 {
		g.SetLimit(l.maxConcurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i] = backend.SafeFetch(ctx, l.fetcher, id)
			// Never report an error to the group: a failed fetch must not
			// affect its siblings.
			return nil
		})
	}
	_ = g.Wait()

	result := make(types.SecretsResult, len(ids))
	for i, id := range ids {
		outcome := outcomes[i]
		if !outcome.Valid() {
			outcome = types.FetchFailed("backend returned an empty outcome")
		}
		result[id] = outcome

		if outcome.OK() {
			logger.Debug("secret fetched",
				"id", id,
				"value", types.SecretString(*outcome.Value),
			)
		} else {
			logger.Warn("secret fetch failed",
				"id", id,
				"error", outcome.ErrorMessage(),
			)
		}
	}

	stats := LoadStats{
		Backend:   l.backendName,
		Requested: len(ids),
		Failed:    len(result.Failed()),
		Duration:  time.Since(start),
	}
	stats.Fetched = stats.Requested - stats.Failed

	logger.Info("load completed",
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds(),
	)

	if err := l.metrics.PublishLoad(ctx, stats); err != nil {
		logger.Warn("publishing load metrics failed", "error", err)
	}

	return result
}
