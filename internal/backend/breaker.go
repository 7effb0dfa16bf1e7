package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"secretshelper/internal/types"
)

// breakerOpenTimeout is how long an open breaker rejects fetches before
// letting a single trial fetch through.
const breakerOpenTimeout = 30 * time.Second

// breakerFetcher stops calling a backend that keeps failing.
type breakerFetcher struct {
	next    Fetcher
	breaker *gobreaker.CircuitBreaker[types.FetchOutcome]
}

// WithCircuitBreaker wraps f with a circuit breaker that opens after
// threshold consecutive backend failures. While open, fetches fail
// immediately with "circuit breaker open: <name>". State changes are logged
// when logger is non-nil. A non-positive threshold returns f unchanged.
//
// Only failures f reports through ClassifiedFetcher count. Missing or
// forbidden identifiers never open the breaker, and a fetcher that does not
// classify its failures never trips it.
func WithCircuitBreaker(f Fetcher, name string, threshold int, logger *slog.Logger) Fetcher {
	if threshold <= 0 {
		return f
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
	}
	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}
	}

	return &breakerFetcher{
		next:    f,
		breaker: gobreaker.NewCircuitBreaker[types.FetchOutcome](settings),
	}
}

func (f *breakerFetcher) Fetch(ctx context.Context, id string) types.FetchOutcome {
	outcome, _ := f.FetchClassified(ctx, id)
	return outcome
}

// FetchClassified implements ClassifiedFetcher so breakers can be stacked
// under other classifying decorators.
func (f *breakerFetcher) FetchClassified(ctx context.Context, id string) (types.FetchOutcome, error) {
	outcome, err := f.breaker.Execute(func() (types.FetchOutcome, error) {
		return safeFetchClassified(ctx, f.next, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.FetchFailedf("circuit breaker open: %s", f.breaker.Name()), nil
	}
	return outcome, err
}
