package backend

import (
	"context"
	"errors"
	"time"

	"secretshelper/internal/types"
)

// timeoutFetcher races each fetch against a deadline.
type timeoutFetcher struct {
	next    Fetcher
	timeout time.Duration
}

// WithTimeout wraps f so that a fetch taking longer than timeout yields a
// failed outcome instead of blocking the load. The underlying call receives
// the deadline through its context and is abandoned if it ignores it.
// A non-positive timeout returns f unchanged.
func WithTimeout(f Fetcher, timeout time.Duration) Fetcher {
	if timeout <= 0 {
		return f
	}
	return &timeoutFetcher{next: f, timeout: timeout}
}

// classifiedOutcome pairs an outcome with its health classification.
type classifiedOutcome struct {
	outcome   types.FetchOutcome
	healthErr error
}

func (f *timeoutFetcher) Fetch(ctx context.Context, id string) types.FetchOutcome {
	outcome, _ := f.FetchClassified(ctx, id)
	return outcome
}

// FetchClassified implements ClassifiedFetcher. A timed-out fetch counts as a
// backend failure; a cancelled one does not.
func (f *timeoutFetcher) FetchClassified(ctx context.Context, id string) (types.FetchOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// Buffered so an abandoned fetch can still complete its send.
	done := make(chan classifiedOutcome, 1)
	go func() {
		outcome, healthErr := safeFetchClassified(ctx, f.next, id)
		done <- classifiedOutcome{outcome: outcome, healthErr: healthErr}
	}()

	select {
	case res := <-done:
		return res.outcome, res.healthErr
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return types.FetchFailedf("fetch timed out after %s", f.timeout), ctx.Err()
		}
		return types.FetchFailedf("fetch cancelled: %v", ctx.Err()), nil
	}
}
