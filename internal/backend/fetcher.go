// Package backend implements single-secret fetchers for the supported secret
// stores and the decorators layered on top of them.
//
// A Fetcher is total: every failure mode (missing value, service rejection,
// transport error, deadline) comes back as a failed types.FetchOutcome, never
// as a Go error and never as a panic escaping to the caller. Fetchers are
// shared by all goroutines of a load and must be safe for concurrent use.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/smithy-go"

	"secretshelper/internal/types"
)

// Fetcher fetches exactly one secret by identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) types.FetchOutcome
}

// FetcherFunc adapts an ordinary function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id string) types.FetchOutcome

// Fetch calls f(ctx, id).
func (f FetcherFunc) Fetch(ctx context.Context, id string) types.FetchOutcome {
	return f(ctx, id)
}

// ClassifiedFetcher is implemented by fetchers that can tell a failure of the
// backend itself apart from a failure specific to one identifier.
//
// FetchClassified returns the same outcome as Fetch. The error is non-nil
// only when the failure reflects backend health (transport errors,
// throttling, server faults, deadlines); a missing or forbidden identifier
// yields a failed outcome with a nil error.
type ClassifiedFetcher interface {
	Fetcher
	FetchClassified(ctx context.Context, id string) (types.FetchOutcome, error)
}

// serviceErrorPrefix marks failures the remote service reported explicitly.
const serviceErrorPrefix = "service error: "

// SafeFetch calls f and converts a panic into a failed outcome for id.
func SafeFetch(ctx context.Context, f Fetcher, id string) (outcome types.FetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = types.FetchFailedf("fetch panicked: %v", r)
		}
	}()
	return f.Fetch(ctx, id)
}

// safeFetchClassified is SafeFetch for callers that need the health
// classification. Fetchers that do not classify never report a health
// failure. A panic is reported as a failed outcome only.
func safeFetchClassified(ctx context.Context, f Fetcher, id string) (outcome types.FetchOutcome, healthErr error) {
	cf, ok := f.(ClassifiedFetcher)
	if !ok {
		return SafeFetch(ctx, f, id), nil
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = types.FetchFailedf("fetch panicked: %v", r)
			healthErr = nil
		}
	}()
	return cf.FetchClassified(ctx, id)
}

// failedFetch turns an SDK error into a failed outcome plus its health
// classification.
func failedFetch(err error) (types.FetchOutcome, error) {
	outcome := types.FetchFailed(describeError(err))
	if isBackendFailure(err) {
		return outcome, err
	}
	return outcome, nil
}

// isBackendFailure reports whether err says something about the backend
// rather than about the identifier that was requested.
func isBackendFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		if code := statusErr.HTTPStatusCode(); code >= 500 || code == 429 {
			return true
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorFault() == smithy.FaultServer {
			return true
		}
		_, throttled := retry.DefaultThrottleErrorCodes[apiErr.ErrorCode()]
		return throttled
	}

	// No service response at all: DNS, TLS, connection resets, deadlines.
	return true
}

// describeError renders an SDK error as a per-secret failure message.
//
// Errors the service sent back (anything carrying a smithy.APIError, such as
// AccessDeniedException, ThrottlingException or ParameterNotFound) are
// prefixed with "service error: " and keep the service's code and message.
// Everything else (DNS, TLS, timeouts, response deserialization) is reported
// with its raw text.
func describeError(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return serviceErrorPrefix + formatAPIError(apiErr)
	}
	return err.Error()
}

func formatAPIError(apiErr smithy.APIError) string {
	code, msg := apiErr.ErrorCode(), apiErr.ErrorMessage()
	switch {
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}
