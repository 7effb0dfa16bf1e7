package types

import (
	"fmt"
	"sort"
)

// SecretsRequest is the payload the pipeline writes to the helper's stdin.
// It is built once by the protocol reader and is never modified afterwards.
type SecretsRequest struct {
	// Version is the payload schema tag. It is carried through untouched.
	Version string `json:"version"`

	// Secrets lists the identifiers to resolve, in the order the caller sent
	// them. Duplicates are allowed.
	Secrets []string `json:"secrets"`
}

// Identifiers returns the distinct identifiers of the request in
// first-occurrence order.
func (r SecretsRequest) Identifiers() []string {
	seen := make(map[string]struct{}, len(r.Secrets))
	ids := make([]string, 0, len(r.Secrets))
	for _, id := range r.Secrets {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// FetchOutcome is the result of fetching a single identifier. Exactly one of
// Value and Error is non-nil. Build outcomes with Fetched or FetchFailed.
type FetchOutcome struct {
	Value *string `json:"value"`
	Error *string `json:"error"`
}

// Fetched returns a successful outcome carrying value.
func Fetched(value string) FetchOutcome {
	return FetchOutcome{Value: &value}
}

// FetchFailed returns a failed outcome carrying msg.
func FetchFailed(msg string) FetchOutcome {
	return FetchOutcome{Error: &msg}
}

// FetchFailedf is FetchFailed with fmt.Sprintf formatting.
func FetchFailedf(format string, args ...any) FetchOutcome {
	return FetchFailed(fmt.Sprintf(format, args...))
}

// OK reports whether the outcome holds a value.
func (o FetchOutcome) OK() bool {
	return o.Value != nil && o.Error == nil
}

// Valid reports whether exactly one of Value and Error is set.
func (o FetchOutcome) Valid() bool {
	return (o.Value == nil) != (o.Error == nil)
}

// ErrorMessage returns the failure message, or "" for a successful outcome.
func (o FetchOutcome) ErrorMessage() string {
	if o.Error == nil {
		return ""
	}
	return *o.Error
}

// SecretsResult maps each requested identifier to its outcome. It is written
// to stdout as a single JSON object.
type SecretsResult map[string]FetchOutcome

// Failed returns the identifiers whose outcome is a failure, sorted.
func (r SecretsResult) Failed() []string {
	var failed []string
	for id, outcome := range r {
		if !outcome.OK() {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)
	return failed
}
