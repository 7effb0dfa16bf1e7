// Package protocol implements the JSON exchange of an "exec" secrets backend:
// one request object on stdin, one result object on stdout.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"secretshelper/internal/types"
)

// requestPayload mirrors types.SecretsRequest with pointer/nil-able fields so
// that missing keys can be told apart from empty values.
type requestPayload struct {
	Version *string   `json:"version" validate:"required"`
	Secrets []*string `json:"secrets" validate:"required"`
}

var validate = validator.New()

// ReadRequest decodes exactly one request object from r.
//
// Both "version" and "secrets" must be present; "secrets" may be empty but
// must not contain null entries.
// Unknown keys are ignored so newer callers can add fields. Anything other
// than whitespace after the object is rejected. All failures are
// *types.AppError values with an input_* code.
func ReadRequest(r io.Reader) (types.SecretsRequest, error) {
	dec := json.NewDecoder(r)

	var payload requestPayload
	if err := dec.Decode(&payload); err != nil {
		return types.SecretsRequest{}, types.NewAppError(
			types.ErrCodeInputMalformed, "decoding secrets request", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return types.SecretsRequest{}, types.NewAppError(
			types.ErrCodeInputMalformed, "unexpected data after secrets request", err)
	}

	if err := validate.Struct(payload); err != nil {
		return types.SecretsRequest{}, types.NewAppError(
			types.ErrCodeInputInvalid, "validating secrets request", err)
	}

	secrets := make([]string, 0, len(payload.Secrets))
	for i, id := range payload.Secrets {
		if id == nil {
			return types.SecretsRequest{}, types.NewAppError(
				types.ErrCodeInputMalformed, fmt.Sprintf("secrets[%d] is null", i), nil)
		}
		secrets = append(secrets, *id)
	}

	return types.SecretsRequest{
		Version: *payload.Version,
		Secrets: secrets,
	}, nil
}

// WriteResult encodes result to w as a single JSON object followed by a
// newline. Keys are written in sorted order.
func WriteResult(w io.Writer, result types.SecretsResult) error {
	if result == nil {
		result = types.SecretsResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return types.NewAppError(types.ErrCodeOutputWrite, "writing secrets result",
			fmt.Errorf("encoding %d entries: %w", len(result), err))
	}
	return nil
}
