package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/kiiaren/kiiaren-server/internal/errors"
)

// envelopeVersion identifies the response envelope format. Clients pin
// their parsers to it.
const envelopeVersion = 1

// envelope is the uniform wrapper around every API response body.
type envelope struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    any       `json:"data,omitzero"`
	Error   *APIError `json:"error,omitzero"`
}

// EnvelopeTransformer wraps all response bodies in the versioned
// envelope. Registered as a huma transformer, so handlers return plain
// DTOs and never see the wrapper.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if _, ok := v.(*envelope); ok {
		return v, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		return &envelope{V: envelopeVersion, Success: false, Error: apiErr}, nil
	}
	if err, ok := v.(error); ok {
		return &envelope{
			V:       envelopeVersion,
			Success: false,
			Error:   &APIError{Code: string(domainerrors.CodeInternal), Message: err.Error()},
		}, nil
	}

	success := status == "" || strings.HasPrefix(status, "2")
	return &envelope{V: envelopeVersion, Success: success, Data: v}, nil
}
