package config

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// Validation error codes.
const (
	ErrCodeSyntax     = "E201" // CUE source does not parse
	ErrCodeConstraint = "E202" // value violates a schema constraint
	ErrCodeSchema     = "E203" // embedded schema failed to compile
)

// ValidationError is one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// fromCUE converts a CUE error list. It always returns at least one entry.
func fromCUE(err error) []*ValidationError {
	var out []*ValidationError
	for _, e := range cueerrors.Errors(err) {
		ve := &ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: e.Error(),
			Code:    ErrCodeConstraint,
		}
		if ve.Field == "" {
			ve.Field = "config"
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			ve.Line = pos[0].Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, &ValidationError{Field: "config", Message: err.Error(), Code: ErrCodeConstraint})
	}
	return out
}
