package core

import "github.com/pkg/errors"

// FieldError ties a validation failure to the offending field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries field-level failures raised outside validator tags,
// uniqueness checks against the database for instance.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown asks the server loop to stop serving and exit cleanly.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string { return s.message }

// IsShutdown reports whether err or its cause requests a graceful shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
