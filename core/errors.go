package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// InvalidIDError is returned when an id is not a valid object id.
type InvalidIDError struct {
	Kind string // Unit, Activity, ...
}

func NewInvalidIDError(kind string) error {
	return &InvalidIDError{Kind: kind}
}

func (err InvalidIDError) Error() string {
	return "invalid" + err.Kind + "Id"
}

// NotFoundError is returned when the requested object(s) do not exist.
// Status is a machine readable reason, e.g. "unitNotFound".
type NotFoundError struct {
	Status string
}

func NewNotFoundError(status string) error {
	return &NotFoundError{Status: status}
}

func (err NotFoundError) Error() string { return err.Status }

// ForbiddenError is returned when an operation is not allowed in the current state.
type ForbiddenError struct {
	Status string
}

func NewForbiddenError(status string) error {
	return &ForbiddenError{Status: status}
}

func (err ForbiddenError) Error() string { return err.Status }

// UnprocessableError is returned when valid ids refer to objects that do not fit together.
type UnprocessableError struct {
	Status string
}

func NewUnprocessableError(status string) error {
	return &UnprocessableError{Status: status}
}

func (err UnprocessableError) Error() string { return err.Status }

// IsNotFound reports whether the cause of err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
