package insights

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline-level failures surfaced to callers.
type ErrorKind string

// Pipeline error kinds. The first three are resolver rejections and map to a
// store-validity error in the external contract; internal covers unexpected
// faults during a run.
const (
	ErrNotFound     ErrorKind = "not_found"
	ErrUnreachable  ErrorKind = "unreachable"
	ErrUnrecognized ErrorKind = "unrecognized"
	ErrInternal     ErrorKind = "internal"
)

// PipelineError is the typed error returned by a pipeline run.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewInvalidStore builds a resolver rejection with the given kind.
func NewInvalidStore(kind ErrorKind, msg string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg, Err: cause}
}

// NewInternal wraps an unexpected runtime fault.
func NewInternal(msg string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrInternal, Message: msg, Err: cause}
}

// IsInvalidStore reports whether err is a resolver rejection.
func IsInvalidStore(err error) bool {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Kind {
	case ErrNotFound, ErrUnreachable, ErrUnrecognized:
		return true
	default:
		return false
	}
}
