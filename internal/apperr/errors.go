package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// FieldError names one missing or malformed input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed, not only the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when no field failed, so callers can build one up unconditionally.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid is shorthand for a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// DependencyNotReadyError means a precondition has not propagated yet. Retry later.
type DependencyNotReadyError struct {
	Dependency string
	Err        error
}

func (e *DependencyNotReadyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not ready: %v", e.Dependency, e.Err)
	}
	return e.Dependency + " not ready"
}

func (e *DependencyNotReadyError) Unwrap() error { return e.Err }

// UpstreamError wraps a failure reported by the payment processor.
// Message is the processor's own diagnostic, untouched.
type UpstreamError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("stripe %s failed: %s", e.Op, msg)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PartialFailureError means a remote resource was created but could not be
// recorded locally. ResourceID is the remote identifier to resume from.
type PartialFailureError struct {
	Op         string
	ResourceID string
	Err        error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %s created but not saved: %v", e.Op, e.ResourceID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// ConflictError reports a failed state guard or a lost compare-and-swap.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}

func IsDependencyNotReady(err error) bool {
	var d *DependencyNotReadyError
	return errors.As(err, &d)
}

func IsPartialFailure(err error) bool {
	var p *PartialFailureError
	return errors.As(err, &p)
}
