package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCalendarUnavailable is returned by calendar lookups that cannot be served
	ErrCalendarUnavailable = errors.New("calendar unavailable")
	// ErrForecastProvider covers external forecast provider failures, including timeouts
	ErrForecastProvider = errors.New("forecast provider error")
	// ErrStoreUnavailable covers persistent read/write failures
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a stored record does not exist
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a malformed or missing input field. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CollaboratorError wraps a failure of an external collaborator.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Unavailable wraps err as a collaborator failure tagged with sentinel.
func Unavailable(collaborator string, sentinel, err error) error {
	if err == nil {
		err = sentinel
	} else if !errors.Is(err, sentinel) {
		err = fmt.Errorf("%w: %v", sentinel, err)
	}
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// InvariantViolation is fatal for the SKU it was raised for.
type InvariantViolation struct {
	Subject string
	Detail  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated for %s: %s", e.Subject, e.Detail)
}

// Warning is a non-fatal data quality note attached to an output
type Warning string

const (
	WarnInsufficientHistory Warning = "insufficient history, using synthetic pattern"
	WarnStaleHistory        Warning = "sales history is stale"
	WarnInconsistentHistory Warning = "sales history is inconsistent"
	WarnNoEstimates         Warning = "no inventory estimates supplied"
	WarnCalendarDegraded    Warning = "festival calendar unavailable, no festival uplift applied"
	WarnProviderFallback    Warning = "forecast provider unavailable, using pattern fallback"
	WarnResultNotPersisted  Warning = "result could not be persisted"
	WarnHistoryUnavailable  Warning = "sales history store unavailable, history treated as empty"
)

// ErrorKind classifies an error for per-item reporting.
func ErrorKind(err error) string {
	var (
		ve *ValidationError
		ce *CollaboratorError
		iv *InvariantViolation
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &iv):
		return "invariant"
	case errors.As(err, &ce):
		return "collaborator"
	default:
		return "internal"
	}
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
