package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the engine's sealed error-kind variant. Remote clients
// classify every transport error into one of these before it is allowed
// to propagate past the client boundary; raw transport errors never
// travel upward.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransientNetwork
	KindRateLimited
	KindValidation
	KindNotFound
	KindConflict
	KindConsistencyViolation
	KindFatalConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient_network"
	case KindRateLimited:
		return "rate_limited"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConsistencyViolation:
		return "consistency_violation"
	case KindFatalConfig:
		return "fatal_config"
	default:
		return "unknown"
	}
}

// Retryable reports whether activities should retry an error of this kind
// with backoff: transient-network and rate-limited errors are
// retried at the activity boundary and never surfaced per-issue.
func (k ErrorKind) Retryable() bool {
	return k == KindTransientNetwork || k == KindRateLimited
}

// ClassifiedError wraps an underlying transport/CLI error with its engine
// error kind and, for HTTP-sourced errors, the observed status code.
type ClassifiedError struct {
	Kind       ErrorKind
	Component  string // "huly", "vibe", "beads"
	Operation  string
	StatusCode int
	Err        error
}

func (e *ClassifiedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s.%s: %s (http %d): %v", e.Component, e.Operation, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Operation, e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// NewClassifiedError wraps err with the given kind and call-site metadata.
func NewClassifiedError(kind ErrorKind, component, operation string, statusCode int, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Component: component, Operation: operation, StatusCode: statusCode, Err: err}
}

// ClassifyHTTPStatus maps an HTTP status code to an ErrorKind:
// 408/429/500/502/503/504 are retryable (408/500-range transient, 429 rate
// limited); 404 is NotFound; other 4xx are validation; everything else is
// unknown/non-retryable.
func ClassifyHTTPStatus(code int) ErrorKind {
	switch code {
	case 429:
		return KindRateLimited
	case 404:
		return KindNotFound
	case 408, 500, 502, 503, 504:
		return KindTransientNetwork
	}
	if code >= 400 && code < 500 {
		return KindValidation
	}
	return KindUnknown
}

// IsRetryable is a convenience wrapper for errors.As over ClassifiedError.
func IsRetryable(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind.Retryable()
	}
	return false
}

// IsNotFound reports whether err is a KindNotFound classified error, the
// signal getters translate into their null-on-404 return.
func IsNotFound(err error) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Kind == KindNotFound
}
