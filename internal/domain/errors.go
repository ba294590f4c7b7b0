package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrCircuitOpen     = errors.New("circuit open")
	ErrQueueFull       = errors.New("queue full")
	ErrCancelled       = errors.New("cancelled")
	ErrUnavailable     = errors.New("unavailable")
	ErrInternal        = errors.New("internal error")
)

// ErrorClass buckets errors into the semantic classes the retry and fallback
// machinery acts on.
type ErrorClass string

const (
	ClassValidation  ErrorClass = "validation"
	ClassNotFound    ErrorClass = "not_found"
	ClassTransient   ErrorClass = "transient"
	ClassRateLimited ErrorClass = "rate_limited"
	ClassCircuitOpen ErrorClass = "circuit_open"
	ClassCancelled   ErrorClass = "cancelled"
	ClassInternal    ErrorClass = "internal"
)

// Classify maps an error to its semantic class. Unknown errors are treated as
// transient so the retry layer gets a chance at them.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return ClassValidation
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrCircuitOpen):
		return ClassCircuitOpen
	case errors.Is(err, context.Canceled), errors.Is(err, ErrCancelled):
		return ClassCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrUpstreamTimeout):
		return ClassTransient
	case errors.Is(err, ErrInternal):
		return ClassInternal
	default:
		return ClassTransient
	}
}

// Retryable reports whether an error class may be retried by the queue.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassTransient, ClassRateLimited, ClassCircuitOpen:
		return true
	default:
		return false
	}
}

// Failure is the structured error surfaced to callers when the synchronous
// path cannot produce a result, and the body of terminal webhook failures.
type Failure struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// FailureFrom builds a Failure record from any error.
func FailureFrom(err error) Failure {
	cls := Classify(err)
	return Failure{Code: string(cls), Message: err.Error(), Retryable: cls.Retryable()}
}
