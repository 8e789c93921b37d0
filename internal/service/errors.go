package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rishi-narain/ad-tester/internal/llm"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMaintenance    = errors.New("service is in maintenance mode")
	ErrEmptyCatalog   = errors.New("no personas configured")
)

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// Error categories reported to callers.
const (
	CategoryOK              = "ok"
	CategoryInvalidInput    = "invalid_input"
	CategoryRetryLater      = "retry_later"
	CategoryConfiguration   = "configuration"
	CategoryUpstreamFailure = "upstream_failure"
)

// Category tells a caller what to do about err: fix the input, retry
// later, fix the deployment, or treat the model answer as unusable.
func Category(err error) string {
	switch {
	case err == nil:
		return CategoryOK
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, llm.ErrBadRequest):
		return CategoryInvalidInput
	case errors.Is(err, llm.ErrRateLimit),
		errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, ErrMaintenance),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return CategoryRetryLater
	case errors.Is(err, llm.ErrAuth), errors.Is(err, ErrEmptyCatalog):
		return CategoryConfiguration
	default:
		return CategoryUpstreamFailure
	}
}

// Retryable reports whether the same request may succeed later.
func Retryable(err error) bool {
	return Category(err) == CategoryRetryLater
}
