package adapters

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrMissingAPIKey = errors.New("missing api key")
	ErrEmptyPrompt   = errors.New("prompt is empty")
)

// ErrorClass is the normalized bucket a raw adapter error falls into,
// independent of the concrete provider. The Provider Adapter contract
// (spec.md §4.4) maps these onto types.ProviderError.
type ErrorClass string

const (
	ClassTransient   ErrorClass = "transient"
	ClassPermanent   ErrorClass = "permanent"
	ClassRateLimited ErrorClass = "rate_limited"
	ClassAuthFailed  ErrorClass = "auth_failed"
	ClassTimeout     ErrorClass = "timeout"
)

// Classify maps a raw error returned by a Provider.Generate call onto an
// ErrorClass, using *StatusError's HTTP status code when present and
// falling back to context-deadline/generic-network heuristics otherwise.
// Grounded on the teacher's AgentError{Retryable} shape, extended here
// with the finer-grained kinds spec.md §4.4 requires.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusTooManyRequests:
			return ClassRateLimited
		case statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden:
			return ClassAuthFailed
		case statusErr.Code == http.StatusRequestTimeout:
			return ClassTimeout
		case statusErr.Code >= 500:
			return ClassTransient
		case statusErr.Code >= 400:
			return ClassPermanent
		}
	}

	if errors.Is(err, ErrMissingAPIKey) {
		return ClassAuthFailed
	}
	if errors.Is(err, ErrEmptyPrompt) {
		return ClassPermanent
	}

	// Unclassified network-level errors (connection refused, DNS failure,
	// etc.) are treated as transient so the adapter's own retry loop gets
	// a chance before the Scheduler falls back.
	return ClassTransient
}

// Retryable reports whether the adapter's own bounded backoff (base
// 250ms, factor 2, cap 3 attempts) should retry an error of this class.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassTransient, ClassTimeout, ClassRateLimited:
		return true
	default:
		return false
	}
}
