package orchestrator

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass groups provider failures for logging and diagnostics. Failover
// proceeds regardless of class; the class tells operators whether the next
// attempt against the same provider could ever succeed.
type ErrorClass int

const (
	// ErrorClassTransient covers timeouts, network faults, and 5xx responses.
	ErrorClassTransient ErrorClass = iota
	// ErrorClassAuth covers credential problems (401/403); retrying the same
	// provider without a config change is pointless.
	ErrorClassAuth
	// ErrorClassBadRequest covers 4xx responses such as unknown model IDs.
	ErrorClassBadRequest
	// ErrorClassUnknown covers everything else.
	ErrorClassUnknown
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassAuth:
		return "auth"
	case ErrorClassBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// ClassifyProviderError buckets a model-call error by inspecting well-known
// status codes and network failure strings.
func ClassifyProviderError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorClassTransient
	}
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key"):
		return ErrorClassAuth
	case strings.Contains(lower, "500") ||
		strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "eof"):
		return ErrorClassTransient
	case strings.Contains(lower, "400") ||
		strings.Contains(lower, "404") ||
		strings.Contains(lower, "model not found") ||
		strings.Contains(lower, "does not exist"):
		return ErrorClassBadRequest
	}
	return ErrorClassUnknown
}
