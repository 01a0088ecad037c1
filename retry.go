package auth

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/gokit/resilience"
)

// transientRetry retries a store unit of work once when the failure comes from
// contention rather than an invariant violation.
func transientRetry(logger Logger, op string) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		BackoffFactor:  2.0,
		RetryIf:        IsTransientStoreError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			if logger != nil {
				logger.Warn("retrying store operation after transient failure", "op", op, "attempt", attempt, "backoff", backoff, "error", err)
			}
		},
	}
}

// withRetry runs fn at most twice
func withRetry[T any](ctx context.Context, logger Logger, op string, fn func() (T, error)) (T, error) {
	return resilience.Retry(ctx, transientRetry(logger, op), fn)
}

// withRetryFunc is withRetry for units of work without a result
func withRetryFunc(ctx context.Context, logger Logger, op string, fn func() error) error {
	return resilience.RetryFunc(ctx, transientRetry(logger, op), fn)
}

var transientMarkers = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"could not serialize access",
	"sqlstate 40001",
	"deadlock detected",
	"sqlstate 40p01",
	"current transaction is aborted",
	"sqlstate 25p02",
}

// IsTransientStoreError classifies serialization conflicts and lock contention
func IsTransientStoreError(err error) bool {
	if err == nil {
		return false
	}
	if isUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "refresh_tokens") {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}
