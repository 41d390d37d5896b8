package migrate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/enfyra/server-sub005/internal/syncerr"
)

const (
	// maxAttempts bounds the deadlock retry loop.
	maxAttempts = 3
	// baseBackoff doubles per attempt: 1s, 2s, 4s.
	baseBackoff = 1 * time.Second
	// maxBackoff caps the exponential growth.
	maxBackoff = 5 * time.Second
	// attemptTimeout bounds each individual attempt.
	attemptTimeout = 10 * time.Second
)

// IsDeadlock reports whether err is a transient lock-contention failure that
// is safe to retry: a driver-reported deadlock/lock-wait code or a message
// that names one.
func IsDeadlock(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40P01 deadlock_detected, 40001 serialization_failure.
		if pqErr.Code == "40P01" || pqErr.Code == "40001" {
			return true
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1213 deadlock, 1205 lock wait timeout.
		if myErr.Number == 1213 || myErr.Number == 1205 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "try restarting transaction")
}

// backoffFor returns the sleep before retrying attempt (1-based).
func backoffFor(attempt int) time.Duration {
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// withRetry runs fn up to maxAttempts times, retrying only deadlock-class
// failures with exponential backoff. Each attempt gets its own timeout.
// Fatal errors and non-lock failures surface immediately.
func withRetry(ctx context.Context, logger *slog.Logger, label string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if !IsDeadlock(err) {
			return err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		wait := backoffFor(attempt)
		logger.Warn("lock contention, retrying",
			"operation", label,
			"attempt", attempt,
			"backoff", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return syncerr.Wrap(syncerr.ErrRetryExhausted, lastErr, "retries exhausted on lock contention").
		With("operation", label).
		With("attempts", maxAttempts)
}
