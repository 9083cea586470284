// Package errors provides error helpers shared across the ingest sensor:
// context wrapping, a terminal-failure error type for the delivery stage,
// and a fixed-delay retry runner.
package errors

import (
	"fmt"
	"time"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
)

// Wrap wraps an error with additional context
func Wrap(err error, context string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	contextMsg := fmt.Sprintf(context, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}

// TerminalError marks a failure that must not be retried, such as a
// definitive client-error response from the collector. It carries the
// response status and body for the caller to surface.
type TerminalError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TerminalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("terminal failure (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("terminal failure: %v", e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// NewTerminalError creates a terminal error from a collector response
func NewTerminalError(statusCode int, body string) error {
	return &TerminalError{StatusCode: statusCode, Body: body}
}

// IsTerminal reports whether an error is terminal and must not be retried
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	var te *TerminalError
	return As(err, &te)
}

// As is a narrow errors.As for the package's own error types
func As(err error, target interface{}) bool {
	for err != nil {
		if te, ok := err.(*TerminalError); ok {
			if t, ok := target.(**TerminalError); ok {
				*t = te
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// RetryConfig defines fixed-delay retry behavior
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// RetryFixed executes fn up to MaxAttempts times, sleeping the fixed delay
// between attempts. Terminal errors short-circuit immediately. On exhaustion
// the last error is returned wrapped with the operation name.
func RetryFixed(operation string, config RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("Operation '%s' succeeded after %d attempts", operation, attempt)
			}
			return nil
		}

		if IsTerminal(err) {
			logger.Error("Operation '%s' failed terminally: %v", operation, err)
			return err
		}

		lastErr = err
		if attempt == config.MaxAttempts {
			break
		}

		logger.Warn("Operation '%s' failed (attempt %d/%d): %v. Retrying in %v...",
			operation, attempt, config.MaxAttempts, err, config.Delay)
		time.Sleep(config.Delay)
	}

	return fmt.Errorf("operation '%s' failed after %d attempts: %w", operation, config.MaxAttempts, lastErr)
}

// SafeClose closes a resource and logs any error instead of returning it
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("Failed to close %s: %v", resourceName, err)
	}
}
