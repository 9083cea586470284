package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWrap(t *testing.T) {
	base := stderrors.New("boom")
	wrapped := Wrap(base, "reading %s", "config")

	if wrapped.Error() != "reading config: boom" {
		t.Errorf("unexpected message: %s", wrapped.Error())
	}
	if !stderrors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to the base error")
	}
	if Wrap(nil, "context") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestTerminalError(t *testing.T) {
	err := NewTerminalError(400, "unknown cluster")

	if !IsTerminal(err) {
		t.Error("expected terminal error to be detected")
	}

	var te *TerminalError
	if !As(err, &te) {
		t.Fatal("expected As to match TerminalError")
	}
	if te.StatusCode != 400 || te.Body != "unknown cluster" {
		t.Errorf("wrong fields: status=%d body=%q", te.StatusCode, te.Body)
	}
}

func TestIsTerminalThroughWrapping(t *testing.T) {
	inner := NewTerminalError(400, "rejected")
	wrapped := fmt.Errorf("delivery failed: %w", inner)

	if !IsTerminal(wrapped) {
		t.Error("terminal error should be detected through wrapping")
	}
	if IsTerminal(stderrors.New("transient")) {
		t.Error("plain error must not be terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil must not be terminal")
	}
}

func TestRetryFixedSucceedsEventually(t *testing.T) {
	attempts := 0
	err := RetryFixed("test op", RetryConfig{MaxAttempts: 5, Delay: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryFixedExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := RetryFixed("test op", RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		attempts++
		return stderrors.New("always fails")
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "test op") {
		t.Errorf("exhaustion error should carry the operation name: %v", err)
	}
}

func TestRetryFixedStopsOnTerminalError(t *testing.T) {
	attempts := 0
	terminal := NewTerminalError(400, "bad record")
	err := RetryFixed("test op", RetryConfig{MaxAttempts: 10, Delay: time.Millisecond}, func() error {
		attempts++
		return terminal
	})

	if attempts != 1 {
		t.Errorf("terminal error must stop retries, got %d attempts", attempts)
	}
	if !IsTerminal(err) {
		t.Errorf("expected the terminal error back, got %v", err)
	}
}
