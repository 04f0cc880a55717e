// pkg/backoff/backoff_test.go
package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eventhub-tools/ehreader/pkg/backoff"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", DevMode: true})
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	cfg := backoff.Config{MaxElapsedTime: time.Second}
	called := 0
	err := backoff.Execute(context.Background(), cfg, testLogger(t), func(ctx context.Context) error {
		called++
		return nil
	})
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if called != 1 {
		t.Errorf("expected 1 attempt, got %d", called)
	}
}

func TestExecute_EventualSuccess(t *testing.T) {
	cfg := backoff.Config{InitialInterval: 10 * time.Millisecond, Multiplier: 1, MaxElapsedTime: time.Second}
	attemptsBeforeSuccess := 3
	called := 0
	err := backoff.Execute(context.Background(), cfg, testLogger(t), func(ctx context.Context) error {
		called++
		if called < attemptsBeforeSuccess {
			return errors.New("fail")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if called != attemptsBeforeSuccess {
		t.Errorf("expected %d attempts, got %d", attemptsBeforeSuccess, called)
	}
}

func TestExecute_MaxRetriesExceeded(t *testing.T) {
	cfg := backoff.Config{InitialInterval: 10 * time.Millisecond, Multiplier: 1, MaxElapsedTime: 50 * time.Millisecond}
	called := 0
	err := backoff.Execute(context.Background(), cfg, testLogger(t), func(ctx context.Context) error {
		called++
		return errors.New("always fail")
	})
	var maxErr *backoff.ErrMaxRetries
	if !errors.As(err, &maxErr) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if maxErr.Attempts != called {
		t.Errorf("reported %d attempts, actual %d", maxErr.Attempts, called)
	}
}

func TestExecute_PermanentErrorStopsRetries(t *testing.T) {
	cfg := backoff.Config{InitialInterval: 10 * time.Millisecond}
	called := 0
	err := backoff.Execute(context.Background(), cfg, testLogger(t), func(ctx context.Context) error {
		called++
		return backoff.Permanent(errors.New("do not retry"))
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if called != 1 {
		t.Errorf("expected 1 attempt for permanent error, got %d", called)
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	cfg := backoff.Config{InitialInterval: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := backoff.Execute(ctx, cfg, testLogger(t), func(ctx context.Context) error {
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
}

func TestExecute_InvalidConfig(t *testing.T) {
	cfg := backoff.Config{RandomizationFactor: 2.0}
	err := backoff.Execute(context.Background(), cfg, testLogger(t), func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Fatal("expected validation error for RandomizationFactor > 1")
	}
}
