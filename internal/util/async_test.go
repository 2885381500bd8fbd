package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deliveryhero/celery-go/internal/errs"
)

func TestWithTimeoutReturnsFnResultBeforeDeadline(t *testing.T) {
	v, err := WithTimeout(context.Background(), 50*time.Millisecond, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("got %d, %v; want 7, nil", v, err)
	}
}

func TestWithTimeoutFiresAfterDeadline(t *testing.T) {
	_, err := WithTimeout(context.Background(), 5*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	var timeoutErr *errs.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("got %v, want *errs.TimeoutError", err)
	}
}

func TestWithTimeoutZeroDurationRunsUnraced(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := WithTimeout(context.Background(), 0, func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestTimerFiresAfterDuration(t *testing.T) {
	start := time.Now()
	err := <-Timer(5 * time.Millisecond)
	if time.Since(start) < 5*time.Millisecond {
		t.Fatal("timer fired early")
	}
	var timeoutErr *errs.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("got %v, want *errs.TimeoutError", err)
	}
}
