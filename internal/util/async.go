package util

import (
	"context"
	"time"

	"github.com/deliveryhero/celery-go/internal/errs"
)

// WithTimeout races fn's result against a timer that fires after d. If
// d <= 0 the timer leg never fires and fn's own result (or ctx
// cancellation) decides the outcome.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if d <= 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(runCtx)
		done <- outcome{v, err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.val, o.err
	case <-timer.C:
		cancel()
		return zero, errs.NewTimeoutError(d.String())
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Timer returns a channel that receives a TimeoutError after d, for racing
// against drain waits and broker-level deadlines without the fn-wrapping
// WithTimeout requires.
func Timer(d time.Duration) <-chan error {
	c := make(chan error, 1)
	go func() {
		<-time.After(d)
		c <- errs.NewTimeoutError(d.String())
	}()
	return c
}
