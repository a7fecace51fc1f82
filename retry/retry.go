// Package retry repeats operations failing with transient errors, such as a
// journal database locked by another process.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/ridge/quarry/tlog"
	"go.uber.org/zap"
)

// Backoff configures exponential delays between attempts. The first attempt
// is made at once, the second one after Min, and every later delay is Scale
// times the previous one, up to Max.
type Backoff struct {
	Min   time.Duration
	Max   time.Duration
	Scale float64

	// Attempts limits the number of attempts; 0 means unlimited
	Attempts int
}

// DefaultBackoff suits waiting for a lock held by another process
var DefaultBackoff = Backoff{
	Min:      5 * time.Millisecond,
	Max:      500 * time.Millisecond,
	Scale:    2.0,
	Attempts: 20,
}

// delays returns the delay before each attempt in turn, and false once no
// attempts are left
func (b Backoff) delays() func() (time.Duration, bool) {
	attempts := 0
	next := b.Min
	return func() (time.Duration, bool) {
		attempts++
		switch {
		case attempts == 1:
			return 0, true
		case b.Attempts != 0 && attempts > b.Attempts:
			return 0, false
		}
		delay := next
		next = min(time.Duration(float64(next)*b.Scale), b.Max)
		return delay, true
	}
}

type retriable struct {
	err error
}

func (r retriable) Error() string {
	return r.err.Error()
}

func (r retriable) Unwrap() error {
	return r.err
}

// Retriable wraps an error to tell Do that it should try again. Returns nil
// if err is nil.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return retriable{err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do calls f until it returns nil or an error not wrapped with Retriable,
// and returns that. When attempts run out, Do returns the last error
// unwrapped.
func Do(ctx context.Context, b Backoff, f func() error) error {
	startedAt := time.Now()
	delays := b.delays()
	var r retriable
	var lastMessage string
	for i := 0; ; i++ {
		logger := tlog.Get(ctx).With(zap.Int("attempts", i+1))

		delay, ok := delays()
		if !ok {
			logger.Debug("Retry failed after maximum number of attempts", zap.Error(r.err), zap.Duration("duration", time.Since(startedAt)))
			return r.err
		}
		if err := sleep(ctx, delay); err != nil {
			logger.Debug("Retry canceled", zap.Error(err), zap.Duration("duration", time.Since(startedAt)))
			return err
		}

		err := f()
		if !errors.As(err, &r) {
			if i > 0 && err == nil {
				logger.Debug("Retry succeeded", zap.Duration("duration", time.Since(startedAt)))
			}
			return err
		}
		if msg := r.err.Error(); msg != lastMessage {
			logger.Debug("Will retry", zap.Error(r.err))
			lastMessage = msg
		}
	}
}

// Do1 is a single return value version of Do
func Do1[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	var t T
	err := Do(ctx, b, func() error {
		var err error
		t, err = f()
		return err
	})
	return t, err
}
