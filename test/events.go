package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// EventTimeout is how long AssertForefrontEvents waits for each event
var EventTimeout = 3 * time.Second

func receive[T any](ctx context.Context, ch <-chan T) (T, bool, error) {
	select {
	case val, ok := <-ch:
		return val, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// AssertForefrontEvents asserts that the expected list of events was received on the actual channel
func AssertForefrontEvents[T any](t *testing.T, actualCh <-chan T, expected ...T) bool {
	ok := true
	for i, e := range expected {
		res := func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), EventTimeout)
			defer cancel()

			val, valOK, err := receive(ctx, actualCh)
			if !assert.NoErrorf(t, err, "timeout", "index: %d", i) {
				return false
			}
			if !assert.Truef(t, valOK, "channel closed, index: %d", i) {
				return false
			}
			ok = ok && assert.Equal(t, e, val)
			return true
		}()
		if !res {
			return false
		}
	}
	return ok
}

// AssertEvents asserts that the expected list of events was received on the actual channel and no unexpected events are enqueued there
func AssertEvents[T any](t *testing.T, actualCh <-chan T, expected ...T) bool {
	if !AssertForefrontEvents(t, actualCh, expected...) {
		return false
	}

	ok := true
	for i := 0; i < cap(actualCh) && len(actualCh) > 0; i++ {
		val, valOK := <-actualCh
		if !valOK {
			break
		}
		assert.Fail(t, "unexpected event", "%#v", val)
		ok = false
	}
	return ok
}

// AssertNoEvents asserts that nothing arrives on the channel within the
// given period
func AssertNoEvents[T any](t *testing.T, actualCh <-chan T, period time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), period)
	defer cancel()

	val, valOK, err := receive(ctx, actualCh)
	if err != nil {
		return true
	}
	if valOK {
		return assert.Fail(t, "unexpected event", "%#v", val)
	}
	return assert.Fail(t, "channel closed")
}
