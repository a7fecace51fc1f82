package test

import (
	"context"
	"testing"
	"time"

	"github.com/ridge/quarry/tlog"
)

// Context returns a new testing context.
//
// The context carries a logger writing at Debug level, the way run.Tool
// provides one to the program.
func Context(t *testing.T) context.Context {
	ctx := context.Background()
	return tlog.WithLogger(ctx, tlog.NewForTesting(t))
}

// ContextWithTimeout is a version of Context with a timeout.
//
// If the timeout expires, the test context is closed with
// context.DeadlineExceeded.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(Context(t), timeout)
	t.Cleanup(cancel)
	return ctx
}
