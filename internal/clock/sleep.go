// Package clock provides interruptible time helpers for worker loops.
package clock

import (
	"context"
	"time"
)

// SleepWithContext blocks for d or until ctx is canceled, whichever is first.
// Returns the context error when interrupted so loops can exit cleanly.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
