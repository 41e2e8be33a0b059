package crawler

import (
	"context"
	"fmt"
	"time"
)

// PauseFunc blocks for delay or until ctx is done.
type PauseFunc func(ctx context.Context, delay time.Duration) error

// Pause waits for delay, returning early with the context error on cancellation.
func Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pause interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
