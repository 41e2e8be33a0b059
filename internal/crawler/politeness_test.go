package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPauseWaitsForDelay(t *testing.T) {
	t.Parallel()

	start := time.Now()
	if err := Pause(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("expected pause of at least 20ms, got %v", elapsed)
	}
}

func TestPauseReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Pause(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPauseZeroDelay(t *testing.T) {
	t.Parallel()

	if err := Pause(context.Background(), 0); err != nil {
		t.Fatalf("Pause(0) error = %v", err)
	}
}
