package playback

import (
	"context"
	"time"
)

// Clock is the scheduler's only source of time and its only way to block.
type Clock interface {
	Now() time.Time
	// WaitUntil blocks until deadline or until ctx is done, whichever
	// comes first, and returns ctx.Err() in the latter case.
	WaitUntil(ctx context.Context, deadline time.Time) error
}

// WallClock is the monotonic system clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) WaitUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
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
