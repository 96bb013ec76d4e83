package join

import (
	"context"
	"time"
)

// Clock abstracts time so the join loop can be driven by a fake in
// tests. Sleep returns false when ctx was cancelled before the full
// duration elapsed.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}
