package clock

import (
	"context"
	"time"
)

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// SleepFunc pauses for the supplied duration unless the context ends first.
// Override in tests to collapse backoff and idle delays.
var SleepFunc = func(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Sleep is a thin wrapper around SleepFunc.
func Sleep(ctx context.Context, d time.Duration) { SleepFunc(ctx, d) }
