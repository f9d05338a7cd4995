package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Luft21/owo-dac-laptop/internal/clock"
)

func TestRunFirstAttemptSucceeds(t *testing.T) {
	var calls int32
	err := Run(context.Background(), Config{MaxAttempts: 3, Backoff: time.Second}, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	restore := clock.SleepFunc
	clock.SleepFunc = func(ctx context.Context, d time.Duration) {}
	defer func() { clock.SleepFunc = restore }()

	var calls int32
	err := Run(context.Background(), Config{MaxAttempts: 3, Backoff: time.Second}, func(ctx context.Context) (bool, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return false, errors.New("transient")
		}
		return false, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestRunExhaustsBudget(t *testing.T) {
	restore := clock.SleepFunc
	var slept []time.Duration
	clock.SleepFunc = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }
	defer func() { clock.SleepFunc = restore }()

	boom := errors.New("boom")
	var calls int32
	err := Run(context.Background(), Config{MaxAttempts: 3, Backoff: 2 * time.Second}, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), calls)
	// backoff runs between attempts only, never after the last one
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, slept)
}

func TestRunApplicationRejection(t *testing.T) {
	restore := clock.SleepFunc
	clock.SleepFunc = func(ctx context.Context, d time.Duration) {}
	defer func() { clock.SleepFunc = restore }()

	var calls int32
	err := Run(context.Background(), Config{MaxAttempts: 2, Backoff: time.Millisecond}, func(ctx context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil // remote answered but refused
	})
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, Config{MaxAttempts: 3, Backoff: time.Second}, func(ctx context.Context) (bool, error) {
		t.Fatal("operation must not run on cancelled context")
		return false, nil
	})
	assert.Error(t, err)
}
