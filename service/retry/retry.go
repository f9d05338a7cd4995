package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/Luft21/owo-dac-laptop/internal/clock"
)

// Operation performs one attempt of a remote call. Returning retry=true
// without an error signals an application-level failure (the remote answered
// but refused the request) that still counts against the attempt budget.
type Operation func(ctx context.Context) (retry bool, err error)

// Config bounds a retried call.
type Config struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration `json:"backoff" yaml:"backoff"`
}

// Run invokes op until it succeeds, sleeping cfg.Backoff between attempts,
// up to cfg.MaxAttempts total attempts. It returns nil on the first
// successful attempt and the last observed error once the budget is
// exhausted. Context expiry aborts the loop early.
func Run(ctx context.Context, cfg Config, op Operation) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		again, err := op(ctx)
		if err == nil && !again {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("operation rejected on attempt %d", attempt)
		}
		if attempt < cfg.MaxAttempts {
			clock.Sleep(ctx, cfg.Backoff)
		}
	}
	return lastErr
}
