package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy bounds a readiness wait.
type Policy struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = 2 * time.Second
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.Timeout <= 0 {
		p.Timeout = 2 * time.Minute
	}
	return p
}

// Wait runs the probe with capped exponential backoff until it passes, the
// policy timeout elapses, or the context is cancelled.
func Wait(ctx context.Context, logger *slog.Logger, probe Probe, policy Policy) error {
	policy = policy.withDefaults()

	backoff := retry.NewExponential(policy.Interval)
	backoff = retry.WithCappedDuration(policy.MaxInterval, backoff)
	backoff = retry.WithMaxDuration(policy.Timeout, backoff)

	started := time.Now()
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := probe.Check(ctx); err != nil {
			if logger != nil {
				logger.Debug("readiness check failed", "probe", probe.Name(), "attempt", attempt, "error", err)
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("service not ready after %s (%s): %w", time.Since(started).Round(time.Millisecond), probe.Name(), err)
	}
	if logger != nil {
		logger.Info("service ready", "probe", probe.Name(), "attempts", attempt, "elapsed", time.Since(started).Round(time.Millisecond).String())
	}
	return nil
}
