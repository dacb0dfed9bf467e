package exporter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryBase = 100 * time.Millisecond
	retryCeiling     = 10 * time.Second
)

// backoff retries a source read with doubling waits capped at retryCeiling.
type backoff struct {
	retries int
	base    time.Duration
	logger  *zap.Logger
}

func newBackoff(retries int, base time.Duration, logger *zap.Logger) backoff {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = defaultRetryBase
	}
	return backoff{retries: retries, base: base, logger: logger}
}

// do runs fn until it succeeds or the retries are spent.
func (b backoff) do(ctx context.Context, op string, fn func(context.Context) error, fields ...zap.Field) error {
	wait := b.base
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > b.retries {
			return fmt.Errorf("%s after %d attempts: %w", op, attempt, err)
		}

		b.logger.Warn(op+" failed, retrying", append(fields,
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)...)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, retryCeiling)
	}
}
