// Package retry runs operations with bounded exponential backoff.
//
// Every error is treated as retryable: the executor does not classify
// failures, it only bounds attempts. Callers that must not repeat an
// operation should not route it through Do.
package retry

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts  = 5
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second
)

type Options struct {
	// MaxAttempts bounds the total number of calls, not just the retries.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Logger       logrus.FieldLogger
}

func (o *Options) setDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
}

// Delay returns the wait after the given failed attempt (1-based): the
// initial delay doubled per attempt, capped at max.
func Delay(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(math.Pow(2, float64(attempt-1))) * initial
	if d <= 0 || d > max {
		return max
	}
	return d
}

// Do calls fn until it succeeds or opts.MaxAttempts is reached, waiting
// between attempts. The wait honors ctx cancellation. On exhaustion the last
// error is returned unwrapped so callers can still inspect its type.
func Do[T any](ctx context.Context, operation string, opts Options, fn func(context.Context) (T, error)) (T, error) {
	opts.setDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}

		delay := Delay(attempt, opts.InitialDelay, opts.MaxDelay)
		opts.Logger.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay.String(),
		}).WithError(err).Warn("retrying failed operation")
		retryMetricsInstance().attempts.WithLabelValues(operation).Inc()

		if err := wait(ctx, delay); err != nil {
			return zero, err
		}
	}

	opts.Logger.WithFields(logrus.Fields{
		"operation": operation,
		"attempts":  opts.MaxAttempts,
	}).WithError(lastErr).Error("operation failed, attempts exhausted")
	retryMetricsInstance().exhausted.WithLabelValues(operation).Inc()
	return zero, lastErr
}

// Void is Do for operations without a result.
func Void(ctx context.Context, operation string, opts Options, fn func(context.Context) error) error {
	_, err := Do(ctx, operation, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func logrusNop() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
