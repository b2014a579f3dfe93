package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures exponential backoff.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry is a reasonable policy for talking to local services.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// backoff returns the sleep before the next attempt, doubling base each
// call at the caller's side.
func (o RetryOpts) backoff(base time.Duration) time.Duration {
	d := base
	if o.Jitter {
		d = time.Duration(float64(base) * (0.5 + rand.Float64()))
	}
	if d > o.MaxWait {
		d = o.MaxWait
	}
	return d
}

// Retry runs f up to MaxAttempts times, sleeping with exponential backoff
// between failures. Context cancellation ends the loop immediately.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	var res Result[T]
	base := opts.InitialWait

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		res = f(ctx)
		if res.IsOk() || attempt == opts.MaxAttempts-1 {
			return res
		}

		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(opts.backoff(base)):
		}

		base *= 2
		if base > opts.MaxWait {
			base = opts.MaxWait
		}
	}
	return res
}
