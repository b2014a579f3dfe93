package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/fn"
)

var errBackend = errors.New("embedding backend down")

func failingCall(context.Context) error { return errBackend }
func okCall(context.Context) error      { return nil }

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	if b.State() != StateClosed {
		t.Fatalf("state = %v", b.State())
	}
}

func TestBreakerTripsAtThresholdAndRejects(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = b.Call(ctx, failingCall)
		if b.State() != StateClosed {
			t.Fatalf("tripped early after %d failures", i+1)
		}
	}
	_ = b.Call(ctx, failingCall)
	if b.State() != StateOpen {
		t.Fatalf("state = %v after threshold", b.State())
	}

	calls := 0
	err := b.Call(ctx, func(context.Context) error { calls++; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Fatal("open breaker must not invoke the call")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	_ = b.Call(ctx, failingCall)
	_ = b.Call(ctx, failingCall)
	_ = b.Call(ctx, okCall)

	// Two more failures are not enough to trip after the reset.
	_ = b.Call(ctx, failingCall)
	_ = b.Call(ctx, failingCall)
	if b.State() != StateClosed {
		t.Fatalf("state = %v", b.State())
	}
}

// trip drives a breaker with a frozen clock into the open state.
func trip(t *testing.T) (*Breaker, *time.Time) {
	t.Helper()
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: 5 * time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }

	ctx := context.Background()
	_ = b.Call(ctx, failingCall)
	_ = b.Call(ctx, failingCall)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	return b, &now
}

func TestBreakerHalfOpenThenCloses(t *testing.T) {
	b, now := trip(t)

	*now = now.Add(6 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v after timeout", b.State())
	}

	_ = b.Call(context.Background(), okCall)
	if b.State() != StateClosed {
		t.Fatalf("state = %v after probe success", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := trip(t)

	*now = now.Add(6 * time.Second)
	_ = b.Call(context.Background(), failingCall)
	if b.State() != StateOpen {
		t.Fatalf("state = %v after probe failure", b.State())
	}
}

func TestCallResultTrips(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Second})
	ctx := context.Background()

	embed := func(context.Context) fn.Result[[]float32] {
		return fn.Err[[]float32](errBackend)
	}

	_ = CallResult(b, ctx, embed)
	_ = CallResult(b, ctx, embed)

	r := CallResult(b, ctx, embed)
	if _, err := r.Unwrap(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCallResultSuccessPassesValue(t *testing.T) {
	b := NewBreaker(DefaultBreakerOpts)

	r := CallResult(b, context.Background(), func(context.Context) fn.Result[[]float32] {
		return fn.Ok([]float32{0.1, 0.2})
	})
	v, err := r.Unwrap()
	if err != nil || len(v) != 2 {
		t.Fatalf("result = (%v, %v)", v, err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v", b.State())
	}
}
