package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingodotdev/lingo-go/api"
)

// ---------------------------------------------------------------------------
// Policy.Backoff
// ---------------------------------------------------------------------------

func TestBackoff_ExponentialGrowth(t *testing.T) {
	p := NewPolicy(Config{BackoffFactor: 0.5, MaxBackoff: 60 * time.Second, DisableJitter: true})

	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
	}
	for i, w := range want {
		if got := p.Backoff(i+1, 0); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	p := NewPolicy(Config{BackoffFactor: 0.5, MaxBackoff: 2 * time.Second, DisableJitter: true})

	if got := p.Backoff(5, 0); got != 2*time.Second {
		t.Errorf("Backoff(5) = %s, want 2s", got)
	}
	if got := p.Backoff(10, 0); got != 2*time.Second {
		t.Errorf("Backoff(10) = %s, want 2s", got)
	}
}

func TestBackoff_ServerHintRaisesDelay(t *testing.T) {
	p := NewPolicy(Config{BackoffFactor: 0.5, MaxBackoff: 2 * time.Second, DisableJitter: true})

	// A hint above the capped exponential value wins, even past the cap.
	if got := p.Backoff(1, 5*time.Second); got != 5*time.Second {
		t.Errorf("Backoff(1, 5s) = %s, want 5s", got)
	}
	// A hint below the exponential value is ignored.
	if got := p.Backoff(3, time.Second); got != 2*time.Second {
		t.Errorf("Backoff(3, 1s) = %s, want 2s", got)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	p := NewPolicy(Config{BackoffFactor: 1.0, MaxBackoff: 60 * time.Second, JitterRatio: 0.25})

	base := 2 * time.Second // attempt 2
	for i := 0; i < 100; i++ {
		got := p.Backoff(2, 0)
		if got < base || got >= base+time.Duration(0.25*float64(base)) {
			t.Fatalf("Backoff(2) = %s outside [%s, %s)", got, base, base+500*time.Millisecond)
		}
	}
}

func TestBackoff_DefaultConfigJitters(t *testing.T) {
	// The zero-value config must jitter: concurrent chunks rate-limited at
	// the same moment would otherwise retry in lockstep.
	p := NewPolicy(Config{})

	base := time.Second // attempt 2 at the default 0.5 factor
	limit := base + time.Duration(defaultJitterRatio*float64(base))

	seen := map[time.Duration]struct{}{}
	for i := 0; i < 50; i++ {
		got := p.Backoff(2, 0)
		if got < base || got >= limit {
			t.Fatalf("Backoff(2) = %s outside [%s, %s)", got, base, limit)
		}
		seen[got] = struct{}{}
	}
	if len(seen) == 1 {
		t.Error("Backoff(2) is constant across 50 calls, expected jitter")
	}
}

func TestBackoff_DisableJitter(t *testing.T) {
	p := NewPolicy(Config{DisableJitter: true})

	for i := 0; i < 10; i++ {
		if got := p.Backoff(2, 0); got != time.Second {
			t.Fatalf("Backoff(2) = %s, want exactly 1s", got)
		}
	}
}

// ---------------------------------------------------------------------------
// Policy.ShouldRetry
// ---------------------------------------------------------------------------

func TestShouldRetry(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 3})

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"network error", &api.NetworkError{Err: fmt.Errorf("refused")}, 1, true},
		{"rate limited", &api.Error{StatusCode: 429}, 1, true},
		{"server error", &api.Error{StatusCode: 503}, 2, true},
		{"bad request", &api.Error{StatusCode: 400}, 1, false},
		{"auth failure", &api.Error{StatusCode: 401}, 1, false},
		{"malformed response", &api.ResponseError{Err: fmt.Errorf("bad json")}, 1, false},
		{"plain error", fmt.Errorf("boom"), 1, false},
		{"attempts exhausted", &api.NetworkError{Err: fmt.Errorf("refused")}, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.err, tt.attempt); got != tt.want {
				t.Errorf("ShouldRetry(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestShouldRetry_CustomStatuses(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 3, RetryStatuses: []int{429}})

	if p.ShouldRetry(&api.Error{StatusCode: 500}, 1) {
		t.Error("500 should not retry with a 429-only status set")
	}
	if !p.ShouldRetry(&api.Error{StatusCode: 429}, 1) {
		t.Error("429 should retry")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("zero config: %v", err)
	}
	if err := (Config{MaxAttempts: -1}).Validate(); err == nil {
		t.Error("expected error for negative max attempts")
	}
	if err := (Config{MaxAttempts: 11}).Validate(); err == nil {
		t.Error("expected error for max attempts above the limit")
	}
	// Zero attempts means "use the default" and is accepted.
	if err := (Config{MaxAttempts: 0}).Validate(); err != nil {
		t.Errorf("zero attempts: %v", err)
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := NewPolicy(Config{})
	if p.MaxAttempts() != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts())
	}
	if !p.ShouldRetry(&api.Error{StatusCode: 502}, 1) {
		t.Error("502 should be retryable by default")
	}
}

// ---------------------------------------------------------------------------
// Do
// ---------------------------------------------------------------------------

// fastExecutor keeps test backoffs in the microsecond range. NewExecutor does
// not range-check, so factors below the user-facing minimum are fine here.
func fastExecutor(maxAttempts int) *Executor {
	return NewExecutor(Config{
		MaxAttempts:   maxAttempts,
		BackoffFactor: 0.0001,
		DisableJitter: true,
	}, zerolog.Nop())
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastExecutor(3), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want ok after 1", got, calls)
	}
}

func TestDo_RecoversAfterRetryableFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastExecutor(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &api.Error{StatusCode: 500}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls, want ok after 3", got, calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastExecutor(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, &api.NetworkError{Err: fmt.Errorf("refused")}
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 3 {
		t.Fatalf("history length = %d, want 3", len(exhausted.Attempts))
	}
	for i, a := range exhausted.Attempts {
		if a.Attempt != i+1 {
			t.Errorf("history[%d].Attempt = %d, want %d", i, a.Attempt, i+1)
		}
		if a.Err == nil {
			t.Errorf("history[%d].Err is nil", i)
		}
	}
	// The terminal attempt records no backoff.
	if last := exhausted.Attempts[2]; last.Backoff != 0 {
		t.Errorf("terminal backoff = %s, want 0", last.Backoff)
	}

	var netErr *api.NetworkError
	if !errors.As(err, &netErr) {
		t.Error("ExhaustedError should unwrap to the last failure")
	}
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastExecutor(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, &api.Error{StatusCode: 400}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 1 {
		t.Errorf("history length = %d, want 1", len(exhausted.Attempts))
	}
}

func TestDo_ClassifiesUnknownErrors(t *testing.T) {
	_, err := Do(context.Background(), fastExecutor(3), func(ctx context.Context) (int, error) {
		return 0, fmt.Errorf("something odd")
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 1 {
		t.Errorf("unknown errors should not be retried, got %d attempts", len(exhausted.Attempts))
	}
}

func TestDo_TimeBudget(t *testing.T) {
	exec := NewExecutor(Config{
		MaxAttempts:   5,
		BackoffFactor: 0.5,
		DisableJitter: true,
		TimeBudget:    time.Millisecond,
	}, zerolog.Nop())

	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), exec, func(ctx context.Context) (int, error) {
		calls++
		return 0, &api.Error{StatusCode: 500}
	})
	// The 500ms first backoff would blow the 1ms budget, so Do gives up
	// without sleeping.
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Do slept %s despite an exceeded budget", elapsed)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T, want *ExhaustedError", err)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, fastExecutor(5), func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &api.Error{StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_AlwaysTriesOnce(t *testing.T) {
	// Even a nonsensical attempt cap still yields one try.
	exec := NewExecutor(Config{MaxAttempts: -5, BackoffFactor: 0.0001}, zerolog.Nop())
	calls := 0
	got, err := Do(context.Background(), exec, func(ctx context.Context) (string, error) {
		calls++
		return "once", nil
	})
	if err != nil || got != "once" || calls != 1 {
		t.Errorf("got %q, err %v, calls %d", got, err, calls)
	}
}

func TestRetryHint(t *testing.T) {
	if got := retryHint(&api.Error{StatusCode: 429, RetryAfter: 3 * time.Second}); got != 3*time.Second {
		t.Errorf("got %s, want 3s", got)
	}
	if got := retryHint(&api.NetworkError{Err: fmt.Errorf("x")}); got != 0 {
		t.Errorf("got %s, want 0", got)
	}
}
