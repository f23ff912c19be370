// Package retry implements the backoff policy and retry executor used for
// chunk dispatch: exponential backoff with a ceiling and jitter, retryability
// classification over the api failure taxonomy, and a bounded attempt loop
// with a wall-clock time budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/lingodotdev/lingo-go/api"
)

// Config controls retry behavior. The zero value is usable: all fields fall
// back to the defaults below.
type Config struct {
	// MaxAttempts is the total number of tries, including the first one.
	// Zero means "use the default" (3), not "no retries"; the executor
	// always tries at least once. Use MaxAttempts: 1 to disable retries.
	MaxAttempts int
	// BackoffFactor is the base delay in seconds; attempt n waits
	// BackoffFactor * 2^(n-1), capped at MaxBackoff.
	BackoffFactor float64
	// MaxBackoff caps the exponential delay.
	MaxBackoff time.Duration
	// JitterRatio inflates every delay by a uniform random fraction in
	// [0, JitterRatio) to desynchronize concurrent retries. Zero means
	// "use the default"; set DisableJitter for deterministic backoff.
	JitterRatio float64
	// DisableJitter turns jitter off entirely.
	DisableJitter bool
	// RetryStatuses is the set of HTTP statuses worth retrying.
	RetryStatuses []int
	// TimeBudget bounds the total wall-clock time of one execution,
	// including backoff waits. 0 means unbounded.
	TimeBudget time.Duration
}

const (
	defaultMaxAttempts   = 3
	defaultBackoffFactor = 0.5
	defaultMaxBackoff    = 60 * time.Second
	defaultJitterRatio   = 0.25
)

func defaultRetryStatuses() []int {
	return []int{429, 500, 502, 503, 504}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = defaultBackoffFactor
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.DisableJitter {
		c.JitterRatio = 0
	} else if c.JitterRatio <= 0 {
		c.JitterRatio = defaultJitterRatio
	}
	if len(c.RetryStatuses) == 0 {
		c.RetryStatuses = defaultRetryStatuses()
	}
	return c
}

// Validate checks the ranges accepted for user-supplied configuration.
func (c Config) Validate() error {
	if c.MaxAttempts < 0 {
		return fmt.Errorf("retry: max attempts %d is negative", c.MaxAttempts)
	}
	if c.MaxAttempts > 10 {
		return fmt.Errorf("retry: max attempts %d exceeds limit 10", c.MaxAttempts)
	}
	if c.BackoffFactor != 0 && (c.BackoffFactor < 0.1 || c.BackoffFactor > 2.0) {
		return fmt.Errorf("retry: backoff factor %g outside [0.1, 2.0]", c.BackoffFactor)
	}
	if c.MaxBackoff != 0 && (c.MaxBackoff < time.Second || c.MaxBackoff > 300*time.Second) {
		return fmt.Errorf("retry: max backoff %s outside [1s, 300s]", c.MaxBackoff)
	}
	if c.JitterRatio < 0 || c.JitterRatio > 1 {
		return fmt.Errorf("retry: jitter ratio %g outside [0, 1]", c.JitterRatio)
	}
	for _, status := range c.RetryStatuses {
		if status < 400 || status > 599 {
			return fmt.Errorf("retry: status %d is not a 4xx/5xx code", status)
		}
	}
	return nil
}

// Policy decides whether a failure is worth another attempt and how long to
// wait before it.
type Policy struct {
	cfg       Config
	retryable map[int]struct{}
}

// NewPolicy builds a policy from cfg, filling defaults.
func NewPolicy(cfg Config) Policy {
	cfg = cfg.withDefaults()
	retryable := make(map[int]struct{}, len(cfg.RetryStatuses))
	for _, status := range cfg.RetryStatuses {
		retryable[status] = struct{}{}
	}
	return Policy{cfg: cfg, retryable: retryable}
}

// ShouldRetry reports whether the failure should be attempted again.
// Network failures are always retryable; API failures only when their status
// is in the configured set; everything else (bad requests, auth failures,
// unparseable responses) never. Returns false once attempt >= MaxAttempts
// regardless of classification.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.cfg.MaxAttempts {
		return false
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		_, ok := p.retryable[apiErr.StatusCode]
		return ok
	}
	return false
}

// Backoff computes the wait before the next attempt (attempt is 1-based).
// hint is a server-supplied minimum wait (0 = none); when valid it raises
// the exponential value before jitter is applied.
func (p Policy) Backoff(attempt int, hint time.Duration) time.Duration {
	delay := time.Duration(p.cfg.BackoffFactor * math.Pow(2, float64(attempt-1)) * float64(time.Second))
	if delay > p.cfg.MaxBackoff {
		delay = p.cfg.MaxBackoff
	}
	if hint > delay {
		delay = hint
	}
	if p.cfg.JitterRatio > 0 {
		delay += time.Duration(float64(delay) * p.cfg.JitterRatio * rand.Float64())
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// MaxAttempts exposes the normalized attempt cap.
func (p Policy) MaxAttempts() int { return p.cfg.MaxAttempts }

// TimeBudget exposes the normalized wall-clock budget (0 = unbounded).
func (p Policy) TimeBudget() time.Duration { return p.cfg.TimeBudget }

// Attempt records one failed try.
type Attempt struct {
	// Attempt is the 1-based attempt index.
	Attempt int
	// Err is the classified failure of this attempt.
	Err error
	// Elapsed is the time since the first attempt started.
	Elapsed time.Duration
	// Backoff is the wait computed after this failure (0 when terminal).
	Backoff time.Duration
}

// ExhaustedError is the terminal failure of an execution: either the failure
// was not retryable, the attempt cap was reached, or the time budget ran out.
type ExhaustedError struct {
	// Attempts is the full per-attempt failure history.
	Attempts []Attempt
	// LastErr is the failure of the final attempt.
	LastErr error
	// Elapsed is the total wall-clock time spent.
	Elapsed time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempt(s) over %s: %v",
		len(e.Attempts), e.Elapsed.Round(time.Millisecond), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Executor runs operations under a Policy.
type Executor struct {
	policy Policy
	log    zerolog.Logger
}

// NewExecutor builds an executor from cfg. Use zerolog.Nop() to silence it.
func NewExecutor(cfg Config, logger zerolog.Logger) *Executor {
	return &Executor{policy: NewPolicy(cfg), log: logger}
}

// Do runs op until it succeeds or retries are exhausted. Failures come back
// as *ExhaustedError carrying the full attempt history, so a non-retryable
// rejection is indistinguishable from exhaustion except by attempt count.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var history []Attempt
	start := time.Now()
	maxAttempts := e.policy.MaxAttempts()
	budget := e.policy.TimeBudget()

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				e.log.Info().
					Int("attempt", attempt).
					Dur("elapsed", time.Since(start)).
					Msg("succeeded after retries")
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		err = api.Classify(err)
		elapsed := time.Since(start)
		record := Attempt{Attempt: attempt, Err: err, Elapsed: elapsed}

		if !e.policy.ShouldRetry(err, attempt) {
			history = append(history, record)
			e.log.Error().
				Err(err).
				Int("attempts", attempt).
				Dur("elapsed", elapsed).
				Msg("retries exhausted")
			return zero, &ExhaustedError{Attempts: history, LastErr: err, Elapsed: elapsed}
		}

		backoff := e.policy.Backoff(attempt, retryHint(err))
		if budget > 0 && elapsed+backoff > budget {
			history = append(history, record)
			e.log.Error().
				Err(err).
				Int("attempts", attempt).
				Dur("budget", budget).
				Msg("time budget exceeded, giving up")
			return zero, &ExhaustedError{Attempts: history, LastErr: err, Elapsed: elapsed}
		}

		record.Backoff = backoff
		history = append(history, record)
		e.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("backoff", backoff).
			Msg("attempt failed, retrying")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryHint extracts the server-supplied minimum wait from a failure, if any.
func retryHint(err error) time.Duration {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
