// Package governor paces outbound provider calls and recovers from rate
// limiting.
//
// Each catalog adapter owns one Governor. Every network call goes through
// [Governor.Do], which enforces a minimum inter-request interval and, on
// HTTP 429, retries with exponential backoff while permanently widening
// the interval for the remainder of the run. The interval never shrinks
// back down: repeated 429s produce a monotonically more conservative pace.
package governor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/favx/favx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultInterval   = 500 * time.Millisecond
	defaultRetryAfter = 5 * time.Second
	defaultMaxRetries = 3
	maxInterval       = time.Minute
)

// Opts configures a Governor.
type Opts struct {
	Interval   time.Duration // baseline minimum inter-request interval
	RetryAfter time.Duration // fallback delay when a 429 has no Retry-After
	MaxRetries int           // retry budget per call
	Sleep      func(ctx context.Context, d time.Duration) error // injectable for tests
}

// Governor enforces per-adapter request pacing.
type Governor struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	interval   time.Duration
	retryAfter time.Duration
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a Governor with the given options, filling in defaults for
// zero values.
func New(opts Opts) *Governor {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = defaultRetryAfter
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}

	return &Governor{
		limiter:    rate.NewLimiter(rate.Every(opts.Interval), 1),
		interval:   opts.Interval,
		retryAfter: opts.RetryAfter,
		maxRetries: opts.MaxRetries,
		sleep:      opts.Sleep,
	}
}

// Interval returns the current minimum inter-request interval.
func (g *Governor) Interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interval
}

// Do runs fn under the pacing policy. A [shared.RateLimitError] from fn
// triggers backoff and retry up to the budget; any other error (or
// success) is returned immediately. An exhausted budget surfaces the last
// rate-limit error so the caller can record a single-item failure.
func (g *Governor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		rl, ok := shared.IsRateLimit(err)
		if !ok {
			return err
		}

		g.widen()

		if attempt >= g.maxRetries {
			return err
		}

		delay := rl.RetryAfter
		if delay <= 0 {
			delay = g.retryAfter
		}
		delay = delay << attempt
		delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))

		if serr := g.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// widen doubles the minimum inter-request interval, capped but never
// reduced.
func (g *Governor) widen() {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.interval * 2
	if next > maxInterval {
		next = maxInterval
	}
	if next > g.interval {
		g.interval = next
		g.limiter.SetLimit(rate.Every(next))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
