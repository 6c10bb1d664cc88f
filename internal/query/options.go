package query

import (
	"context"
	"time"

	"leetbot-cli/internal/api"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultGCTime     = 30 * time.Minute
	DefaultRetries    = 2
	DefaultRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// Options control freshness and retries for one read.
//
// Zero values are meaningful (StaleTime 0 means always stale, Retries 0 means a
// single attempt), so start from DefaultOptions and override.
type Options struct {
	StaleTime time.Duration
	// Retries is the number of additional attempts after the first failure.
	Retries int
	// RetryDelay is the base backoff; it doubles per attempt up to 30s.
	RetryDelay time.Duration
	// ShouldRetry filters which failures are worth another attempt. Nil retries everything.
	ShouldRetry func(error) bool
}

func DefaultOptions() Options {
	return Options{
		StaleTime:   DefaultStaleTime,
		Retries:     DefaultRetries,
		RetryDelay:  DefaultRetryDelay,
		ShouldRetry: DefaultShouldRetry,
	}
}

func (o Options) WithStaleTime(d time.Duration) Options {
	o.StaleTime = d
	return o
}

// DefaultShouldRetry refuses the API's definitive answers: "no problems found"
// and 404. Everything else is treated as transient.
func DefaultShouldRetry(err error) bool {
	if api.IsNoProblemsFound(err) {
		return false
	}
	if api.IsNotFound(err) {
		return false
	}
	return true
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}

// FetchFunc produces the value for a key. It receives the cache's background
// context, not the caller's: a fetch is shared by every reader that joined it.
type FetchFunc func(ctx context.Context) (any, error)

// withRetry calls fn until it succeeds, opts.Retries extra attempts are used
// up, opts.ShouldRetry refuses the failure, or ctx is cancelled. attempts is the
// number of times fn ran.
func withRetry(ctx context.Context, opts Options, fn FetchFunc) (v any, attempts int, err error) {
	for attempt := 0; ; attempt++ {
		v, err = fn(ctx)
		attempts = attempt + 1
		if err == nil {
			return v, attempts, nil
		}
		if attempt >= opts.Retries || ctx.Err() != nil {
			return nil, attempts, err
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			return nil, attempts, err
		}
		if d := retryDelay(opts.RetryDelay, attempt); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, attempts, err
			case <-t.C:
			}
		}
	}
}
