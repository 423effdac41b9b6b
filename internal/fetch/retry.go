package fetch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ExhaustedError is returned when every allowed retry has failed. It
// carries the last underlying error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// retryableStatuses are the HTTP responses worth retrying: rate limits
// and transient server errors. Other client errors fail immediately.
var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// RetryPolicy computes whether a failure is retryable and how long to
// back off before the next attempt.
type RetryPolicy struct {
	// MaxRetries bounds retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Factor     float64
}

// DefaultRetryPolicy returns the policy used against CPALMS: up to 3
// retries, 5s base delay doubling to a 60s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  5 * time.Second,
		MaxDelay:   60 * time.Second,
		Factor:     2.0,
	}
}

// Retryable decides whether err is worth another attempt. HTTP 429 and
// 5xx responses and transport-level failures are retryable; context
// cancellation and other HTTP statuses are terminal.
func (p RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, ok := retryableStatuses[statusErr.Code]
		return ok
	}
	// Anything else is a transport-level failure.
	return true
}

// Backoff returns the capped exponential delay before the n-th retry
// (1-based), with a uniform ±10% jitter applied after the cap.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Factor, float64(retry-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return jitter(time.Duration(delay))
}

// jitter shifts d by a uniformly random amount within ±10%.
func jitter(d time.Duration) time.Duration {
	spread := d / 10
	if spread <= 0 {
		return d
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(2*spread)))
	if err != nil {
		return d
	}
	return d - spread + time.Duration(n.Int64())
}

// pauser abstracts how the fetcher waits between attempts.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// timerPauser waits on a timer but exits early when the context ends.
type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// RetryingFetcher wraps a Fetcher with the retry policy.
type RetryingFetcher struct {
	inner  Fetcher
	policy RetryPolicy
	pause  pauser
	logger *zap.Logger
}

// NewRetryingFetcher wraps inner with policy.
func NewRetryingFetcher(inner Fetcher, policy RetryPolicy, logger *zap.Logger) *RetryingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingFetcher{
		inner:  inner,
		policy: policy,
		pause:  timerPauser{},
		logger: logger,
	}
}

// Fetch attempts the request, sleeping between retryable failures.
// Non-retryable errors return immediately; once MaxRetries retries have
// failed the result is an *ExhaustedError wrapping the last failure.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	for attempt := 1; ; attempt++ {
		page, err := f.inner.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		if !f.policy.Retryable(err) {
			return Page{}, err
		}
		if cerr := ctx.Err(); cerr != nil {
			return Page{}, cerr
		}
		if attempt > f.policy.MaxRetries {
			return Page{}, &ExhaustedError{Attempts: attempt, Last: err}
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests {
			rateLimitHitsTotal.Inc()
		}
		retriesTotal.Inc()

		delay := f.policy.Backoff(attempt)
		f.logger.Warn("Retrying fetch",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		f.pause.Pause(ctx, delay)
	}
}
