package streamcontrol

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RetryPolicy carries the numeric knobs from spec §4.2's retry policy. The
// looping and cancellation plumbing come from cenkalti/backoff/v4; these
// fields set the exact wait between attempts, with no jitter added.
type RetryPolicy struct {
	MaxAttempts           int
	ResourceInUseSleep    time.Duration
	ThrottleBackoffUnit   time.Duration
	ThrottleBackoffCap    time.Duration
	ThrottleAttemptCap    int
}

// DefaultRetryPolicy is spec §4.2's policy: up to 10 attempts, 1s sleep on
// "resource in use", exponential backoff on throttling capped at 2s per call
// with an attempt cap of 20.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         10,
		ResourceInUseSleep:  time.Second,
		ThrottleBackoffUnit: 100 * time.Millisecond,
		ThrottleBackoffCap:  2 * time.Second,
		ThrottleAttemptCap:  20,
	}
}

// withRetry wraps a single control-plane call with the spec's retry policy.
// Non-retryable errors (invalid argument, invalid parameter combination,
// missing required parameter) bubble up immediately, per spec.
func withRetry(ctx context.Context, policy RetryPolicy, op string, fn func() error) error {
	attempt := 0
	inner := &boundedBackoff{policy: policy, attempt: &attempt}
	b := backoff.WithContext(inner, ctx)

	return backoff.RetryNotify(func() error {
		attempt++
		if attempt > policy.MaxAttempts {
			return backoff.Permanent(errors.New("streamcontrol: retry attempts exhausted for " + op))
		}
		err := fn()
		if err == nil {
			return nil
		}
		inner.SetLastErr(err)
		if classify(err) == classFatal {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"wait":    wait,
		}).Warn("streamcontrol: retrying transient error")
	})
}

// boundedBackoff implements backoff.BackOff directly so the interval it
// hands back matches spec's two distinct retry shapes (fixed 1s sleep for
// "resource in use", capped exponential for throttling) rather than the
// library's default single exponential curve.
type boundedBackoff struct {
	policy  RetryPolicy
	attempt *int
	lastErr error
}

func (b *boundedBackoff) Reset() {}

func (b *boundedBackoff) NextBackOff() time.Duration {
	switch classify(b.lastErr) {
	case classRetryResourceInUse:
		return b.policy.ResourceInUseSleep
	case classRetryThrottled:
		if *b.attempt > b.policy.ThrottleAttemptCap {
			return backoff.Stop
		}
		d := b.policy.ThrottleBackoffUnit << uint(*b.attempt)
		if d > b.policy.ThrottleBackoffCap || d <= 0 {
			d = b.policy.ThrottleBackoffCap
		}
		return d
	default:
		return backoff.Stop
	}
}

// SetLastErr lets withRetry record the error NextBackOff should react to.
// cenkalti/backoff's RetryNotify does not pass the operation's error into
// NextBackOff, so the wrapper threads it through this setter just before
// each retry decision.
func (b *boundedBackoff) SetLastErr(err error) { b.lastErr = err }
