// Package retry wraps operations with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"framelift/internal/domain"
)

// Policy configures how an operation is retried. Retryable decides which
// errors are worth another attempt; when nil, only errors marked transient
// by the domain are retried. Configuration and capability errors are never
// retried regardless of the predicate.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// Execute runs op until it succeeds, a permanent error occurs, the attempt
// budget is exhausted, or ctx is cancelled. The operation's own last error
// is returned on exhaustion.
func (p Policy) Execute(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.MaxInterval = p.MaxDelay
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if neverRetry(err) || !p.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return domain.IsTransient(err)
}

func neverRetry(err error) bool {
	return errors.Is(err, domain.ErrInvalidMode) ||
		errors.Is(err, domain.ErrInvalidParam) ||
		errors.Is(err, domain.ErrCapabilityUnavailable)
}
