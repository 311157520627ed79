// Package retry runs collaborator calls with a per-attempt timeout and bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

// Policy bounds a retried call
type Policy struct {
	Attempts       int           // total attempts including the first
	InitialBackoff time.Duration // wait before the second attempt
	MaxBackoff     time.Duration
	Timeout        time.Duration // per attempt, 0 means no timeout
}

// DefaultPolicy returns sensible defaults
func DefaultPolicy() Policy {
	return Policy{
		Attempts:       3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Timeout:        5 * time.Second,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, or the policy is exhausted.
// Validation errors are never retried.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		eb.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		eb.MaxInterval = p.MaxBackoff
	}
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := op(attemptCtx)
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
