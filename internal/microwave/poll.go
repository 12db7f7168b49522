package microwave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultPollInterval is the fixed retry interval for status polling
const DefaultPollInterval = 200 * time.Millisecond

var errNotYet = errors.New("condition not reached")

// Poller repeats a status check at a fixed interval until it reports done.
// A zero Timeout waits until the context is cancelled.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Until calls check until it returns true or an error. Errors from check are
// returned as-is without further retries.
func (p Poller) Until(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pollCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	operation := func() error {
		done, err := check(pollCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotYet
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(interval), pollCtx))
	// a query cut short by the poll deadline fails with a bus error, not ctx.Err()
	if err != nil && ctx.Err() == nil && pollCtx.Err() != nil {
		return fmt.Errorf("%w after %s: %v", ErrPollTimeout, p.Timeout, err)
	}
	return err
}
