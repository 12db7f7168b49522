package microwave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_Until(t *testing.T) {
	p := Poller{Interval: time.Millisecond}

	calls := 0
	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPoller_CheckErrorStopsImmediately(t *testing.T) {
	p := Poller{Interval: time.Millisecond}
	boom := errors.New("bus gone")

	calls := 0
	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPoller_Timeout(t *testing.T) {
	p := Poller{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}

	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestPoller_ContextCancelled(t *testing.T) {
	p := Poller{Interval: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Until(ctx, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrPollTimeout)
}

func TestPoller_TimeoutDuringBlockedCheck(t *testing.T) {
	p := Poller{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}

	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		// a socket read interrupted by the poll deadline
		<-ctx.Done()
		return false, fmt.Errorf("bus: read reply to %q: %w", "*OPC?", os.ErrDeadlineExceeded)
	})
	assert.ErrorIs(t, err, ErrPollTimeout)
}
