package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return nil
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{Attempts: 2, Delay: 200 * time.Millisecond, Sleep: noSleep}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	calls := 0
	slept := 0
	p := Policy{
		Attempts: 2,
		Delay:    200 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept++
			assert.Equal(t, 200*time.Millisecond, d)
			return nil
		},
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, slept)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("backend down")
	p := Policy{Attempts: 2, Sleep: noSleep}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestDoZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	p := Policy{Sleep: noSleep}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	p := Policy{Attempts: 3, Sleep: noSleep}

	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("should not retry")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
