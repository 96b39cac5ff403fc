package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/jobqueue/internal/errs"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errs.Network("get_queues", errors.New("connection reset"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_AllFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errs.Network("get_job", errors.New("broken pipe"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, errs.ErrNetwork))
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestDo_NonRetryableReturnsImmediately(t *testing.T) {
	for _, cause := range []error{
		errs.InvalidArgument("get_queue", "queue %q not found", "x"),
		errs.Server("delete_queue", "queue is running"),
		errs.License("connect", "license expired"),
		errors.New("plain"),
	} {
		calls := 0
		err := Do(context.Background(), fastConfig(), func() error {
			calls++
			return cause
		})
		assert.Same(t, cause, err)
		assert.Equal(t, 1, calls)
	}
}

func TestDo_CustomClassifier(t *testing.T) {
	cfg := fastConfig()
	cfg.Retryable = func(error) bool { return true }

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return errors.New("flaky")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errs.Network("get_queues", errors.New("eof"))
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, calculateBackoff(tt.attempt, time.Second, 10*time.Second))
	}
}

func TestPoll(t *testing.T) {
	t.Run("immediately true", func(t *testing.T) {
		calls := 0
		err := Poll(time.Second, time.Millisecond, func() (bool, error) {
			calls++
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("true after a few polls", func(t *testing.T) {
		calls := 0
		err := Poll(time.Second, time.Millisecond, func() (bool, error) {
			calls++
			return calls == 4, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("deadline", func(t *testing.T) {
		start := time.Now()
		err := Poll(20*time.Millisecond, 5*time.Millisecond, func() (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, ErrDeadline)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("check error stops polling", func(t *testing.T) {
		boom := errs.Network("get_queue", errors.New("eof"))
		calls := 0
		err := Poll(time.Second, time.Millisecond, func() (bool, error) {
			calls++
			return false, boom
		})
		assert.Same(t, boom, err)
		assert.Equal(t, 1, calls)
	})
}
