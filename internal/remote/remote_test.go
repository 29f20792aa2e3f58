package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoRetriesRecoverableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: connection refused", ErrUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	err := Do(context.Background(), "op", 3, func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestDoExhaustionKeepsKind(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "op", 2, func(context.Context) error {
		calls++
		return fmt.Errorf("%w: deadline", ErrTimeout)
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 2, calls)
}

func TestDoHonorsCancellationBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, "op", 3, func(context.Context) error {
		calls++
		cancel()
		return fmt.Errorf("%w: down", ErrUnavailable)
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		require.NoError(t, Classify(nil))
	})
	t.Run("deadline", func(t *testing.T) {
		err := Classify(fmt.Errorf("do: %w", context.DeadlineExceeded))
		require.ErrorIs(t, err, ErrTimeout)
	})
	t.Run("other", func(t *testing.T) {
		plain := errors.New("boom")
		require.ErrorIs(t, Classify(plain), plain)
	})
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(fmt.Errorf("x: %w", ErrUnavailable)))
	require.True(t, Retryable(fmt.Errorf("x: %w", ErrTimeout)))
	require.False(t, Retryable(errors.New("x")))
}
