package streamcontrol

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), RetryPolicy{
		MaxAttempts:         10,
		ResourceInUseSleep:  0,
		ThrottleBackoffUnit: 0,
		ThrottleBackoffCap:  0,
		ThrottleAttemptCap:  20,
	}, "TestOp", func() error {
		attempts++
		if attempts < 3 {
			return ErrShardMutating
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryFatalErrorsBubbleImmediately(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), DefaultRetryPolicy(), "TestOp", func() error {
		attempts++
		return ErrInvalidArgument
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsAttemptCap(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), RetryPolicy{
		MaxAttempts:         3,
		ResourceInUseSleep:  0,
		ThrottleBackoffUnit: 0,
		ThrottleBackoffCap:  0,
		ThrottleAttemptCap:  20,
	}, "TestOp", func() error {
		attempts++
		return ErrShardMutating
	})
	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 4) // MaxAttempts plus the permanent-error attempt
}

func TestWrapSDKErrorPassesThroughUnknown(t *testing.T) {
	base := fmt.Errorf("some other failure")
	assert.Equal(t, base, wrapSDKError(base))
}
