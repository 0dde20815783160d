package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobBackoffDelay_ExponentialWithCap(t *testing.T) {
	// jitter is ±10%, so assert on the expected midpoint's bounding range
	// rather than an exact value.
	cases := []struct {
		attempt int
		base    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{5, 480 * time.Second},
		{6, jobRetryCap}, // 960s would exceed the 10m cap
	}

	for _, c := range cases {
		d := jobBackoffDelay(c.attempt)
		expected := c.base
		if expected > jobRetryCap {
			expected = jobRetryCap
		}
		lower := time.Duration(float64(expected) * 0.9)
		upper := time.Duration(float64(expected) * 1.1)
		assert.GreaterOrEqual(t, d, lower, "attempt %d", c.attempt)
		assert.LessOrEqual(t, d, upper, "attempt %d", c.attempt)
	}
}

func TestDoWithResult_RetriesUntilSuccess(t *testing.T) {
	retryer := NewRetryer(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})

	var calls int
	result, err := DoWithResult(context.Background(), retryer, func(attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_StopsOnNonRetryable(t *testing.T) {
	sentinel := errors.New("permanent")
	retryer := NewRetryer(RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, sentinel) },
	})

	var calls int
	_, err := DoWithResult(context.Background(), retryer, func(int) (string, error) {
		calls++
		return "", sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}
