package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("API rate limit exceeded"), true},
		{"timed out", errors.New("execution timed out"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"503", errors.New("server returned 503"), true},
		{"api key", errors.New("googleapi: Error 400: API key not valid"), false},
		{"forbidden", errors.New("403 forbidden"), false},
		{"unknown", errors.New("something odd happened"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsPermanent(context.DeadlineExceeded))
	assert.True(t, IsPermanent(errors.New("API key not valid")))
	assert.True(t, IsPermanent(errors.New("Error 404: model not found")))
	assert.False(t, IsPermanent(errors.New("429 too many requests")))
}

func TestCalculateDelay_Exponential(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, 100*time.Millisecond, CalculateDelay(base, 0, 0))
	assert.Equal(t, 200*time.Millisecond, CalculateDelay(base, 1, 0))
	assert.Equal(t, 400*time.Millisecond, CalculateDelay(base, 2, 0))
	assert.Equal(t, 100*time.Millisecond, CalculateDelay(base, -1, 0))
}

func TestCalculateDelay_JitterBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		d := CalculateDelay(base, 1, 25)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	assert.Equal(t, 3*time.Second, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(0))
}

func TestPolicy_Normalize(t *testing.T) {
	p := Policy{MaxRetries: -1, BaseDelay: -1, MaxJitterPercent: 500}.Normalize()
	assert.Equal(t, DefaultMaxRetries, p.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, p.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, p.MaxDelay)
	assert.Equal(t, DefaultMaxJitterPercent, p.MaxJitterPercent)

	zero := Policy{}.Normalize()
	assert.Equal(t, 0, zero.MaxRetries)
	assert.Equal(t, time.Duration(0), zero.BaseDelay)
}

func TestWait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_Elapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, Wait(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	require.NoError(t, Wait(context.Background(), 0))
}
