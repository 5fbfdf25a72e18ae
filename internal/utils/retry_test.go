package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
		delay    time.Duration
	}{
		{
			name:     "bad gateway retries",
			err:      &StatusError{Code: 502, Status: "502 Bad Gateway"},
			expected: true,
			delay:    time.Second,
		},
		{
			name:     "rate limited retries with longer backoff",
			err:      fmt.Errorf("failed to get height: %w", &StatusError{Code: 429}),
			expected: true,
			delay:    5 * time.Second,
		},
		{
			name:     "cloudflare 524 retries",
			err:      &StatusError{Code: 524},
			expected: true,
			delay:    5 * time.Second,
		},
		{
			name:     "transport error retries",
			err:      &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			expected: true,
			delay:    time.Second,
		},
		{
			name:     "bad request does not retry",
			err:      &StatusError{Code: 400},
			expected: false,
		},
		{
			name:     "internal error does not retry",
			err:      &StatusError{Code: 500},
			expected: false,
		},
		{
			name:     "open breaker does not retry",
			err:      gobreaker.ErrOpenState,
			expected: false,
		},
		{
			name:     "canceled does not retry",
			err:      fmt.Errorf("get: %w", context.Canceled),
			expected: false,
		},
		{
			name:     "plain error does not retry",
			err:      errors.New("invalid reply"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, delay := ShouldRetry(tt.err)
			require.Equal(t, tt.expected, got)
			require.Equal(t, tt.delay, delay)
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	unavailable := &StatusError{Code: 503, Status: "503 Service Unavailable"}
	policy := RetryPolicy{MaxRetries: 2, MaxDelay: time.Millisecond}

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return unavailable
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return unavailable
		})
		require.ErrorIs(t, err, unavailable)
		require.Equal(t, 3, calls)
	})

	t.Run("permanent error", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return &StatusError{Code: 400}
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryPolicy{MaxRetries: 5, MaxDelay: time.Minute}
		calls := 0
		err := slow.Do(ctx, func() error {
			calls++
			cancel()
			return unavailable
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})
}
