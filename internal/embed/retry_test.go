package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadWithRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}
	attempts := 0
	err := DownloadWithRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDownloadWithRetryExhausts(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	attempts := 0
	err := DownloadWithRetry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("permanent")
	})
	require.Error(t, err)
	require.Equal(t, 3, attempts) // initial + 2 retries
}

func TestDownloadWithRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultRetryConfig()
	err := DownloadWithRetry(ctx, cfg, func() error {
		return errors.New("should not matter")
	})
	require.ErrorIs(t, err, context.Canceled)
}
