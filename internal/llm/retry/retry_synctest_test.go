//go:build goexperiment.synctest

package retry_test

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/retry"
)

// TestDo_RealClockBackoffSync checks the wall-clock schedule of the semantic
// alignment policy (2s then 4s) using synctest's fake time.
func TestDo_RealClockBackoffSync(t *testing.T) {
	synctest.Run(func() {
		policy := retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, BackoffFactor: 2}
		var starts []time.Duration
		begin := time.Now()

		err := retry.Do(context.Background(), policy, nil, func(context.Context, int) error {
			starts = append(starts, time.Since(begin))
			return assert.AnError
		})

		require.ErrorIs(t, err, retry.ErrExhausted)
		assert.Equal(t, []time.Duration{0, 2 * time.Second, 6 * time.Second}, starts)
	})
}

// TestSleepContext_CancelSync verifies that a cancelled context interrupts a wait.
func TestSleepContext_CancelSync(t *testing.T) {
	synctest.Run(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		begin := time.Now()
		err := retry.SleepContext(ctx, time.Minute)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, time.Second, time.Since(begin))
	})
}
