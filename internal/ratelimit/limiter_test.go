package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonglam/notion-syncer/internal/domain"
)

func TestNew_RejectsNonPositiveBudgets(t *testing.T) {
	var vErr *domain.ValidationError

	_, err := New(0, 60)
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)

	_, err = New(5, -1)
	require.Error(t, err)
	assert.ErrorAs(t, err, &vErr)
}

func TestWait_UnderBudgetIsImmediate(t *testing.T) {
	l, err := New(100, 6000)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestWait_EnforcesPerSecondBound(t *testing.T) {
	const perSecond = 5
	const calls = 11

	l, err := New(perSecond, 6000)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < calls; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	elapsed := time.Since(start)

	// M calls at L per second take at least (M/L)-1 seconds.
	minElapsed := time.Second * (calls - perSecond) / perSecond
	assert.GreaterOrEqual(t, elapsed, minElapsed)
}

func TestWait_CancelledContext(t *testing.T) {
	l, err := New(1, 60)
	require.NoError(t, err)

	// Drain the per-second burst so the next wait has to block.
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = l.Wait(ctx)
	assert.Error(t, err)
}

func TestDo_PropagatesCallResult(t *testing.T) {
	l, err := New(100, 6000)
	require.NoError(t, err)

	got, err := Do(context.Background(), l, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	wantErr := assert.AnError
	_, err = Do(context.Background(), l, func(context.Context) (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
