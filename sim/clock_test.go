package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StopsWhenTickReturnsFalse(t *testing.T) {
	c := NewClock(func() time.Duration { return time.Millisecond })
	calls := 0

	err := c.Run(context.Background(), func(time.Time) bool {
		calls++
		return calls < 3
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestClock_ContextCancel(t *testing.T) {
	c := NewClock(func() time.Duration { return time.Hour })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, func(time.Time) bool { return true })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClock_RereadsIntervalAfterEachTick(t *testing.T) {
	// GIVEN a fast interval that the first tick stretches to an hour
	interval := time.Millisecond
	c := NewClock(func() time.Duration { return interval })
	calls := 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// WHEN run until the deadline
	err := c.Run(ctx, func(time.Time) bool {
		calls++
		interval = time.Hour
		return true
	})

	// THEN the second firing waits on the new interval
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestNewClock_NilFunc_Panics(t *testing.T) {
	assert.Panics(t, func() { NewClock(nil) })
}
