package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	fail := func() error { return errors.New("upstream error") }
	ok := func() error { return nil }

	for i := 0; i < 2; i++ {
		require.Error(t, cb.Execute(fail))
	}
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())

	require.Error(t, cb.Execute(fail))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, time.Minute)
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Execute(func() error { return errors.New("boom") }))
	now = now.Add(2 * time.Minute)

	require.Error(t, cb.Execute(func() error { return errors.New("still down") }))
	assert.Equal(t, StateOpen, cb.State())
}
