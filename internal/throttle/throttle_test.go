package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAfterMaxFailures(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(t.TempDir(), 3, 5*time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		require.NoError(t, l.RecordFailure("bob"))
		require.NoError(t, l.Check("bob"))
	}
	require.NoError(t, l.RecordFailure("bob"))
	err := l.Check("bob")
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorContains(t, err, "try again in 5m0s")

	assert.NoError(t, l.Check("alice"), "other identities are unaffected")

	now = now.Add(6 * time.Minute)
	assert.NoError(t, l.Check("bob"))
	require.NoError(t, l.RecordFailure("bob"))
	assert.NoError(t, l.Check("bob"), "counter restarts after the lockout expires")
}

func TestReset(t *testing.T) {
	l := New(t.TempDir(), 1, time.Hour)
	require.NoError(t, l.RecordFailure("bob"))
	assert.ErrorIs(t, l.Check("bob"), ErrLocked)
	require.NoError(t, l.Reset("bob"))
	assert.NoError(t, l.Check("bob"))
}

func TestDisabled(t *testing.T) {
	l := New(t.TempDir(), 0, time.Hour)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.RecordFailure("bob"))
	}
	assert.NoError(t, l.Check("bob"))

	var none *Limiter
	assert.NoError(t, none.Check("bob"))
	assert.NoError(t, none.RecordFailure("bob"))
}
