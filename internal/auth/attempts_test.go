package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptLimiterRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewAttemptLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("alice"))
	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"))
	assert.True(t, l.Allow("bob"), "keys are independent")

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"))
}

func TestAttemptLimiterSweepsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewAttemptLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }

	l.Allow("alice")
	now = now.Add(10 * time.Minute)
	l.Allow("bob")
	_, kept := l.buckets["alice"]
	assert.False(t, kept)
	assert.Len(t, l.buckets, 1)
}

func TestAttemptLimiterSweepsOnInterval(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l := NewAttemptLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }

	l.Allow("alice")
	assert.Equal(t, start, l.lastSweep)

	now = start.Add(time.Minute)
	l.Allow("bob")
	assert.Equal(t, start, l.lastSweep)
	assert.Len(t, l.buckets, 2)

	now = start.Add(5 * time.Minute)
	l.Allow("carol")
	assert.Equal(t, now, l.lastSweep)
	assert.Len(t, l.buckets, 1)

	now = start.Add(6 * time.Minute)
	l.Allow("dave")
	assert.Equal(t, start.Add(5*time.Minute), l.lastSweep)
	assert.Len(t, l.buckets, 2)
}

func TestAttemptLimiterReset(t *testing.T) {
	l := NewAttemptLimiter(time.Hour, 1)
	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"))
	l.Reset("alice")
	assert.True(t, l.Allow("alice"))
}

func TestSecurityAnswerGuessesAreCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validInput("jill", "jill@example.com"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := f.svc.CompletePasswordReset(ctx, "jill", "wrong")
		require.ErrorIs(t, err, ErrWrongAnswer)
	}
	_, err = f.svc.CompletePasswordReset(ctx, "jill", "rex")
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestSuccessfulLoginRestoresBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validInput("kim", "kim@example.com"))
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		_, _, err := f.svc.Authenticate(ctx, "kim", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, err = f.svc.Authenticate(ctx, "kim", validInput("kim", "kim@example.com").Password)
	require.NoError(t, err)

	for i := 0; i < 9; i++ {
		_, _, err := f.svc.Authenticate(ctx, "kim", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
}
