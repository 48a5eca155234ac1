package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cakeday-bot/internal/forum"
)

func TestRun_SucceedsAfterTransientFailures(t *testing.T) {
	r := New(3, time.Millisecond, 10*time.Millisecond)
	calls := 0
	err := r.Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return forum.Transient(errors.New("flaky"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRun_PermanentErrorNotRetried(t *testing.T) {
	r := New(5, time.Millisecond, 10*time.Millisecond)
	calls := 0
	permanent := errors.New("banned from subreddit")
	err := r.Run(context.Background(), func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestRun_BoundedAttempts(t *testing.T) {
	r := New(3, time.Millisecond, 10*time.Millisecond)
	calls := 0
	err := r.Run(context.Background(), func() error {
		calls++
		return forum.Transient(errors.New("still down"))
	})
	require.Error(t, err)
	require.True(t, forum.IsTransient(err))
	require.Equal(t, 3, calls)
}

func TestRun_ContextCancellation(t *testing.T) {
	r := New(10, 50*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := r.Run(ctx, func() error {
		return forum.Transient(errors.New("slow"))
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsTemporary(t *testing.T) {
	require.True(t, IsTemporary(forum.Transient(errors.New("x"))))
	require.False(t, IsTemporary(errors.New("x")))
	require.False(t, IsTemporary(nil))
}
