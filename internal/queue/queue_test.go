package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue(4)

	require.NoError(t, q.Push(ctx, &Job{ID: "a", Manifest: "m1"}))
	require.NoError(t, q.Push(ctx, &Job{ID: "b", Manifest: "m2"}))

	job, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", job.ID)
	require.Equal(t, StatusPending, job.Status)
	require.False(t, job.CreatedAt.IsZero())

	job.Status = StatusCompleted
	job.Result = "r1"
	job.GatesConsumed = 159
	require.NoError(t, q.Update(ctx, job))

	got, err := q.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, "r1", got.Result)
	require.Equal(t, 159, got.GatesConsumed)

	_, err = q.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrJobNotFound)

	job, err = q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", job.ID)

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := q.Pop(cctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Closed", func(t *testing.T) {
		require.NoError(t, q.Close())
		require.NoError(t, q.Close())
		_, err := q.Pop(ctx)
		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestJobStatus(t *testing.T) {
	require.Equal(t, "pending", StatusPending.String())
	require.Equal(t, "failed", StatusFailed.String())
	require.Equal(t, "JobStatus(9)", JobStatus(9).String())
}

func TestNewJob(t *testing.T) {
	a, b := NewJob("manifest"), NewJob("manifest")
	require.Len(t, a.ID, 32)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, "manifest", a.Manifest)
	require.Equal(t, StatusPending, a.Status)
}
