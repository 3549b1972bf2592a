package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	h, err := s.Store(ctx, []byte("gate sequence"))
	require.NoError(t, err)
	require.NoError(t, h.Validate())
	require.Equal(t, ComputeHandle([]byte("gate sequence")), h)

	again, err := s.Store(ctx, []byte("gate sequence"))
	require.NoError(t, err)
	require.Equal(t, h, again)

	ok, err := s.Exists(ctx, h)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := s.Load(ctx, h)
	require.NoError(t, err)
	require.Equal(t, []byte("gate sequence"), data)

	require.NoError(t, s.Delete(ctx, h))
	_, err = s.Load(ctx, h)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, h), ErrNotFound)

	ok, err = s.Exists(ctx, h)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Close())
}

func TestMemoryStorage(t *testing.T) {
	testStorage(t, NewMemoryStorage(1))

	s := NewMemoryStorage(1)
	_, err := s.Store(context.Background(), make([]byte, 2<<20))
	require.ErrorIs(t, err, ErrStorageFull)
	require.Zero(t, s.Size())
}

func TestFileStorage(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	testStorage(t, s)

	_, err = s.Load(context.Background(), Handle("../../etc/passwd"))
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestOpen(t *testing.T) {
	s, err := Open("mem://", 1)
	require.NoError(t, err)
	require.IsType(t, &MemoryStorage{}, s)

	s, err = Open(t.TempDir(), 0)
	require.NoError(t, err)
	require.IsType(t, &FileStorage{}, s)
}
