package locks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/metadata"
)

func TestLocalManager(t *testing.T) {
	ctx := context.Background()
	m := NewLocalManager()

	ok, err := m.Acquire(ctx, "dir:s3:videos")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Acquire(ctx, "dir:s3:videos")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must see the lock held")

	ok, err = m.Acquire(ctx, "dir:s3:other")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Release(ctx, "dir:s3:videos"))
	ok, err = m.Acquire(ctx, "dir:s3:videos")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Close())
	ok, err = m.Acquire(ctx, "dir:s3:other")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalManagerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := NewLocalManager().Acquire(ctx, "k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewManager(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	m, err := NewManager(ctx, config.LockConfig{Type: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = NewManager(ctx, config.LockConfig{}, logger)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = NewManager(ctx, config.LockConfig{Type: "local"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalManager{}, m)

	_, err = NewManager(ctx, config.LockConfig{Type: "etcd"}, logger)
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))
}

func TestDirectoryKey(t *testing.T) {
	assert.Equal(t, "dir:sftp:videos/cam1", DirectoryKey("sftp", "videos/cam1"))
}
