package core

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ebogdum/datarepo/backends"
	"github.com/ebogdum/datarepo/backends/noop"
	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/metadata"
)

func TestFactoryRejectsMissingOrUnknownStorage(t *testing.T) {
	called := false
	factory := NewFactory(map[string]Constructor{
		config.StorageObject: func(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
			called = true
			return noop.NewNoopAdapter(), nil
		},
	})

	for _, tag := range []string{"", "ftp"} {
		cfg := config.DefaultAppConfig()
		cfg.Control.Storage = tag
		_, err := factory.Build(context.Background(), cfg, afero.NewMemMapFs(), zaptest.NewLogger(t))
		require.Error(t, err, tag)
		assert.True(t, errors.Is(err, metadata.ErrConfiguration), tag)
	}

	// a known tag without a registered constructor
	cfg := config.DefaultAppConfig()
	cfg.Control.Storage = "sftp"
	_, err := factory.Build(context.Background(), cfg, afero.NewMemMapFs(), zaptest.NewLogger(t))
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))

	assert.False(t, called, "no constructor may run for an invalid selection")
}

func TestFactorySelectsByTag(t *testing.T) {
	var built []string
	record := func(kind string) Constructor {
		return func(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
			built = append(built, kind)
			return noop.NewNoopAdapter(), nil
		}
	}
	factory := NewFactory(map[string]Constructor{
		config.StorageObject: record("object"),
		config.StorageTree:   record("tree"),
	})

	for _, tag := range []string{"minio", "s3", "sftp", "tree"} {
		cfg := config.DefaultAppConfig()
		cfg.Control.Storage = tag
		_, err := factory.Build(context.Background(), cfg, afero.NewMemMapFs(), zaptest.NewLogger(t))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"object", "object", "tree", "tree"}, built)
}

func TestDefaultFactoryBackends(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	cfg := config.DefaultAppConfig()
	cfg.Control.Storage = "none"
	store, err := DefaultFactory().Build(ctx, cfg, afero.NewMemMapFs(), logger)
	require.NoError(t, err)
	assert.Equal(t, "noop", store.Type())

	// configuration errors surface before any dial
	cfg.Control.Storage = "minio"
	_, err = DefaultFactory().Build(ctx, cfg, afero.NewMemMapFs(), logger)
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))

	cfg.Control.Storage = "sftp"
	_, err = DefaultFactory().Build(ctx, cfg, afero.NewMemMapFs(), logger)
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))
}

func TestNewFileManagerFromConfig(t *testing.T) {
	cfg := config.DefaultAppConfig()
	cfg.Control.Storage = "none"
	cfg.Sync.Lock.Type = "local"
	cfg.Sync.Compare = CompareSize

	m, err := NewFileManagerFromConfig(context.Background(), cfg, DefaultFactory(), afero.NewMemMapFs(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "noop", m.BackendType())
	assert.Equal(t, CompareSize, m.compare)
	assert.Equal(t, "*.mp4", m.pattern)
	assert.NotNil(t, m.locks)
	require.NoError(t, m.Close())

	_, err = m.ListRemote(context.Background(), "videos")
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))
}

type closeFailingStore struct {
	backends.Storage
	closed bool
	err    error
}

func (s *closeFailingStore) Close() error {
	s.closed = true
	return s.err
}

func TestNewFileManagerFromConfigReleasesBackendOnLockFailure(t *testing.T) {
	store := &closeFailingStore{Storage: noop.NewNoopAdapter(), err: errors.New("session already gone")}
	factory := NewFactory(map[string]Constructor{
		config.StorageNone: func(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
			return store, nil
		},
	})

	cfg := config.DefaultAppConfig()
	cfg.Control.Storage = "none"
	cfg.Sync.Lock.Type = "zookeeper"

	_, err := NewFileManagerFromConfig(context.Background(), cfg, factory, afero.NewMemMapFs(), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, store.closed)
	assert.True(t, errors.Is(err, metadata.ErrConfiguration))
	assert.True(t, errors.Is(err, store.err))
}
