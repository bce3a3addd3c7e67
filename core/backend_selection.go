package core

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/backends"
	"github.com/ebogdum/datarepo/backends/noop"
	"github.com/ebogdum/datarepo/backends/s3"
	"github.com/ebogdum/datarepo/backends/sftp"
	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/metadata"
)

// Constructor builds one backend from the application configuration
type Constructor func(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error)

// Factory maps a canonical storage kind to the constructor for its backend.
// Factories are passed explicitly; there is no process-wide registry.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory creates a factory from explicit constructors keyed by storage kind
func NewFactory(constructors map[string]Constructor) *Factory {
	f := &Factory{constructors: make(map[string]Constructor, len(constructors))}
	for kind, ctor := range constructors {
		f.constructors[kind] = ctor
	}
	return f
}

// DefaultFactory knows the object, tree and disabled backends
func DefaultFactory() *Factory {
	return NewFactory(map[string]Constructor{
		config.StorageObject: newObjectBackend,
		config.StorageTree:   newTreeBackend,
		config.StorageNone: func(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
			logger.Warn("Remote storage is disabled, every remote operation will fail")
			return noop.NewNoopAdapter(), nil
		},
	})
}

// Build selects the backend named by control.storage and constructs it.
// A missing or unknown selection fails before any network call.
func (f *Factory) Build(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
	kind, err := config.StorageKind(cfg.Control.Storage)
	if err != nil {
		return nil, err
	}

	ctor, ok := f.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no backend registered for storage %q", metadata.ErrConfiguration, cfg.Control.Storage)
	}

	logger.Info("Initializing storage backend",
		zap.String("storage", cfg.Control.Storage),
		zap.String("kind", kind))

	return ctor(ctx, cfg, fs, logger)
}

func newObjectBackend(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
	adapter, err := s3.NewS3Adapter(ctx, cfg.MinIO, fs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object backend: %w", err)
	}
	return adapter, nil
}

func newTreeBackend(ctx context.Context, cfg config.AppConfig, fs afero.Fs, logger *zap.Logger) (backends.Storage, error) {
	adapter, err := sftp.NewSFTPAdapter(ctx, cfg.SFTP, fs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tree backend: %w", err)
	}
	return adapter, nil
}
