// Package core provides the file manager that orchestrates remote store operations,
// and the factory that selects a backend from configuration.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/backends"
	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/locks"
)

const (
	defaultPattern = "*.mp4"

	// CompareName diffs local and remote sets by base name only
	CompareName = "name"
	// CompareSize also re-uploads names present on both sides whose sizes differ
	CompareSize = "size"
)

// Options tunes the file manager's higher-level algorithms
type Options struct {
	Pattern string        // glob matched against base names
	Compare string        // CompareName or CompareSize
	Locks   locks.Manager // nil disables per-directory locking
}

// FileManager exposes the stable API consumers use.
// It owns one backend for its whole lifetime and delegates every remote call to it.
type FileManager struct {
	store   backends.Storage
	fs      afero.Fs
	locks   locks.Manager
	pattern string
	compare string
	logger  *zap.Logger
}

// NewFileManager creates a file manager over an already constructed backend
func NewFileManager(store backends.Storage, fs afero.Fs, opts Options, logger *zap.Logger) *FileManager {
	if opts.Pattern == "" {
		opts.Pattern = defaultPattern
	}
	if opts.Compare == "" {
		opts.Compare = CompareName
	}
	return &FileManager{
		store:   store,
		fs:      fs,
		locks:   opts.Locks,
		pattern: opts.Pattern,
		compare: opts.Compare,
		logger:  logger,
	}
}

// NewFileManagerFromConfig builds the backend through factory and wires the sync options
func NewFileManagerFromConfig(ctx context.Context, cfg config.AppConfig, factory *Factory, fs afero.Fs, logger *zap.Logger) (*FileManager, error) {
	store, err := factory.Build(ctx, cfg, fs, logger)
	if err != nil {
		return nil, err
	}

	lockManager, err := locks.NewManager(ctx, cfg.Sync.Lock, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize lock manager: %w", err), store.Close())
	}

	return NewFileManager(store, fs, Options{
		Pattern: cfg.Sync.Pattern,
		Compare: cfg.Sync.Compare,
		Locks:   lockManager,
	}, logger), nil
}

// BackendType returns the type of the owned backend
func (m *FileManager) BackendType() string {
	return m.store.Type()
}

// Close releases the backend connection and the lock manager
func (m *FileManager) Close() error {
	err := m.store.Close()
	if m.locks != nil {
		err = errors.Join(err, m.locks.Close())
	}
	return err
}
