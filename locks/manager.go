package locks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/metadata"
)

// ErrLockHeld is returned by callers that fail to take a lock another writer holds
var ErrLockHeld = errors.New("lock is held by another writer")

// Manager defines the interface for per-directory writer locks
type Manager interface {
	// Acquire attempts to acquire a lock for the given key
	// Returns true if the lock was acquired, false if it was already held by another writer
	Acquire(ctx context.Context, key string) (bool, error)

	// Release releases a previously acquired lock for the given key
	// Only the writer that acquired the lock can release it
	Release(ctx context.Context, key string) error

	// Close closes the lock manager and releases any resources
	Close() error
}

// NewManager builds the lock manager selected by sync.lock.type.
// It returns a nil Manager when locking is disabled.
func NewManager(ctx context.Context, cfg config.LockConfig, logger *zap.Logger) (Manager, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalManager(), nil
	case "redis":
		m, err := NewRedisManager(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.TTL, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown sync.lock.type %q", metadata.ErrConfiguration, cfg.Type)
	}
}

// DirectoryKey is the lock key that serializes writers of one remote directory
func DirectoryKey(backendType, remoteDir string) string {
	return fmt.Sprintf("dir:%s:%s", backendType, remoteDir)
}
