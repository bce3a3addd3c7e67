package noop

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebogdum/datarepo/backends"
	"github.com/ebogdum/datarepo/metadata"
)

// NoopAdapter is a no-operation storage backend that always returns errors
// This is used when no backend is configured, for commands that only need the configuration
type NoopAdapter struct{}

// NewNoopAdapter creates a new noop storage adapter
func NewNoopAdapter() backends.Storage {
	return &NoopAdapter{}
}

func notEnabled(op, path string) error {
	return fmt.Errorf("%w: backend not enabled: cannot %s %s", metadata.ErrConfiguration, op, path)
}

// StoreFile always returns an error for noop backend
func (n *NoopAdapter) StoreFile(ctx context.Context, remotePath, localFile string, md map[string]string) error {
	return notEnabled("store file", remotePath)
}

// StoreDirectory always returns an error for noop backend
func (n *NoopAdapter) StoreDirectory(ctx context.Context, remotePath, localDir string, md map[string]string) error {
	return notEnabled("store directory", remotePath)
}

// RetrieveFile always returns an error for noop backend
func (n *NoopAdapter) RetrieveFile(ctx context.Context, remotePath, localFile string) error {
	return notEnabled("retrieve file", remotePath)
}

// RetrieveDirectory always returns an error for noop backend
func (n *NoopAdapter) RetrieveDirectory(ctx context.Context, remotePath, localDir string) error {
	return notEnabled("retrieve directory", remotePath)
}

// ListDirectory always returns an error for noop backend
func (n *NoopAdapter) ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error) {
	return nil, notEnabled("list directory", remotePath)
}

// CreateDirectory always returns an error for noop backend
func (n *NoopAdapter) CreateDirectory(ctx context.Context, remotePath string) error {
	return notEnabled("create directory", remotePath)
}

// DeleteFile always returns an error for noop backend
func (n *NoopAdapter) DeleteFile(ctx context.Context, remotePath string) error {
	return notEnabled("delete file", remotePath)
}

// DeleteDirectory always returns an error for noop backend
func (n *NoopAdapter) DeleteDirectory(ctx context.Context, remotePath string) error {
	return notEnabled("delete directory", remotePath)
}

// IsDirectory always returns an error for noop backend
func (n *NoopAdapter) IsDirectory(ctx context.Context, remotePath string) (metadata.Presence, error) {
	return metadata.Indeterminate, notEnabled("stat", remotePath)
}

// OpenObject always returns an error for noop backend
func (n *NoopAdapter) OpenObject(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	return nil, notEnabled("open", remotePath)
}

// ObjectURL always returns an error for noop backend
func (n *NoopAdapter) ObjectURL(ctx context.Context, remotePath string, expiry time.Duration) (string, error) {
	return "", notEnabled("sign", remotePath)
}

// EntryPath always returns an error for noop backend
func (n *NoopAdapter) EntryPath(remotePath string) (string, error) {
	return "", notEnabled("resolve", remotePath)
}

// Type returns "noop"
func (n *NoopAdapter) Type() string {
	return "noop"
}

// Close does nothing for noop backend
func (n *NoopAdapter) Close() error {
	return nil
}
