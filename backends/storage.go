// Package backends defines the remote store contract shared by every storage backend.
// Implementations live in sub-packages: s3 (flat object store) and sftp (remote filesystem tree).
package backends

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebogdum/datarepo/metadata"
)

// Storage defines the operations every remote store must provide.
// Remote paths use forward slashes; backslashes are normalized by the backend.
// Local paths are resolved against the afero filesystem the backend was built with.
type Storage interface {
	// StoreFile uploads a single local file, creating or overwriting the remote path.
	// localFile must be a regular file; directories fail with metadata.ErrInvalidArgument.
	StoreFile(ctx context.Context, remotePath, localFile string, md map[string]string) error

	// StoreDirectory recursively uploads every regular file under localDir,
	// preserving the relative structure under remotePath
	StoreDirectory(ctx context.Context, remotePath, localDir string, md map[string]string) error

	// RetrieveFile downloads one remote file to localFile
	RetrieveFile(ctx context.Context, remotePath, localFile string) error

	// RetrieveDirectory mirrors a remote directory tree into localDir
	RetrieveDirectory(ctx context.Context, remotePath, localDir string) error

	// ListDirectory returns the entries under remotePath in discovery order.
	// A missing path yields an empty listing.
	ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error)

	// CreateDirectory ensures remotePath exists as a directory
	CreateDirectory(ctx context.Context, remotePath string) error

	// DeleteFile ensures remotePath is absent. A missing file is not an error.
	DeleteFile(ctx context.Context, remotePath string) error

	// DeleteDirectory removes a directory and everything beneath it.
	// A missing directory is not an error.
	DeleteDirectory(ctx context.Context, remotePath string) error

	// IsDirectory probes whether remotePath denotes a directory
	IsDirectory(ctx context.Context, remotePath string) (metadata.Presence, error)

	// OpenObject returns a reader over a remote file's content
	OpenObject(ctx context.Context, remotePath string) (io.ReadCloser, error)

	// ObjectURL returns a URL from which the object can be fetched until expiry.
	// Backends without such a facility return metadata.ErrUnsupported.
	ObjectURL(ctx context.Context, remotePath string, expiry time.Duration) (string, error)

	// EntryPath returns the name ListDirectory reports for the file at remotePath
	EntryPath(remotePath string) (string, error)

	// Type returns the backend type identifier ("s3", "sftp", "noop")
	Type() string

	// Close releases the backend's connection
	Close() error
}

// Lister is the subset of Storage needed to infer directories from listings.
type Lister interface {
	ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error)
}

// IsDirectoryByListing is the default directory probe for backends without
// native directories: a path is a directory when listing it yields at least one entry.
func IsDirectoryByListing(ctx context.Context, l Lister, remotePath string) (metadata.Presence, error) {
	entries, err := l.ListDirectory(ctx, remotePath)
	if err != nil {
		return metadata.Indeterminate, fmt.Errorf("failed to list %s: %w", remotePath, err)
	}
	if len(entries) > 0 {
		return metadata.Present, nil
	}
	return metadata.Absent, nil
}
