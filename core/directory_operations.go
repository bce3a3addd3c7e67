package core

import (
	"context"
	"path"

	"github.com/ebogdum/datarepo/metadata"
)

// ListDirectory lists the entries under a remote directory
func (m *FileManager) ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error) {
	return m.store.ListDirectory(ctx, remotePath)
}

// ListRemote returns the base names of every entry under a remote directory
func (m *FileManager) ListRemote(ctx context.Context, remotePath string) ([]string, error) {
	entries, err := m.store.ListDirectory(ctx, remotePath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.BaseName())
	}
	return names, nil
}

// CreateDirectory ensures a remote directory exists
func (m *FileManager) CreateDirectory(ctx context.Context, remotePath string) error {
	return m.store.CreateDirectory(ctx, remotePath)
}

// DeleteDirectory removes a remote directory tree
func (m *FileManager) DeleteDirectory(ctx context.Context, remotePath string) error {
	return m.store.DeleteDirectory(ctx, remotePath)
}

// StoreDirectory uploads a local directory tree
func (m *FileManager) StoreDirectory(ctx context.Context, remotePath, localDir string) error {
	return m.store.StoreDirectory(ctx, remotePath, localDir, nil)
}

// RetrieveDirectory mirrors a remote directory tree into localDir
func (m *FileManager) RetrieveDirectory(ctx context.Context, remotePath, localDir string) error {
	return m.store.RetrieveDirectory(ctx, remotePath, localDir)
}

// matchingFiles returns the non-directory entries whose base name matches the pattern
func (m *FileManager) matchingFiles(entries []*metadata.Entry) []*metadata.Entry {
	var matched []*metadata.Entry
	for _, entry := range entries {
		if entry.IsDirectory {
			continue
		}
		if ok, _ := path.Match(m.pattern, entry.BaseName()); ok {
			matched = append(matched, entry)
		}
	}
	return matched
}
