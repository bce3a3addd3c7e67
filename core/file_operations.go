package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/internal/pathutil"
	"github.com/ebogdum/datarepo/metadata"
)

// StoreFile uploads one local file to remotePath
func (m *FileManager) StoreFile(ctx context.Context, remotePath, localPath string) error {
	return m.store.StoreFile(ctx, remotePath, localPath, nil)
}

// RetrieveFile downloads one remote file to localPath
func (m *FileManager) RetrieveFile(ctx context.Context, remotePath, localPath string) error {
	return m.store.RetrieveFile(ctx, remotePath, localPath)
}

// DeleteFile ensures filename is absent from the remote directory dir
func (m *FileManager) DeleteFile(ctx context.Context, dir, filename string) error {
	return m.store.DeleteFile(ctx, pathutil.JoinRemote(dir, filename))
}

// GetObject returns a readable stream over a remote file; the caller must close it
func (m *FileManager) GetObject(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	return m.store.OpenObject(ctx, remotePath)
}

// GetObjectURL returns a URL for the remote file. A zero expiry uses the backend default.
func (m *FileManager) GetObjectURL(ctx context.Context, remotePath string, expiry time.Duration) (string, error) {
	return m.store.ObjectURL(ctx, remotePath, expiry)
}

// MoveToLocalDirectory moves a labelled local file into dstDir, creating it when missing.
// It returns the new path of the file.
func (m *FileManager) MoveToLocalDirectory(srcPath, dstDir string) (string, error) {
	info, err := m.fs.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}
	if info.IsDir() {
		return "", metadata.InvalidArgument("%s is a directory", srcPath)
	}

	if err := m.fs.MkdirAll(dstDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dstDir, err)
	}

	dst := filepath.Join(dstDir, filepath.Base(srcPath))
	if err := m.fs.Rename(srcPath, dst); err != nil {
		// rename fails across devices, fall back to copy and remove
		m.logger.Debug("Rename failed, copying instead", zap.String("src", srcPath), zap.Error(err))
		if err := copyLocal(m.fs, srcPath, dst, info.Mode().Perm()); err != nil {
			return "", err
		}
		if err := m.fs.Remove(srcPath); err != nil {
			return "", fmt.Errorf("failed to remove %s after copy: %w", srcPath, err)
		}
	}

	m.logger.Info("Moved local file",
		zap.String("src", srcPath),
		zap.String("dst", dst))
	return dst, nil
}

func copyLocal(fs afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(dst)
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
