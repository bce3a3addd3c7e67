package sftp

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

// ListDirectory returns the immediate children of a remote directory
func (a *SFTPAdapter) ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error) {
	remote, err := a.resolve(remotePath)
	if err != nil {
		return nil, err
	}

	info, presence, err := a.stat(remote)
	if probeErr := metadata.ProbeError("failed to stat "+remote, presence, err); probeErr != nil {
		return nil, probeErr
	}
	if presence == metadata.Absent {
		return []*metadata.Entry{}, nil
	}
	if !info.IsDir() {
		return nil, metadata.InvalidArgument("%s is not a directory", remotePath)
	}

	start := time.Now()
	children, err := a.client.ReadDir(remote)
	metrics.ObserveBackendOp(backendType, "read_dir", start, err)
	if err != nil {
		return nil, metadata.Connection("failed to list "+remote, err)
	}

	entries := make([]*metadata.Entry, 0, len(children))
	for _, child := range children {
		entries = append(entries, a.toEntry(path.Join(remote, child.Name()), child))
	}
	return entries, nil
}

// IsDirectory checks the remote mode bits
func (a *SFTPAdapter) IsDirectory(ctx context.Context, remotePath string) (metadata.Presence, error) {
	remote, err := a.resolve(remotePath)
	if err != nil {
		return metadata.Indeterminate, err
	}
	_, presence, err := a.checkDir(remote)
	return presence, err
}

// CreateDirectory creates the directory and any missing parents
func (a *SFTPAdapter) CreateDirectory(ctx context.Context, remotePath string) error {
	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	if err := a.mkdirAll(remote); err != nil {
		return err
	}
	if err := a.client.Chmod(remote, dirMode); err != nil {
		a.logger.Warn("Failed to set directory permissions", zap.String("remote_path", remote), zap.Error(err))
	}
	return nil
}

func (a *SFTPAdapter) mkdirAll(remote string) error {
	start := time.Now()
	err := a.client.MkdirAll(remote)
	metrics.ObserveBackendOp(backendType, "mkdir", start, err)
	if err != nil {
		return metadata.Connection("failed to create remote directory "+remote, err)
	}
	return nil
}

// StoreDirectory uploads localDir recursively, creating each remote directory before its contents
func (a *SFTPAdapter) StoreDirectory(ctx context.Context, remotePath, localDir string, md map[string]string) error {
	a.logger.Info("Storing directory",
		zap.String("remote_path", remotePath),
		zap.String("local_dir", localDir))

	info, err := a.fs.Stat(localDir)
	if err != nil || !info.IsDir() {
		a.logger.Error("Local path is not a directory", zap.String("local_dir", localDir))
		return metadata.InvalidArgument("%s is not a local directory", localDir)
	}

	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	if err := a.storeTree(ctx, remote, localDir); err != nil {
		return err
	}

	a.logger.Info("Finished storing directory",
		zap.String("remote_path", remotePath),
		zap.String("local_dir", localDir))
	return nil
}

func (a *SFTPAdapter) storeTree(ctx context.Context, remote, localDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.mkdirAll(remote); err != nil {
		return err
	}

	children, err := afero.ReadDir(a.fs, localDir)
	if err != nil {
		return fmt.Errorf("failed to read local directory %s: %w", localDir, err)
	}

	for _, child := range children {
		localChild := filepath.Join(localDir, child.Name())
		remoteChild := path.Join(remote, child.Name())

		switch {
		case child.IsDir():
			if err := a.storeTree(ctx, remoteChild, localChild); err != nil {
				return err
			}
		case child.Mode().IsRegular():
			if err := a.upload(remoteChild, localChild, child.ModTime()); err != nil {
				return err
			}
		default:
			a.logger.Debug("Skipping non-regular local file", zap.String("local_path", localChild))
		}
	}
	return nil
}

// RetrieveDirectory mirrors a remote directory tree into localDir
func (a *SFTPAdapter) RetrieveDirectory(ctx context.Context, remotePath, localDir string) error {
	a.logger.Info("Retrieving directory",
		zap.String("remote_path", remotePath),
		zap.String("local_dir", localDir))

	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	info, presence, err := a.stat(remote)
	if probeErr := metadata.ProbeError("failed to stat "+remote, presence, err); probeErr != nil {
		return probeErr
	}
	if presence == metadata.Absent {
		return metadata.InvalidArgument("%s does not exist on the remote server", remotePath)
	}
	if !info.IsDir() {
		a.logger.Error("Remote path is not a directory", zap.String("remote_path", remotePath))
		return metadata.InvalidArgument("%s is not a directory, use RetrieveFile instead", remotePath)
	}

	return a.retrieveTree(ctx, remote, localDir)
}

func (a *SFTPAdapter) retrieveTree(ctx context.Context, remote, localDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.fs.MkdirAll(localDir, dirMode); err != nil {
		return fmt.Errorf("failed to create local directory %s: %w", localDir, err)
	}

	start := time.Now()
	children, err := a.client.ReadDir(remote)
	metrics.ObserveBackendOp(backendType, "read_dir", start, err)
	if err != nil {
		return metadata.Connection("failed to list "+remote, err)
	}

	for _, child := range children {
		remoteChild := path.Join(remote, child.Name())
		localChild := filepath.Join(localDir, child.Name())

		switch {
		case child.IsDir():
			if err := a.retrieveTree(ctx, remoteChild, localChild); err != nil {
				return err
			}
		case child.Mode().IsRegular():
			if err := a.download(remoteChild, localChild, child.ModTime()); err != nil {
				return err
			}
		default:
			// symlinks, devices and sockets
			a.logger.Debug("Skipping non-regular remote entry", zap.String("remote_path", remoteChild))
		}
	}
	return nil
}

// DeleteDirectory removes a remote directory and everything beneath it
func (a *SFTPAdapter) DeleteDirectory(ctx context.Context, remotePath string) error {
	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	if remote == a.basePath {
		return metadata.InvalidArgument("refusing to delete the base path %s", a.basePath)
	}

	info, presence, err := a.stat(remote)
	if probeErr := metadata.ProbeError("failed to stat "+remote, presence, err); probeErr != nil {
		return probeErr
	}
	if presence == metadata.Absent {
		a.logger.Warn("Directory does not exist, nothing to delete", zap.String("remote_path", remotePath))
		return nil
	}
	if !info.IsDir() {
		return metadata.InvalidArgument("%s is not a directory, use DeleteFile instead", remotePath)
	}

	if err := a.removeTree(ctx, remote); err != nil {
		return err
	}

	a.logger.Info("Directory deleted", zap.String("remote_path", remote))
	return nil
}

func (a *SFTPAdapter) removeTree(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	children, err := a.client.ReadDir(remote)
	if err != nil {
		return metadata.Connection("failed to list "+remote, err)
	}
	for _, child := range children {
		remoteChild := path.Join(remote, child.Name())
		if child.IsDir() {
			if err := a.removeTree(ctx, remoteChild); err != nil {
				return err
			}
			continue
		}
		if err := a.remove(remoteChild); err != nil {
			return err
		}
	}

	start := time.Now()
	err = a.client.RemoveDirectory(remote)
	metrics.ObserveBackendOp(backendType, "rmdir", start, err)
	if err != nil {
		return metadata.Connection("failed to remove directory "+remote, err)
	}
	return nil
}
