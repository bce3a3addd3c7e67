package sftp

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

// StoreFile uploads a local file, creating the remote parent directory when missing
func (a *SFTPAdapter) StoreFile(ctx context.Context, remotePath, localFile string, md map[string]string) error {
	a.logger.Info("Storing file",
		zap.String("remote_path", remotePath),
		zap.String("local_file", localFile))

	info, err := a.fs.Stat(localFile)
	if err != nil || !info.Mode().IsRegular() {
		a.logger.Error("Local path is not a file", zap.String("local_file", localFile))
		return metadata.InvalidArgument("%s is not a file, use StoreDirectory instead", localFile)
	}

	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	if err := a.mkdirAll(path.Dir(remote)); err != nil {
		return err
	}

	return a.upload(remote, localFile, info.ModTime())
}

// upload copies localFile to the absolute remote path and preserves its mtime
func (a *SFTPAdapter) upload(remote, localFile string, mtime time.Time) error {
	src, err := a.fs.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer src.Close()

	start := time.Now()
	dst, err := a.client.Create(remote)
	if err != nil {
		metrics.ObserveBackendOp(backendType, "create", start, err)
		return metadata.Connection("failed to create remote file "+remote, err)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	metrics.ObserveBackendOp(backendType, "upload", start, err)
	if err != nil {
		return metadata.Connection("failed to upload "+remote, err)
	}
	metrics.RecordTransfer(backendType, "upload", n)

	if err := a.client.Chtimes(remote, mtime, mtime); err != nil {
		a.logger.Warn("Failed to preserve modification time", zap.String("remote_path", remote), zap.Error(err))
	}

	a.logger.Debug("File uploaded",
		zap.String("remote_path", remote),
		zap.Int64("size", n))
	return nil
}

// RetrieveFile downloads one remote file to localFile
func (a *SFTPAdapter) RetrieveFile(ctx context.Context, remotePath, localFile string) error {
	a.logger.Info("Retrieving file",
		zap.String("remote_path", remotePath),
		zap.String("local_file", localFile))

	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	info, presence, err := a.checkFile(remote)
	if probeErr := metadata.ProbeError("failed to stat "+remote, presence, err); probeErr != nil {
		return probeErr
	}
	if presence != metadata.Present {
		a.logger.Error("Remote path is not a file", zap.String("remote_path", remotePath))
		return metadata.InvalidArgument("%s is not a file, use RetrieveDirectory instead", remotePath)
	}

	return a.download(remote, localFile, info.ModTime())
}

// download streams the absolute remote path into localFile
func (a *SFTPAdapter) download(remote, localFile string, mtime time.Time) error {
	start := time.Now()
	src, err := a.client.Open(remote)
	if err != nil {
		metrics.ObserveBackendOp(backendType, "open", start, err)
		return metadata.Connection("failed to open remote file "+remote, err)
	}
	defer src.Close()

	if err := a.fs.MkdirAll(filepath.Dir(localFile), dirMode); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", localFile, err)
	}

	dst, err := a.fs.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	metrics.ObserveBackendOp(backendType, "download", start, err)
	if err != nil {
		a.fs.Remove(localFile)
		return metadata.Connection("failed to download "+remote, err)
	}
	metrics.RecordTransfer(backendType, "download", n)

	if err := a.fs.Chtimes(localFile, mtime, mtime); err != nil {
		a.logger.Debug("Failed to preserve modification time", zap.String("local_file", localFile), zap.Error(err))
	}

	a.logger.Debug("File downloaded",
		zap.String("remote_path", remote),
		zap.String("local_file", localFile),
		zap.Int64("size", n))
	return nil
}

// OpenObject opens a remote file for reading; the caller must close it
func (a *SFTPAdapter) OpenObject(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	remote, err := a.resolve(remotePath)
	if err != nil {
		return nil, err
	}
	_, presence, err := a.checkFile(remote)
	if probeErr := metadata.ProbeError("failed to stat "+remote, presence, err); probeErr != nil {
		return nil, probeErr
	}
	if presence != metadata.Present {
		return nil, fmt.Errorf("file %s: %w", remotePath, metadata.ErrNotFound)
	}

	start := time.Now()
	f, err := a.client.Open(remote)
	metrics.ObserveBackendOp(backendType, "open", start, err)
	if err != nil {
		return nil, metadata.Connection("failed to open remote file "+remote, err)
	}
	return f, nil
}

// ObjectURL is not available on SFTP servers
func (a *SFTPAdapter) ObjectURL(ctx context.Context, remotePath string, expiry time.Duration) (string, error) {
	return "", fmt.Errorf("%w: %s cannot issue object URLs", metadata.ErrUnsupported, backendType)
}

// DeleteFile removes a remote file; a missing file is logged and ignored
func (a *SFTPAdapter) DeleteFile(ctx context.Context, remotePath string) error {
	a.logger.Info("Deleting file", zap.String("remote_path", remotePath))

	remote, err := a.resolve(remotePath)
	if err != nil {
		return err
	}
	info, presence, err := a.stat(remote)
	if probeErr := metadata.ProbeError("failed to stat "+remote, presence, err); probeErr != nil {
		return probeErr
	}
	if presence == metadata.Absent {
		a.logger.Warn("File does not exist, nothing to delete", zap.String("remote_path", remotePath))
		return nil
	}
	if info.IsDir() {
		return metadata.InvalidArgument("%s is a directory, use DeleteDirectory instead", remotePath)
	}

	return a.remove(remote)
}

func (a *SFTPAdapter) remove(remote string) error {
	start := time.Now()
	err := a.client.Remove(remote)
	metrics.ObserveBackendOp(backendType, "remove", start, err)
	if err != nil {
		return metadata.Connection("failed to remove "+remote, err)
	}
	a.logger.Debug("File removed", zap.String("remote_path", remote))
	return nil
}
