package s3

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

// StoreFile uploads a single local file to the given key
func (a *S3Adapter) StoreFile(ctx context.Context, remotePath, localFile string, md map[string]string) error {
	a.logger.Info("Storing file",
		zap.String("remote_path", remotePath),
		zap.String("local_file", localFile))

	info, err := a.fs.Stat(localFile)
	if err != nil || !info.Mode().IsRegular() {
		a.logger.Error("Local path is not a file", zap.String("local_file", localFile))
		return metadata.InvalidArgument("%s is not a file, use StoreDirectory instead", localFile)
	}

	key := a.formatKey(remotePath, false)
	if key == "" || strings.HasSuffix(key, "/") {
		return metadata.InvalidArgument("remote path %q does not name an object", remotePath)
	}

	file, err := a.fs.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localFile, err)
	}
	defer file.Close()

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(getContentType(key)),
	}
	if len(md) > 0 {
		putInput.Metadata = aws.StringMap(md)
	}

	start := time.Now()
	_, err = a.client.PutObjectWithContext(ctx, putInput)
	metrics.ObserveBackendOp(backendType, "put_object", start, err)
	if err != nil {
		return metadata.Connection(fmt.Sprintf("failed to put object %s", key), err)
	}
	metrics.RecordTransfer(backendType, "upload", info.Size())

	a.logger.Info("Finished storing file",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size()))

	return nil
}

// RetrieveFile downloads one object to a local file
func (a *S3Adapter) RetrieveFile(ctx context.Context, remotePath, localFile string) error {
	a.logger.Info("Retrieving file",
		zap.String("remote_path", remotePath),
		zap.String("local_file", localFile))

	presence, err := a.checkFile(ctx, remotePath)
	if probeErr := metadata.ProbeError("failed to stat "+remotePath, presence, err); probeErr != nil {
		return probeErr
	}
	if presence != metadata.Present {
		a.logger.Error("Remote path is not a file", zap.String("remote_path", remotePath))
		return metadata.InvalidArgument("%s is not a file, use RetrieveDirectory instead", remotePath)
	}

	return a.download(ctx, a.formatKey(remotePath, false), localFile)
}

// OpenObject returns the object's body; the caller must close it
func (a *S3Adapter) OpenObject(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	key := a.formatKey(remotePath, false)

	start := time.Now()
	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			metrics.ObserveBackendOp(backendType, "get_object", start, nil)
			return nil, fmt.Errorf("object %s: %w", key, metadata.ErrNotFound)
		}
		metrics.ObserveBackendOp(backendType, "get_object", start, err)
		return nil, metadata.Connection(fmt.Sprintf("failed to get object %s", key), err)
	}
	metrics.ObserveBackendOp(backendType, "get_object", start, nil)

	return result.Body, nil
}

// ObjectURL returns a presigned GET URL for the object
func (a *S3Adapter) ObjectURL(ctx context.Context, remotePath string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = a.urlExpiry
	}
	key := a.formatKey(remotePath, false)

	req, _ := a.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(expiry)
	if err != nil {
		return "", metadata.Connection(fmt.Sprintf("failed to presign object %s", key), err)
	}
	return url, nil
}

// DeleteFile removes one object; a missing object is logged and ignored
func (a *S3Adapter) DeleteFile(ctx context.Context, remotePath string) error {
	a.logger.Info("Deleting object", zap.String("remote_path", remotePath))

	presence, err := a.checkFile(ctx, remotePath)
	if probeErr := metadata.ProbeError("failed to stat "+remotePath, presence, err); probeErr != nil {
		return probeErr
	}
	if presence == metadata.Absent {
		a.logger.Warn("Object does not exist, nothing to delete", zap.String("remote_path", remotePath))
		return nil
	}

	return a.deleteKey(ctx, a.formatKey(remotePath, false))
}

func (a *S3Adapter) deleteKey(ctx context.Context, key string) error {
	start := time.Now()
	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		metrics.ObserveBackendOp(backendType, "delete_object", start, err)
		return metadata.Connection(fmt.Sprintf("failed to delete object %s", key), err)
	}
	metrics.ObserveBackendOp(backendType, "delete_object", start, nil)

	a.logger.Debug("Object deleted",
		zap.String("bucket", a.bucket),
		zap.String("key", key))

	return nil
}

// download streams one object into localFile, creating missing parent directories
func (a *S3Adapter) download(ctx context.Context, key, localFile string) error {
	start := time.Now()
	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.ObserveBackendOp(backendType, "get_object", start, err)
		return metadata.Connection(fmt.Sprintf("failed to get object %s", key), err)
	}
	defer result.Body.Close()

	if err := a.fs.MkdirAll(filepath.Dir(localFile), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", localFile, err)
	}

	file, err := a.fs.Create(localFile)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localFile, err)
	}

	n, err := io.Copy(file, result.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	metrics.ObserveBackendOp(backendType, "get_object", start, err)
	if err != nil {
		// Clean up partially written file
		a.fs.Remove(localFile)
		return metadata.Connection(fmt.Sprintf("failed to download object %s", key), err)
	}
	metrics.RecordTransfer(backendType, "download", n)

	if result.LastModified != nil {
		if err := a.fs.Chtimes(localFile, *result.LastModified, *result.LastModified); err != nil {
			a.logger.Debug("Failed to preserve modification time", zap.String("local_file", localFile), zap.Error(err))
		}
	}

	a.logger.Debug("Object downloaded",
		zap.String("key", key),
		zap.String("local_file", localFile),
		zap.Int64("size", n))

	return nil
}

// getContentType returns the MIME type based on file extension
func getContentType(path string) string {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
