package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/backends"
	"github.com/ebogdum/datarepo/internal/pathutil"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

// ListDirectory lists every key under the directory prefix, at any depth
func (a *S3Adapter) ListDirectory(ctx context.Context, remotePath string) ([]*metadata.Entry, error) {
	prefix := a.formatKey(remotePath, true)

	objects, err := a.listKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	results := make([]*metadata.Entry, 0, len(objects))
	for _, object := range objects {
		// Skip the directory marker itself
		if aws.StringValue(object.Key) == prefix {
			continue
		}
		results = append(results, toEntry(object))
	}

	return results, nil
}

func (a *S3Adapter) listKeys(ctx context.Context, prefix string) ([]*s3.Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	}

	var objects []*s3.Object

	for {
		start := time.Now()
		result, err := a.client.ListObjectsV2WithContext(ctx, input)
		metrics.ObserveBackendOp(backendType, "list_objects", start, err)
		if err != nil {
			return nil, metadata.Connection(fmt.Sprintf("failed to list objects under %q", prefix), err)
		}

		for _, object := range result.Contents {
			if object.Key == nil {
				continue
			}
			objects = append(objects, object)
		}

		// Check if there are more results
		if !aws.BoolValue(result.IsTruncated) || result.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = result.NextContinuationToken
	}

	return objects, nil
}

func toEntry(object *s3.Object) *metadata.Entry {
	key := aws.StringValue(object.Key)
	return &metadata.Entry{
		Name:        key,
		IsDirectory: strings.HasSuffix(key, "/"),
		Size:        aws.Int64Value(object.Size),
		MTime:       aws.TimeValue(object.LastModified),
		BackendType: backendType,
	}
}

// IsDirectory reports a directory when at least one key lives under the prefix
func (a *S3Adapter) IsDirectory(ctx context.Context, remotePath string) (metadata.Presence, error) {
	return backends.IsDirectoryByListing(ctx, a, remotePath)
}

// CreateDirectory is a no-op: prefixes come into existence with their first object
func (a *S3Adapter) CreateDirectory(ctx context.Context, remotePath string) error {
	a.logger.Debug("Directories are implicit in the object store",
		zap.String("remote_path", remotePath))
	return nil
}

// StoreDirectory uploads every regular file under localDir, one object at a time
func (a *S3Adapter) StoreDirectory(ctx context.Context, remotePath, localDir string, md map[string]string) error {
	a.logger.Info("Storing directory",
		zap.String("remote_path", remotePath),
		zap.String("local_dir", localDir))

	info, err := a.fs.Stat(localDir)
	if err != nil || !info.IsDir() {
		a.logger.Error("Local path is not a directory", zap.String("local_dir", localDir))
		return metadata.InvalidArgument("%s is not a local directory", localDir)
	}

	err = afero.Walk(a.fs, localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		return a.StoreFile(ctx, pathutil.JoinRemote(remotePath, filepath.ToSlash(rel)), path, md)
	})
	if err != nil {
		return err
	}

	a.logger.Info("Finished storing directory",
		zap.String("remote_path", remotePath),
		zap.String("local_dir", localDir))
	return nil
}

// RetrieveDirectory mirrors every key under the prefix into localDir
func (a *S3Adapter) RetrieveDirectory(ctx context.Context, remotePath, localDir string) error {
	a.logger.Info("Retrieving directory",
		zap.String("remote_path", remotePath),
		zap.String("local_dir", localDir))

	presence, err := a.checkFile(ctx, remotePath)
	if probeErr := metadata.ProbeError("failed to stat "+remotePath, presence, err); probeErr != nil {
		return probeErr
	}
	if presence == metadata.Present {
		a.logger.Error("Remote path is not a directory", zap.String("remote_path", remotePath))
		return metadata.InvalidArgument("%s is not a directory, use RetrieveFile instead", remotePath)
	}

	entries, err := a.ListDirectory(ctx, remotePath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return metadata.InvalidArgument("%s does not exist in the object store", remotePath)
	}

	if err := a.fs.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("failed to create local directory %s: %w", localDir, err)
	}

	prefix := a.formatKey(remotePath, true)
	for _, entry := range entries {
		rel, ok := pathutil.RelativeTo(prefix, entry.Name)
		if !ok || rel == "" {
			continue
		}
		localPath := filepath.Join(localDir, filepath.FromSlash(rel))

		if entry.IsDirectory {
			if err := a.fs.MkdirAll(localPath, 0755); err != nil {
				return fmt.Errorf("failed to create local directory %s: %w", localPath, err)
			}
			continue
		}
		if err := a.download(ctx, entry.Name, localPath); err != nil {
			return err
		}
	}

	return nil
}

// DeleteDirectory removes every key under the prefix, including a directory marker
func (a *S3Adapter) DeleteDirectory(ctx context.Context, remotePath string) error {
	prefix := a.formatKey(remotePath, true)
	if prefix == "" {
		return metadata.InvalidArgument("refusing to delete the bucket root")
	}

	objects, err := a.listKeys(ctx, prefix)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		a.logger.Warn("Directory does not exist, nothing to delete", zap.String("remote_path", remotePath))
		return nil
	}

	for _, object := range objects {
		if err := a.deleteKey(ctx, aws.StringValue(object.Key)); err != nil {
			return err
		}
	}

	a.logger.Info("Directory deleted",
		zap.String("prefix", prefix),
		zap.Int("objects", len(objects)))
	return nil
}
