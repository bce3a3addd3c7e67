// Package s3 implements the remote store contract over an S3-compatible object store (MinIO, AWS S3).
// Directories do not exist as entities: a path is a directory when at least one key lives under its prefix.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/internal/pathutil"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

const backendType = "s3"

const defaultURLExpiry = 7 * 24 * time.Hour

// S3Adapter implements the backends.Storage interface for S3-compatible object stores
type S3Adapter struct {
	client    s3iface.S3API
	bucket    string
	urlExpiry time.Duration
	fs        afero.Fs
	logger    *zap.Logger
}

// NewS3Adapter creates a new object-store adapter from the minio configuration section.
// The bucket is created when it does not exist yet.
func NewS3Adapter(ctx context.Context, cfg config.MinIOConfig, fs afero.Fs, logger *zap.Logger) (*S3Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: minio bucket name is required", metadata.ErrConfiguration)
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: minio endpoint is required", metadata.ErrConfiguration)
	}

	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
		Endpoint:                      aws.String(endpointURL(cfg.Endpoint, cfg.Secure)),
		DisableSSL:                    aws.Bool(!cfg.Secure),
		S3ForcePathStyle:              aws.Bool(true), // Required for MinIO
		S3DisableContentMD5Validation: aws.Bool(true),
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, metadata.Connection("failed to create AWS session", err)
	}

	adapter, err := NewS3AdapterWithClient(ctx, s3.New(sess), cfg.Bucket, cfg.URLExpiry, fs, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to object store",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("secure", cfg.Secure))

	return adapter, nil
}

// NewS3AdapterWithClient wraps an existing S3 client. It verifies the bucket and creates it when missing.
func NewS3AdapterWithClient(ctx context.Context, client s3iface.S3API, bucket string, urlExpiry time.Duration, fs afero.Fs, logger *zap.Logger) (*S3Adapter, error) {
	if urlExpiry <= 0 {
		urlExpiry = defaultURLExpiry
	}

	a := &S3Adapter{
		client:    client,
		bucket:    bucket,
		urlExpiry: urlExpiry,
		fs:        fs,
		logger:    logger.With(zap.String("backend", backendType)),
	}

	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// ensureBucket creates the default bucket on first use
func (a *S3Adapter) ensureBucket(ctx context.Context) error {
	start := time.Now()
	_, err := a.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	metrics.ObserveBackendOp(backendType, "head_bucket", start, err)
	if err == nil {
		return nil
	}
	if !isS3NotFound(err) {
		return metadata.Connection(fmt.Sprintf("failed to access bucket %s", a.bucket), err)
	}

	start = time.Now()
	_, err = a.client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	metrics.ObserveBackendOp(backendType, "create_bucket", start, err)
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou || aerr.Code() == s3.ErrCodeBucketAlreadyExists) {
			return nil
		}
		return metadata.Connection(fmt.Sprintf("bucket %s does not exist and cannot be created", a.bucket), err)
	}

	a.logger.Info("Created bucket", zap.String("bucket", a.bucket))
	return nil
}

// Type returns "s3"
func (a *S3Adapter) Type() string {
	return backendType
}

// Close closes any resources used by the S3 adapter
func (a *S3Adapter) Close() error {
	// The HTTP client has no session to tear down
	return nil
}

// EntryPath returns the object key listings report for remotePath
func (a *S3Adapter) EntryPath(remotePath string) (string, error) {
	key := a.formatKey(remotePath, false)
	if key == "" {
		return "", metadata.InvalidArgument("empty remote path")
	}
	return key, nil
}

// formatKey converts a remote path to an object key.
// dir marks the path as a directory prefix, which always carries a trailing slash.
func (a *S3Adapter) formatKey(path string, dir bool) string {
	if path == "" {
		return path
	}
	key := strings.TrimPrefix(pathutil.NormalizeRemote(path), "/")
	if dir && key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return key
}

// checkFile reports whether the exact key exists as an object
func (a *S3Adapter) checkFile(ctx context.Context, remotePath string) (metadata.Presence, error) {
	key := a.formatKey(remotePath, false)
	if key == "" || strings.HasSuffix(key, "/") {
		return metadata.Absent, nil
	}

	start := time.Now()
	_, err := a.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			metrics.ObserveBackendOp(backendType, "head_object", start, nil)
			return metadata.Absent, nil
		}
		metrics.ObserveBackendOp(backendType, "head_object", start, err)
		return metadata.Indeterminate, err
	}

	metrics.ObserveBackendOp(backendType, "head_object", start, nil)
	return metadata.Present, nil
}

// endpointURL adds a scheme to bare host:port endpoints
func endpointURL(endpoint string, secure bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if secure {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// isS3NotFound checks if an error indicates the object or bucket was not found
func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}
