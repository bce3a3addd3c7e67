// Package s3test provides an in-memory S3 client for tests of code built on the object backend.
package s3test

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type object struct {
	data     []byte
	metadata map[string]*string
	modTime  time.Time
}

// Client keeps objects in memory. Calls it does not override fall through
// to an offline SDK client, which is enough for request presigning.
type Client struct {
	s3iface.S3API

	// PageSize caps the keys returned by one ListObjectsV2 call
	PageSize int
	// HeadErr, when set, is returned by every HeadObject call
	HeadErr error
	// PutErr, when set, is returned by every PutObject call
	PutErr error

	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]*object
	calls   []string
}

// NewClient returns an empty client whose presigned URLs point at http://localhost:9000
func NewClient() *Client {
	sess := session.Must(session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Endpoint:         aws.String("http://localhost:9000"),
		Credentials:      credentials.NewStaticCredentials("minio", "minio123", ""),
		S3ForcePathStyle: aws.Bool(true),
	}))
	return &Client{
		S3API:    s3.New(sess),
		PageSize: 1000,
		buckets:  make(map[string]bool),
		objects:  make(map[string]*object),
	}
}

func notFound(code string) error {
	return awserr.NewRequestFailure(awserr.New(code, "not found", nil), http.StatusNotFound, "fake-request")
}

func (f *Client) record(call string) {
	f.calls = append(f.calls, call)
}

// Count returns how many times the named operation was called, e.g. "PutObject"
func (f *Client) Count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Put stores an object directly, bypassing the adapter
func (f *Client) Put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = &object{data: data, modTime: time.Now()}
}

// Keys returns every stored key in lexical order
func (f *Client) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Metadata returns the user metadata stored with key
func (f *Client) Metadata(key string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil
	}
	return aws.StringValueMap(obj.metadata)
}

func (f *Client) HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HeadBucket")
	if !f.buckets[aws.StringValue(in.Bucket)] {
		return nil, notFound("NotFound")
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *Client) CreateBucketWithContext(ctx aws.Context, in *s3.CreateBucketInput, opts ...request.Option) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateBucket")
	f.buckets[aws.StringValue(in.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *Client) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HeadObject")
	if f.HeadErr != nil {
		return nil, f.HeadErr
	}
	obj, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, notFound("NotFound")
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		LastModified:  aws.Time(obj.modTime),
	}, nil
}

func (f *Client) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PutObject")
	if f.PutErr != nil {
		return nil, f.PutErr
	}
	f.objects[aws.StringValue(in.Key)] = &object{data: data, metadata: in.Metadata, modTime: time.Now()}
	return &s3.PutObjectOutput{}, nil
}

func (f *Client) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetObject")
	obj, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, notFound(s3.ErrCodeNoSuchKey)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		LastModified:  aws.Time(obj.modTime),
	}, nil
}

func (f *Client) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteObject")
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *Client) ListObjectsV2WithContext(ctx aws.Context, in *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListObjectsV2")

	prefix := aws.StringValue(in.Prefix)
	after := aws.StringValue(in.ContinuationToken)

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > f.PageSize {
		keys = keys[:f.PageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		obj := f.objects[k]
		out.Contents = append(out.Contents, &s3.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modTime),
		})
	}
	return out, nil
}
