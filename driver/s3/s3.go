package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobeaver/filecenter"
)

// Client is the subset of the S3 API the adapter calls. *s3.Client
// satisfies it.
type Client interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Adapter provides an S3 implementation of filecenter.BlobStore
type Adapter struct {
	client Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		// Ensure prefix ends with a slash if it's not empty
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New creates a new S3 blob store adapter
func New(client Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) objectKey(op, key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", filecenter.NewPathError(op, key, filecenter.ErrNotAllowed)
	}
	return path.Join(a.prefix, key), nil
}

// Write implements filecenter.BlobWriter
func (a *Adapter) Write(ctx context.Context, key string, content io.Reader) (int64, error) {
	objectKey, err := a.objectKey("write", key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// PutObject needs a known length, so unsized readers are spooled to disk
	body, contentLength, cleanup, err := sizedBody(content)
	if err != nil {
		return 0, filecenter.NewPathError("write", key, err)
	}
	defer cleanup()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(a.bucket),
		Key:               aws.String(objectKey),
		Body:              body,
		ContentLength:     aws.Int64(contentLength),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return 0, mapS3Error("write", key, err)
	}

	return contentLength, nil
}

// sizedBody returns a seekable body and its remaining length.
func sizedBody(content io.Reader) (io.ReadSeeker, int64, func(), error) {
	noop := func() {}

	switch r := content.(type) {
	case *bytes.Reader:
		return r, int64(r.Len()), noop, nil
	case *strings.Reader:
		return r, int64(r.Len()), noop, nil
	case *bytes.Buffer:
		return bytes.NewReader(r.Bytes()), int64(r.Len()), noop, nil
	case io.ReadSeeker:
		pos, err := r.Seek(0, io.SeekCurrent)
		if err == nil {
			end, err := r.Seek(0, io.SeekEnd)
			if err == nil {
				if _, err := r.Seek(pos, io.SeekStart); err != nil {
					return nil, 0, noop, err
				}
				return r, end - pos, noop, nil
			}
		}
	}

	f, err := os.CreateTemp("", "filecenter-s3-*")
	if err != nil {
		return nil, 0, noop, err
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	n, err := io.Copy(f, content)
	if err != nil {
		cleanup()
		return nil, 0, noop, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, noop, err
	}

	return f, n, cleanup, nil
}

// Read implements filecenter.BlobReader
func (a *Adapter) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := a.objectKey("read", key)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, mapS3Error("read", key, err)
	}

	return resp.Body, nil
}

// Delete implements filecenter.BlobWriter. DeleteObject succeeds for
// missing keys, so existence is checked first to report ErrNotExist.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	objectKey, err := a.objectKey("delete", key)
	if err != nil {
		return err
	}

	if _, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return mapS3Error("delete", key, err)
	}

	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return mapS3Error("delete", key, err)
	}

	return nil
}

// Exists implements filecenter.BlobReader
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := a.objectKey("exists", key)
	if err != nil {
		return false, err
	}

	_, err = a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, mapS3Error("exists", key, err)
	}

	return true, nil
}

// Stat implements filecenter.BlobReader
func (a *Adapter) Stat(ctx context.Context, key string) (*filecenter.BlobInfo, error) {
	objectKey, err := a.objectKey("stat", key)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, mapS3Error("stat", key, err)
	}

	return &filecenter.BlobInfo{
		Key:     strings.TrimLeft(key, "/"),
		Size:    aws.ToInt64(resp.ContentLength),
		ModTime: aws.ToTime(resp.LastModified),
	}, nil
}

// List implements filecenter.BlobReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]filecenter.BlobInfo, error) {
	listPrefix := a.prefix + strings.TrimLeft(prefix, "/")

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(listPrefix),
	})

	var blobs []filecenter.BlobInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error("list", prefix, err)
		}

		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), a.prefix)
			if strings.HasSuffix(key, "/") {
				continue
			}
			blobs = append(blobs, filecenter.BlobInfo{
				Key:     key,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	return blobs, nil
}

// Move implements filecenter.BlobWriter using CopyObject + DeleteObject.
// S3 has no native rename.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	srcKey, err := a.objectKey("move", src)
	if err != nil {
		return err
	}
	dstKey, err := a.objectKey("move", dst)
	if err != nil {
		return err
	}

	// S3 CopyObject requires source in "bucket/key" format
	copySource := fmt.Sprintf("%s/%s", a.bucket, srcKey)

	_, err = a.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(a.bucket),
		CopySource: aws.String(copySource),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return mapS3Error("move", src, err)
	}

	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return mapS3Error("move", src, err)
	}

	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &notFound)
}

// mapS3Error maps S3 errors to filecenter errors
func mapS3Error(op, key string, err error) error {
	if isNotFound(err) {
		return filecenter.NewPathError(op, key, filecenter.ErrNotExist)
	}
	return filecenter.NewPathError(op, key, err)
}

// Ensure Adapter implements interfaces
var (
	_ filecenter.BlobStore = (*Adapter)(nil)
	_ Client               = (*s3.Client)(nil)
)
