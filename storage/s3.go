package storage

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"edge-resizer/client"
)

// S3Options configures an S3Storage.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

// S3Storage implements Storage on a single S3 bucket
type S3Storage struct {
	Client *minio.Client
	Bucket string
}

// NewS3Storage creates a new S3Storage
func NewS3Storage(opts S3Options) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	s3Client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    client.GetTransport(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 client")
	}

	return &S3Storage{Client: s3Client, Bucket: opts.Bucket}, nil
}

// Get downloads an object; a missing key yields ErrNotFound
func (s *S3Storage) Get(ctx context.Context, key string) (*Object, error) {
	objectKey, err := url.PathUnescape(key)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid object key %q", key)
	}

	obj, err := s.Client.GetObject(ctx, s.Bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get object %q", objectKey)
	}
	defer func() {
		_ = obj.Close()
	}()

	info, err := obj.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to stat object %q", objectKey)
	}

	contentType := info.ContentType
	if contentType == "" {
		if ct, ok := info.Metadata["Content-Type"]; ok && len(ct) > 0 {
			contentType = ct[0]
		}
	}
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = parsed
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read object %q", objectKey)
	}

	return &Object{Key: key, ContentType: contentType, Body: body}, nil
}

// Put uploads body under key with the given content type
func (s *S3Storage) Put(ctx context.Context, key string, contentType string, body []byte) error {
	objectKey, err := url.PathUnescape(key)
	if err != nil {
		return errors.Wrapf(err, "invalid object key %q", key)
	}

	_, err = s.Client.PutObject(ctx, s.Bucket, objectKey, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put object %q", objectKey)
	}

	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}

	return false
}
