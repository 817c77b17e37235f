package store

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// S3Options configures an S3 compatible bucket.
type S3Options struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    bool   `json:"useSSL"`
	// Prefix is prepended to every object name.
	Prefix string `json:"prefix,omitempty"`
}

var _ Store = &S3{}

// S3 stores objects in a bucket.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 connects to the endpoint and creates the bucket if it is missing.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, pkgerrors.New("s3 endpoint and bucket are required")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create s3 client for %s", opts.Endpoint)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to check bucket %s", opts.Bucket)
	}
	if !exists {
		logrus.WithField("bucket", opts.Bucket).Info("creating bucket")
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to create bucket %s", opts.Bucket)
		}
	}

	return &S3{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *S3) key(name string) string {
	return s.prefix + SanitizeName(name)
}

func (s *S3) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to put object %s", name)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(err, name)
	}
	defer func() {
		if err := obj.Close(); err != nil {
			logrus.Warnf("failed to close object %s: %v", name, err)
		}
	}()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap(err, name)
	}
	return b, nil
}

func (s *S3) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, pkgerrors.Wrapf(err, "failed to stat object %s", name)
}

func (s *S3) List(ctx context.Context) ([]ObjectInfo, error) {
	var objs []ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, pkgerrors.Wrapf(obj.Err, "failed to list bucket %s", s.bucket)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		objs = append(objs, ObjectInfo{Name: name, ModTime: obj.LastModified})
	}
	return objs, nil
}

func (s *S3) Delete(ctx context.Context, name string) error {
	// RemoveObject succeeds for missing keys.
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{}); err != nil {
		return pkgerrors.Wrapf(err, "failed to remove object %s", name)
	}
	return nil
}

func (s *S3) wrap(err error, name string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return pkgerrors.Wrapf(ErrNotFound, "%s", name)
	}
	return pkgerrors.Wrapf(err, "failed to get object %s", name)
}
