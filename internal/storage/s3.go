package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cloudconnect/cloudconnect/pkg/metrics"
)

// S3Config configures the S3-compatible object storage backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Store stores blobs in an S3-compatible bucket with one key prefix per owner.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Store builds the client. The connection is validated lazily; call
// EnsureBucket during start-up to fail fast on misconfiguration.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("s3 store: endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 store: bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 store: build client: %w", err)
	}

	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("s3 store: check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("s3 store: create bucket: %w", err)
	}
	return nil
}

// Put uploads the blob under <owner>/<unique-name> and returns its object URL.
func (s *S3Store) Put(ctx context.Context, input PutInput) (string, error) {
	if strings.TrimSpace(input.Owner) == "" {
		return "", errors.New("s3 store: owner is required")
	}

	key := input.Owner + "/" + objectName(input.Name)

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(input.Data), int64(len(input.Data)),
		minio.PutObjectOptions{ContentType: input.ContentType})
	if err != nil {
		metrics.BlobUploads.WithLabelValues("s3", "failure").Inc()
		return "", fmt.Errorf("s3 store: put object: %w", err)
	}

	metrics.BlobUploads.WithLabelValues("s3", "success").Inc()
	metrics.UploadedBytes.WithLabelValues("s3").Add(float64(len(input.Data)))

	return s.client.EndpointURL().String() + "/" + s.bucket + "/" + key, nil
}

// Delete removes the object referenced by a URL previously returned from Put.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	prefix := s.client.EndpointURL().String() + "/" + s.bucket + "/"
	key, ok := strings.CutPrefix(url, prefix)
	if !ok || key == "" {
		return ErrInvalidObjectURL
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3 store: remove object: %w", err)
	}
	return nil
}
