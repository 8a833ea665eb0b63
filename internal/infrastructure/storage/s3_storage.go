// Package storage checks payment and approval vouchers against S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	infraconfig "github.com/erp/settlement/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ appsettlement.VoucherVerifier = (*S3VoucherStore)(nil)

// S3VoucherStore verifies voucher references against a bucket.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3VoucherStore struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3VoucherStoreOption is a functional option for configuring S3VoucherStore
type S3VoucherStoreOption func(*S3VoucherStore)

// WithLogger sets a custom logger for S3VoucherStore
func WithLogger(logger *zap.Logger) S3VoucherStoreOption {
	return func(s *S3VoucherStore) {
		s.logger = logger
	}
}

// NewS3VoucherStore creates a new S3VoucherStore from configuration.
func NewS3VoucherStore(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3VoucherStoreOption) (*S3VoucherStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3VoucherStore{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// ObjectExists checks if an object exists in the bucket.
func (s *S3VoucherStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		// Some S3-compatible services report a missing key differently
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Verify reports a validation error when the voucher was never uploaded.
// References may be bare keys or s3://bucket/key URLs for this bucket.
func (s *S3VoucherStore) Verify(ctx context.Context, reference string) error {
	key, err := s.keyFor(reference)
	if err != nil {
		return err
	}

	exists, err := s.ObjectExists(ctx, key)
	if err != nil {
		s.logger.Error("voucher verification failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return err
	}
	if !exists {
		return shared.NewValidationError("voucher %s was not uploaded", reference)
	}
	return nil
}

func (s *S3VoucherStore) keyFor(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", shared.NewValidationError("voucher reference is required")
	}
	if !strings.HasPrefix(reference, "s3://") {
		return strings.TrimPrefix(reference, "/"), nil
	}

	u, err := url.Parse(reference)
	if err != nil || u.Host != s.bucket {
		return "", shared.NewValidationError("voucher %s is not in bucket %s", reference, s.bucket)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", shared.NewValidationError("voucher %s has no object key", reference)
	}
	return key, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3VoucherStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating voucher bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// GetBucket returns the bucket name
func (s *S3VoucherStore) GetBucket() string {
	return s.bucket
}
