package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// S3Store writes photos to an S3 compatible bucket.
type S3Store struct {
	bucket    string
	publicURL string
	client    *s3.Client
	logger    *zap.Logger
}

// NewS3Store loads AWS credentials from the environment. A custom endpoint
// switches to path-style addressing for MinIO and similar servers.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	publicURL := cfg.PublicBaseURL
	if publicURL == "" {
		if cfg.S3Endpoint != "" {
			publicURL = cfg.S3Endpoint + "/" + cfg.S3Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
		}
	}

	logger.Info("S3 storage ready", zap.String("bucket", cfg.S3Bucket), zap.String("region", cfg.S3Region))
	return &S3Store{
		bucket:    cfg.S3Bucket,
		publicURL: publicURL,
		client:    s3.NewFromConfig(awsCfg, opts...),
		logger:    logger,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to put object %q: %w", key, err)
	}
	s.logger.Debug("object uploaded", zap.String("key", key), zap.String("bucket", s.bucket))
	return joinURL(s.publicURL, key), nil
}
