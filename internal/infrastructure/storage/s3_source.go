package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	infraconfig "github.com/ggc/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectGetter is the part of the S3 client a source needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds an S3 client for AWS or any S3-compatible endpoint.
// Without static keys the default AWS credential chain is used.
func NewS3Client(ctx context.Context, cfg *infraconfig.StorageConfig) (*s3.Client, error) {
	if cfg == nil {
		cfg = &infraconfig.StorageConfig{}
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, fmt.Errorf("storage access key and secret key must be set together")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func normalizeEndpoint(endpoint string, useSSL bool) string {
	if endpoint == "" || strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// ParseS3URI splits s3://bucket/key
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, SchemeS3+"://")
	if !ok {
		return "", "", fmt.Errorf("%w: %s is not an s3 uri", ErrInvalidURI, uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s must name a bucket and a key", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}

// S3Source reads one object
type S3Source struct {
	client ObjectGetter
	bucket string
	key    string
	logger *zap.Logger
}

// NewS3Source creates a source for bucket/key
func NewS3Source(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key, logger: zap.NewNop()}
}

// Open fetches the object body
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", s.URI(), err)
	}
	s.logger.Debug("Fetched inventory object",
		zap.String("bucket", s.bucket),
		zap.String("key", s.key),
		zap.Int64("size", aws.ToInt64(out.ContentLength)),
	)
	return out.Body, nil
}

// URI returns s3://bucket/key
func (s *S3Source) URI() string { return SchemeS3 + "://" + s.bucket + "/" + s.key }

// Scheme returns "s3"
func (s *S3Source) Scheme() string { return SchemeS3 }

// Bucket returns the bucket name
func (s *S3Source) Bucket() string { return s.bucket }

// Key returns the object key
func (s *S3Source) Key() string { return s.key }
