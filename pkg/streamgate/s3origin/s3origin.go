// Package s3origin resolves bare resource keys to presigned S3 GET URLs,
// letting the gateway front a private bucket instead of a public origin
// domain. Fully-qualified resource keys pass through verbatim, exactly as
// with the public-domain resolver.
package s3origin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config options for the S3 origin resolver
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned URLs (default: 3600)
}

// Resolver presigns GetObject requests for bare resource keys. The presign
// lifetime must comfortably cover a full stream of the largest object; it is
// independent of the gateway's own link expiry, which was already enforced
// before origin resolution runs.
type Resolver struct {
	presignClient   *s3.PresignClient
	bucket          string
	presignDuration time.Duration
}

// New creates an S3 origin resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if cfg.PresignDuration == 0 {
		cfg.PresignDuration = 3600
	}

	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &Resolver{
		presignClient:   s3.NewPresignClient(client),
		bucket:          cfg.Bucket,
		presignDuration: time.Duration(cfg.PresignDuration) * time.Second,
	}, nil
}

// OriginURL maps a resource key to a fetchable URL. Keys carrying a scheme
// are external URLs and pass through untouched; bare keys become presigned
// GET URLs against the configured bucket.
func (r *Resolver) OriginURL(ctx context.Context, resourceKey string) (string, error) {
	if strings.Contains(resourceKey, "://") || strings.HasPrefix(resourceKey, "http") {
		return resourceKey, nil
	}

	key := strings.TrimPrefix(resourceKey, "/")

	result, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = r.presignDuration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned origin URL: %w", err)
	}

	return result.URL, nil
}
