// Command uploader pushes a local media file into the gateway's S3 bucket
// under a dated, collision-free object key, then prints the master link the
// gateway will serve it from.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/stream-gate/pkg/streamgate"
	"github.com/tendant/stream-gate/pkg/streamgate/config"
)

type uploaderConfig struct {
	S3         config.S3Config
	GatewayURL string `env:"GATEWAY_URL" env-default:"http://localhost:8080"`
	LinkPrefix string `env:"LINK_PREFIX" env-default:"v"`
}

func main() {
	filePath := flag.String("file", "", "Path of the local file to upload")
	objectKey := flag.String("key", "", "Object key to upload under (default: dated key with a random prefix)")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("Usage: uploader -file <path> [-key <object key>]")
	}

	var cfg uploaderConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}
	if cfg.S3.Bucket == "" {
		log.Fatal("S3_BUCKET is required")
	}

	key := *objectKey
	if key == "" {
		base := filepath.Base(*filePath)
		key = fmt.Sprintf("upload/%s/%s_%s",
			time.Now().UTC().Format("2006/01/02"), uuid.New(), base)
	}

	ctx := context.Background()

	client, err := newS3Client(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("Failed to build S3 client: %v", err)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := streamgate.ContentTypeForName(filepath.Base(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	uploader := manager.NewUploader(client)
	if _, err := uploader.Upload(ctx, input); err != nil {
		log.Fatalf("Failed to upload to S3: %v", err)
	}

	fmt.Printf("Uploaded %s to s3://%s/%s\n", *filePath, cfg.S3.Bucket, key)

	// Nested keys ride the query form: the path form only carries the
	// final segment of the request path.
	if strings.Contains(key, "/") {
		fmt.Printf("Master link: %s/?file=%s\n", cfg.GatewayURL, url.QueryEscape(key))
	} else {
		fmt.Printf("Master link: %s/%s/%s\n", cfg.GatewayURL, cfg.LinkPrefix, url.PathEscape(key))
	}
}

func newS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
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

	return s3.NewFromConfig(awsCfg, s3Options...), nil
}
