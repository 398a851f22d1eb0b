// Package archive keeps a copy of every processed upload in S3-compatible
// object storage.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver stores an uploaded file and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, tool, runID, filePath string) (string, error)
}

// Noop is used when archiving is disabled. It stores nothing and returns
// an empty key.
type Noop struct{}

// Archive implements Archiver.
func (Noop) Archive(context.Context, string, string, string) (string, error) { return "", nil }

// Config contains S3 storage configuration.
type Config struct {
	Endpoint        string // Optional: custom endpoint for MinIO or DigitalOcean Spaces
	Region          string // AWS region or provider region (e.g., "us-east-1" or "sfo3")
	Bucket          string
	Prefix          string // Optional key prefix, e.g. "uploads"
	AccessKeyID     string // Optional: falls back to the default credential chain
	SecretAccessKey string
	UsePathStyle    bool // Path-style addressing (required for MinIO)
}

// objectPutter is the part of *s3.Client the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads files to a bucket.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver creates an archiver from cfg.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Archiver(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archiver(client objectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Key builds the object key: [prefix/]tool/YYYY/MM/runID.csv.
func Key(prefix, tool, runID string, t time.Time) string {
	t = t.UTC()
	return path.Join(prefix, tool, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), runID+".csv")
}

// Archive uploads the file at filePath.
func (a *S3Archiver) Archive(ctx context.Context, tool, runID, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat upload: %w", err)
	}

	key := Key(a.prefix, tool, runID, a.now())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("text/csv; charset=utf-8"),
		Metadata: map[string]string{
			"tool":   tool,
			"run-id": runID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return key, nil
}
