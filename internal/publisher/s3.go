package publisher

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vsched/internal/config"
	"vsched/internal/sched"
	"vsched/internal/secrets"
)

// S3Publisher drops media into an S3 bucket that a downstream publishing
// pipeline watches. Objects are keyed by publish day and carry the scheduled
// time and metadata as object metadata, so the pipeline can release them at
// the right moment. Large files go through the multipart upload manager.
type S3Publisher struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Publisher builds the S3 client from the ambient AWS config, optionally
// overridden with static credentials unlocked from the local secrets store.
func NewS3Publisher(ctx context.Context, cfg config.PublisherConfig, creds *secrets.Credentials) (*S3Publisher, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 publisher requires s3_bucket to be set: %w", sched.ErrInvalidConfig)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	if creds != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Publisher{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   strings.Trim(cfg.S3Prefix, "/"),
	}, nil
}

// Submit uploads the file and returns the object key as the remote ID.
func (p *S3Publisher) Submit(ctx context.Context, filePath string, meta sched.Metadata, scheduledAt time.Time) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		// Local read failures need operator correction, not a blind retry.
		return "", &sched.PublishError{Msg: "opening file", Err: err}
	}
	defer f.Close()

	key := p.objectKey(filePath, scheduledAt)
	objMeta := map[string]string{
		"scheduled-at": scheduledAt.UTC().Format(time.RFC3339),
		"title":        meta.Title,
	}
	if meta.Description != "" {
		objMeta["description"] = meta.Description
	}
	if len(meta.Tags) > 0 {
		objMeta["tags"] = strings.Join(meta.Tags, ",")
	}

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(key),
		Body:     f,
		Metadata: objMeta,
	})
	if err != nil {
		// Network and service errors are retryable from the operator's side.
		return "", &sched.PublishError{Transient: true, Msg: fmt.Sprintf("uploading to s3://%s/%s", p.bucket, key), Err: err}
	}

	return key, nil
}

// ValidateSetup verifies the bucket is reachable with the current credentials.
func (p *S3Publisher) ValidateSetup(ctx context.Context) error {
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", p.bucket, err)
	}
	return nil
}

func (p *S3Publisher) objectKey(filePath string, scheduledAt time.Time) string {
	parts := []string{}
	if p.prefix != "" {
		parts = append(parts, p.prefix)
	}
	parts = append(parts, scheduledAt.UTC().Format("2006-01-02"), filepath.Base(filePath))
	return path.Join(parts...)
}

// Compile-time check that S3Publisher implements sched.Publisher
var _ sched.Publisher = (*S3Publisher)(nil)
