// Package publish ships run artifacts (allocation and frontier documents) to
// their consumers.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Publisher stores an artifact under a slash-separated key.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// FilePublisher writes artifacts below a root directory.
type FilePublisher struct {
	root string
	log  zerolog.Logger
}

// NewFilePublisher creates a publisher rooted at dir
func NewFilePublisher(dir string, log zerolog.Logger) *FilePublisher {
	return &FilePublisher{
		root: dir,
		log:  log.With().Str("component", "file_publisher").Logger(),
	}
}

// Publish writes body to root/key, replacing any previous artifact atomically.
func (p *FilePublisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clean := path.Clean("/" + key)
	if clean == "/" {
		return fmt.Errorf("invalid artifact key %q", key)
	}
	target := filepath.Join(p.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move artifact %s into place: %w", key, err)
	}

	p.log.Debug().Str("path", target).Int("bytes", len(body)).Msg("Artifact written")
	return nil
}

// S3Publisher uploads artifacts to a bucket.
type S3Publisher struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Publisher builds a publisher from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, bucket, prefix string, log zerolog.Logger) (*S3Publisher, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Publisher{
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		log:      log.With().Str("component", "s3_publisher").Logger(),
	}, nil
}

// objectKey joins the configured prefix and key
func (p *S3Publisher) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if p.prefix == "" {
		return key
	}
	return p.prefix + "/" + key
}

// Publish uploads body to bucket/prefix/key.
func (p *S3Publisher) Publish(ctx context.Context, key string, body []byte) error {
	objectKey := p.objectKey(key)

	out, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to bucket %s: %w", objectKey, p.bucket, err)
	}

	p.log.Info().
		Str("bucket", p.bucket).
		Str("key", objectKey).
		Str("location", out.Location).
		Msg("Artifact uploaded")
	return nil
}

func contentType(key string) string {
	if strings.HasSuffix(key, ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}

// Multi fans an artifact out to several publishers, stopping at the first error.
type Multi []Publisher

// Publish publishes to every publisher in order
func (m Multi) Publish(ctx context.Context, key string, body []byte) error {
	for _, p := range m {
		if err := p.Publish(ctx, key, body); err != nil {
			return err
		}
	}
	return nil
}
