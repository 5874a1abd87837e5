package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/celiscope/celiscope/internal/shared"
)

// Storage stores JPEG objects and returns their public URL.
type Storage interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Config configures S3Storage. Endpoint selects an S3-compatible
// service with path-style addressing.
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string
}

// ErrStorageNotConfigured is returned by NewS3Storage when credentials or
// the bucket are missing.
var ErrStorageNotConfigured = errors.New("object storage is not configured")

// S3Storage implements Storage on Amazon S3.
type S3Storage struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Storage creates an S3 client with static credentials.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, ErrStorageNotConfigured
	}
	if cfg.Region == "" {
		cfg.Region = "eu-north-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})
	slog.Info("S3 client initialized", "region", cfg.Region, "bucket", cfg.Bucket)
	return &S3Storage{client: client, cfg: cfg}, nil
}

// URL returns the public URL of key.
func (s *S3Storage) URL(key string) string {
	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// Upload puts a JPEG object and returns its URL.
func (s *S3Storage) Upload(ctx context.Context, key string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	url := s.URL(key)
	slog.Info("File uploaded", "url", url)
	return url, nil
}

// Delete removes an object.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// DisabledStorage rejects uploads when no object storage is configured.
type DisabledStorage struct{}

func (DisabledStorage) Upload(context.Context, string, []byte) (string, error) {
	return "", shared.NewError(http.StatusServiceUnavailable, "Хранилище изображений не настроено")
}

func (DisabledStorage) Delete(context.Context, string) error {
	return nil
}

// KeyFromURL returns the object key of a URL produced by Upload.
func KeyFromURL(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
