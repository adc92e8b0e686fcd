package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ImageStore removes submission photos from the bucket they were uploaded
// to.
type ImageStore struct {
	client objectDeleter
	bucket string
	region string
}

type Options struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewImageStore returns nil when no bucket is configured, which disables
// image cleanup.
func NewImageStore(ctx context.Context, opts Options) (*ImageStore, error) {
	if opts.Bucket == "" {
		return nil, nil
	}

	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &ImageStore{client: s3.NewFromConfig(cfg), bucket: opts.Bucket, region: opts.Region}, nil
}

// RemoveImage deletes the object behind a public image URL. URLs that do
// not point into the bucket are left alone.
func (s *ImageStore) RemoveImage(ctx context.Context, imageURL string) error {
	if s == nil {
		return nil
	}
	key, ok := s.keyFromURL(imageURL)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// keyFromURL accepts both virtual-hosted
// (https://bucket.s3.region.amazonaws.com/key) and path style
// (https://s3.region.amazonaws.com/bucket/key) URLs.
func (s *ImageStore) keyFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case strings.HasPrefix(u.Host, s.bucket+".s3"):
	case strings.HasPrefix(u.Host, "s3") && strings.HasPrefix(path, s.bucket+"/"):
		path = strings.TrimPrefix(path, s.bucket+"/")
	default:
		return "", false
	}
	if path == "" {
		return "", false
	}
	return path, true
}
