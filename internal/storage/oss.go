package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/jonathan/interview-manager/internal/logging"
	"go.uber.org/zap"
)

// OSSStore stores objects in an Aliyun OSS bucket
type OSSStore struct {
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	prefix     string
	publicBase string
}

// NewOSSStore connects to the configured bucket
func NewOSSStore(cfg Config) (*OSSStore, error) {
	var (
		client *oss.Client
		err    error
	)
	if cfg.SecurityToken != "" {
		client, err = oss.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, oss.SecurityToken(cfg.SecurityToken))
	} else {
		client, err = oss.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", cfg.Bucket, err)
	}

	if loc, err := client.GetBucketLocation(cfg.Bucket); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 403 {
			logging.L().Warn("skipping bucket location check", zap.String("bucket", cfg.Bucket))
		} else {
			return nil, fmt.Errorf("failed to verify bucket: %w", err)
		}
	} else {
		logging.L().Info("object storage ready", zap.String("bucket", cfg.Bucket), zap.String("location", loc))
	}

	return &OSSStore{
		bucket:     bucket,
		endpoint:   cfg.Endpoint,
		bucketName: cfg.Bucket,
		prefix:     cfg.Prefix,
		publicBase: cfg.PublicBase,
	}, nil
}

// Put uploads r to key, replacing any existing object
func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := s.bucket.PutObject(joinKey(s.prefix, key), r,
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the public URL of key
func (s *OSSStore) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	full := joinKey(s.prefix, key)
	if s.publicBase != "" {
		return strings.TrimRight(s.publicBase, "/") + "/" + full
	}
	end := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, end, full)
}
