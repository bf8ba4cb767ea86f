package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/bcalm/launchpad_server/config"
)

// OSSArchiver stores CVs in an Aliyun OSS bucket.
type OSSArchiver struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewOSSArchiver(cfg *config.OSSConfig) (*OSSArchiver, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSArchiver{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

func (a *OSSArchiver) Archive(ctx context.Context, localPath, key, contentType string) (string, error) {
	err := a.bucket.PutObjectFromFile(key, localPath, oss.ContentType(contentType), oss.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to upload to OSS: %w", err)
	}
	return a.URL(key), nil
}

// URL prefers the CDN domain when one is configured.
func (a *OSSArchiver) URL(key string) string {
	if a.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", a.cdnDomain, key)
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(a.client.Config.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", a.bucketName, endpoint, key)
}
