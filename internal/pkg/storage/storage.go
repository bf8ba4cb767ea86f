package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/bcalm/launchpad_server/config"
)

// Archiver copies a saved upload to object storage and returns its URL.
type Archiver interface {
	Archive(ctx context.Context, localPath, key, contentType string) (string, error)
}

// ObjectKey builds the bucket key for an uploaded CV.
func ObjectKey(fileName string, at time.Time) string {
	return path.Join("cv-submissions", at.Format("2006/01/02"), fileName)
}

// New returns the archiver for the configured provider, or nil for local storage.
func New(ctx context.Context, cfg config.StorageConfig) (Archiver, error) {
	switch cfg.Provider {
	case "", "local":
		return nil, nil
	case "oss":
		a, err := NewOSSArchiver(&cfg.OSS)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "s3":
		a, err := NewS3Archiver(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
