// Package storage persists generated artifacts and signs time-limited URLs
// for them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"genvid/internal/infra"
)

var (
	ErrObjectNotFound     = errors.New("storage: object not found")
	ErrAccessDenied       = errors.New("storage: access denied")
	ErrUnavailable        = errors.New("storage: backend unavailable")
	ErrInvalidSignature   = errors.New("storage: invalid signature")
	ErrSignatureExpired   = errors.New("storage: signature expired")
	ErrUnsupportedMethod  = errors.New("storage: unsupported method")
	ErrBucketNotPermitted = errors.New("storage: bucket not served")
)

// Store writes objects and signs URLs for them.
type Store interface {
	// Put writes data under key in the default bucket and returns the
	// locator to persist.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// SignURL returns a URL granting method on bucket/key until expiry elapses.
	SignURL(ctx context.Context, bucket, key string, expiry time.Duration, method string) (string, error)
	// DefaultBucket is the bucket bare keys belong to.
	DefaultBucket() string
}

func checkMethod(method string) (string, error) {
	switch method {
	case "", http.MethodGet:
		return http.MethodGet, nil
	case http.MethodPut:
		return http.MethodPut, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
}

// NewFromConfig builds the store named by STORAGE_DRIVER.
func NewFromConfig(ctx context.Context, cfg *infra.Config) (Store, error) {
	switch cfg.StorageDriver {
	case "", "filesystem", "fs", "local":
		return NewFileStore(FileStoreOptions{
			BasePath:   cfg.StoragePath,
			Bucket:     cfg.StorageBucket,
			BaseURL:    cfg.StorageBaseURL,
			SigningKey: cfg.StorageSigningKey,
		})
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.StorageBucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			ForcePathStyle:  cfg.S3ForcePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
