package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	BasePath   string
	Bucket     string
	BaseURL    string
	SigningKey string
}

// FileStore persists objects on the local filesystem under
// <base>/<bucket>/<key> and signs URLs with HMAC-SHA256 that the API's
// static handler verifies. It is intended for development and single-host
// deployments.
type FileStore struct {
	basePath string
	bucket   string
	baseURL  string
	key      []byte
	now      func() time.Time
}

// NewFileStore initializes a FileStore rooted at BasePath.
func NewFileStore(opts FileStoreOptions) (*FileStore, error) {
	basePath := strings.TrimSpace(opts.BasePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if opts.SigningKey == "" {
		return nil, errors.New("storage: signing key is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		bucket = "genvid"
	}
	if err := os.MkdirAll(filepath.Join(basePath, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{
		basePath: basePath,
		bucket:   bucket,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		key:      []byte(opts.SigningKey),
		now:      time.Now,
	}, nil
}

func (s *FileStore) DefaultBucket() string { return s.bucket }

// Put writes data and returns the cleaned key as a bare locator.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := s.path(s.bucket, cleanKey)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// SignURL returns <base>/<bucket>/<key>?expires=<unix>&method=<m>&sig=<hmac>.
func (s *FileStore) SignURL(ctx context.Context, bucket, key string, expiry time.Duration, method string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := checkMethod(method)
	if err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	if bucket == "" {
		bucket = s.bucket
	}
	expires := strconv.FormatInt(s.now().Add(expiry).Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("method", m)
	q.Set("sig", s.sign(m, bucket, cleanKey, expires))
	return fmt.Sprintf("%s/%s/%s?%s", s.baseURL, url.PathEscape(bucket), escapeKey(cleanKey), q.Encode()), nil
}

// Verify checks a signature produced by SignURL.
func (s *FileStore) Verify(method, bucket, key, expires, sig string) error {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ErrInvalidSignature
	}
	want := s.sign(method, bucket, cleanKey, expires)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if s.now().Unix() > unix {
		return ErrSignatureExpired
	}
	return nil
}

// Open returns the object at bucket/key. Only the configured bucket is served.
func (s *FileStore) Open(bucket, key string) (*os.File, error) {
	if bucket != s.bucket {
		return nil, ErrBucketNotPermitted
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(bucket, cleanKey))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FileStore) path(bucket, key string) string {
	return filepath.Join(s.basePath, bucket, filepath.FromSlash(key))
}

func (s *FileStore) sign(method, bucket, key, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(method + "\n" + bucket + "\n" + key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ Store = (*FileStore)(nil)
