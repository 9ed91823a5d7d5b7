// Package artifact turns stored artifact locators into fetchable URLs.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultExpiry applies when the caller passes a non-positive expiry.
const DefaultExpiry = 30 * time.Minute

// ErrEmptyLocator is returned for blank locators.
var ErrEmptyLocator = errors.New("artifact: empty locator")

// Kind classifies a locator.
type Kind int

const (
	KindURL Kind = iota
	KindBucketObject
	KindKey
)

// Locator is a parsed artifact location.
type Locator struct {
	Kind   Kind
	URL    string
	Bucket string
	Object string
}

// Signer issues time-limited URLs for bucket objects.
type Signer interface {
	SignURL(ctx context.Context, bucket, key string, expiry time.Duration, method string) (string, error)
}

// ParseLocator accepts an absolute http(s) URL, a gs:// or s3:// bucket path,
// or a bare object key.
func ParseLocator(raw string) (Locator, error) {
	loc := strings.TrimSpace(raw)
	if loc == "" {
		return Locator{}, ErrEmptyLocator
	}
	lower := strings.ToLower(loc)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return Locator{Kind: KindURL, URL: loc}, nil
	}
	for _, scheme := range []string{"gs://", "s3://"} {
		if !strings.HasPrefix(lower, scheme) {
			continue
		}
		bucket, object, ok := strings.Cut(loc[len(scheme):], "/")
		object = strings.TrimLeft(object, "/")
		if !ok || bucket == "" || object == "" {
			return Locator{}, fmt.Errorf("artifact: malformed locator %q", raw)
		}
		return Locator{Kind: KindBucketObject, Bucket: bucket, Object: object}, nil
	}
	return Locator{Kind: KindKey, Object: strings.TrimLeft(loc, "/")}, nil
}

// Resolver signs locators against a default bucket.
type Resolver struct {
	signer        Signer
	defaultBucket string
	defaultExpiry time.Duration
}

// NewResolver creates a resolver. defaultExpiry <= 0 means DefaultExpiry.
func NewResolver(signer Signer, defaultBucket string, defaultExpiry time.Duration) *Resolver {
	if defaultExpiry <= 0 {
		defaultExpiry = DefaultExpiry
	}
	return &Resolver{signer: signer, defaultBucket: defaultBucket, defaultExpiry: defaultExpiry}
}

// Resolve returns a URL for locator. Absolute URLs pass through unchanged;
// bucket paths and bare keys are signed for GET.
func (r *Resolver) Resolve(ctx context.Context, locator string, expiry time.Duration) (string, error) {
	loc, err := ParseLocator(locator)
	if err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = r.defaultExpiry
	}
	switch loc.Kind {
	case KindURL:
		return loc.URL, nil
	case KindBucketObject:
		return r.signer.SignURL(ctx, loc.Bucket, loc.Object, expiry, http.MethodGet)
	default:
		return r.signer.SignURL(ctx, r.defaultBucket, loc.Object, expiry, http.MethodGet)
	}
}

// ResolveOptional resolves a nullable locator; nil stays nil.
func (r *Resolver) ResolveOptional(ctx context.Context, locator *string, expiry time.Duration) (*string, error) {
	if locator == nil || strings.TrimSpace(*locator) == "" {
		return nil, nil
	}
	u, err := r.Resolve(ctx, *locator, expiry)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
