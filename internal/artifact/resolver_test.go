package artifact

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signCall struct {
	bucket, key, method string
	expiry              time.Duration
}

type recordingSigner struct {
	calls []signCall
}

func (s *recordingSigner) SignURL(_ context.Context, bucket, key string, expiry time.Duration, method string) (string, error) {
	s.calls = append(s.calls, signCall{bucket: bucket, key: key, method: method, expiry: expiry})
	return fmt.Sprintf("signed://%s/%s?ttl=%s", bucket, key, expiry), nil
}

func TestResolveThreeLocatorShapes(t *testing.T) {
	signer := &recordingSigner{}
	r := NewResolver(signer, "default-bucket", 0)
	ctx := context.Background()

	got, err := r.Resolve(ctx, "https://cdn/x.mp4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp4", got)
	assert.Empty(t, signer.calls)

	got, err = r.Resolve(ctx, "gs://bucket/obj.mp4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "signed://bucket/obj.mp4?ttl=1m0s", got)

	got, err = r.Resolve(ctx, "previews/3/a.mp4", 0)
	require.NoError(t, err)
	assert.Equal(t, "signed://default-bucket/previews/3/a.mp4?ttl=30m0s", got)

	require.Len(t, signer.calls, 2)
	assert.Equal(t, signCall{bucket: "bucket", key: "obj.mp4", method: "GET", expiry: time.Minute}, signer.calls[0])
	assert.Equal(t, signCall{bucket: "default-bucket", key: "previews/3/a.mp4", method: "GET", expiry: DefaultExpiry}, signer.calls[1])
}

func TestParseLocator(t *testing.T) {
	cases := []struct {
		in   string
		want Locator
	}{
		{"http://cdn/x.mp4", Locator{Kind: KindURL, URL: "http://cdn/x.mp4"}},
		{"s3://media/previews/1/a.mp4", Locator{Kind: KindBucketObject, Bucket: "media", Object: "previews/1/a.mp4"}},
		{"/previews/1/a.mp4", Locator{Kind: KindKey, Object: "previews/1/a.mp4"}},
		{"  previews/1/a.mp4 ", Locator{Kind: KindKey, Object: "previews/1/a.mp4"}},
	}
	for _, tc := range cases {
		got, err := ParseLocator(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseLocator("   ")
	require.ErrorIs(t, err, ErrEmptyLocator)
	for _, bad := range []string{"gs://bucket", "gs:///obj", "s3://bucket/"} {
		_, err := ParseLocator(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveOptional(t *testing.T) {
	r := NewResolver(&recordingSigner{}, "b", time.Hour)
	got, err := r.ResolveOptional(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Nil(t, got)

	key := "thumb.png"
	got, err = r.ResolveOptional(context.Background(), &key, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "signed://b/thumb.png?ttl=1h0m0s", *got)
}
