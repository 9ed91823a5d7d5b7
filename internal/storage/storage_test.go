package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genvid/internal/infra"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(FileStoreOptions{
		BasePath:   t.TempDir(),
		Bucket:     "genvid",
		BaseURL:    "http://localhost:8080/static/",
		SigningKey: "secret",
	})
	require.NoError(t, err)
	return fs
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"previews/1/a.mp4":    "previews/1/a.mp4",
		"/previews/1/a.mp4":   "previews/1/a.mp4",
		"./previews//1/a.mp4": "previews/1/a.mp4",
		`previews\1\a.mp4`:    "previews/1/a.mp4",
	}
	for in, want := range cases {
		got, err := sanitizeKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "  ", "../etc/passwd", "a/../../b", ".."} {
		_, err := sanitizeKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestFileStorePutAndOpen(t *testing.T) {
	fs := newTestFileStore(t)
	loc, err := fs.Put(context.Background(), "/previews/101/preview_1.mp4", []byte("video"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "previews/101/preview_1.mp4", loc)

	data, err := os.ReadFile(filepath.Join(fs.basePath, "genvid", "previews", "101", "preview_1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video", string(data))

	f, err := fs.Open("genvid", loc)
	require.NoError(t, err)
	got, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "video", string(got))

	_, err = fs.Open("genvid", "previews/nope.mp4")
	require.ErrorIs(t, err, ErrObjectNotFound)
	_, err = fs.Open("other", loc)
	require.ErrorIs(t, err, ErrBucketNotPermitted)
}

func TestFileStoreSignedURLRoundTrip(t *testing.T) {
	fs := newTestFileStore(t)
	now := time.Unix(1_700_000_000, 0)
	fs.now = func() time.Time { return now }

	raw, err := fs.SignURL(context.Background(), "", "previews/3/a b.mp4", 30*time.Minute, "")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/static/genvid/previews/3/a%20b.mp4", u.EscapedPath())
	q := u.Query()
	assert.Equal(t, "GET", q.Get("method"))
	assert.Equal(t, fmt.Sprint(now.Add(30*time.Minute).Unix()), q.Get("expires"))

	require.NoError(t, fs.Verify("GET", "genvid", "previews/3/a b.mp4", q.Get("expires"), q.Get("sig")))

	assert.ErrorIs(t, fs.Verify("GET", "genvid", "previews/3/other.mp4", q.Get("expires"), q.Get("sig")), ErrInvalidSignature)
	assert.ErrorIs(t, fs.Verify("PUT", "genvid", "previews/3/a b.mp4", q.Get("expires"), q.Get("sig")), ErrInvalidSignature)
	assert.ErrorIs(t, fs.Verify("GET", "genvid", "previews/3/a b.mp4", "9999999999", q.Get("sig")), ErrInvalidSignature)

	fs.now = func() time.Time { return now.Add(31 * time.Minute) }
	assert.ErrorIs(t, fs.Verify("GET", "genvid", "previews/3/a b.mp4", q.Get("expires"), q.Get("sig")), ErrSignatureExpired)
}

func TestFileStoreRejectsUnknownMethod(t *testing.T) {
	fs := newTestFileStore(t)
	_, err := fs.SignURL(context.Background(), "", "a.mp4", time.Minute, "DELETE")
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestNewFileStoreValidation(t *testing.T) {
	_, err := NewFileStore(FileStoreOptions{SigningKey: "k"})
	require.Error(t, err)
	_, err = NewFileStore(FileStoreOptions{BasePath: t.TempDir()})
	require.Error(t, err)
}

type fakeS3 struct {
	put       *s3.PutObjectInput
	putErr    error
	getInput  *s3.GetObjectInput
	presigned s3.PresignOptions
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.getInput = in
	for _, fn := range optFns {
		fn(&f.presigned)
	}
	return &v4.PresignedHTTPRequest{URL: "https://" + *in.Bucket + ".s3.example/" + *in.Key + "?X-Amz-Signature=abc", Method: "GET"}, nil
}

func (f *fakeS3) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://put.example/" + *in.Key, Method: "PUT"}, nil
}

type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	st := &S3Store{client: fake, presign: fake, bucket: "media"}
	loc, err := st.Put(context.Background(), "/previews/1/a.mp4", []byte("abc"), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "s3://media/previews/1/a.mp4", loc)
	assert.Equal(t, "previews/1/a.mp4", *fake.put.Key)
	assert.Equal(t, "video/mp4", *fake.put.ContentType)
	assert.Equal(t, int64(3), *fake.put.ContentLength)

	fake.putErr = &apiError{code: "AccessDenied"}
	_, err = st.Put(context.Background(), "x", nil, "")
	require.ErrorIs(t, err, ErrAccessDenied)

	fake.putErr = errors.New("dial tcp: refused")
	_, err = st.Put(context.Background(), "x", nil, "")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestS3StoreSignURL(t *testing.T) {
	fake := &fakeS3{}
	st := &S3Store{client: fake, presign: fake, bucket: "media"}
	u, err := st.SignURL(context.Background(), "bucket", "obj.mp4", 30*time.Minute, "GET")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://bucket.s3.example/obj.mp4"))
	assert.Equal(t, 30*time.Minute, fake.presigned.Expires)

	u, err = st.SignURL(context.Background(), "", "obj.mp4", time.Minute, "PUT")
	require.NoError(t, err)
	assert.Equal(t, "https://put.example/obj.mp4", u)
}

func TestNewFromConfigFilesystem(t *testing.T) {
	st, err := NewFromConfig(context.Background(), &infra.Config{
		StorageDriver:     "filesystem",
		StoragePath:       t.TempDir(),
		StorageBucket:     "genvid",
		StorageSigningKey: "k",
	})
	require.NoError(t, err)
	assert.Equal(t, "genvid", st.DefaultBucket())

	_, err = NewFromConfig(context.Background(), &infra.Config{StorageDriver: "floppy"})
	require.Error(t, err)
}
