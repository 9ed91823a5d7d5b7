package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyJWT(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{Sub: "7", Exp: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	claims, err := VerifyJWT("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Sub)

	_, err = VerifyJWT("other", token)
	assert.ErrorIs(t, err, errInvalidToken)

	expired, err := SignJWT("secret", TokenClaims{Sub: "7", Exp: time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)
	_, err = VerifyJWT("secret", expired)
	assert.ErrorIs(t, err, errTokenExpired)
}

func TestAuthJWTPutsUserIDInContext(t *testing.T) {
	var seen int64
	h := AuthJWT("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	token, err := SignJWT("secret", TokenClaims{Sub: "42"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), seen)
}

func TestAuthJWTRejects(t *testing.T) {
	nonNumeric, err := SignJWT("secret", TokenClaims{Sub: "alice"})
	require.NoError(t, err)
	zero, err := SignJWT("secret", TokenClaims{Sub: "0"})
	require.NoError(t, err)

	cases := map[string]string{
		"missing":     "",
		"scheme":      "Basic abc",
		"garbage":     "Bearer abc.def",
		"non numeric": "Bearer " + nonNumeric,
		"zero":        "Bearer " + zero,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			called := false
			h := AuthJWT("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestLoggerKeepsFlusherAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	flushed := false
	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		_, _ = w.Write([]byte("data: {}\n\n"))
		f.Flush()
		flushed = true
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/generations/1/events", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, flushed)
	assert.True(t, rec.Flushed)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.True(t, strings.Contains(buf.String(), `"request_id":"req-1"`), buf.String())
}
