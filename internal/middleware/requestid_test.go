package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDKeepsWellFormedClientID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("X-Request-ID", "edge:7f3a-01_b.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "edge:7f3a-01_b.2", seen)
	assert.Equal(t, "edge:7f3a-01_b.2", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDReplacesMalformedClientID(t *testing.T) {
	cases := map[string]string{
		"missing":  "",
		"too long": strings.Repeat("a", maxRequestIDLen+1),
		"newline":  "abc\ndata: forged",
		"quote":    `abc","user_id":1`,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
			if header != "" {
				req.Header["X-Request-Id"] = []string{header}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.NotEqual(t, header, seen)
			_, err := uuid.Parse(seen)
			require.NoError(t, err, seen)
			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
		})
	}
}
