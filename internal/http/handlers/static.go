package handlers

import (
	"errors"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"genvid/internal/storage"
)

// ServeStatic serves filesystem objects behind URLs signed by storage.FileStore.
func (a *App) ServeStatic(w http.ResponseWriter, r *http.Request) {
	if a.Static == nil {
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	q := r.URL.Query()
	if q.Get("method") != http.MethodGet {
		a.error(w, http.StatusForbidden, "forbidden", "signature does not grant read access")
		return
	}
	if err := a.Static.Verify(http.MethodGet, bucket, key, q.Get("expires"), q.Get("sig")); err != nil {
		msg := "invalid signature"
		if errors.Is(err, storage.ErrSignatureExpired) {
			msg = "signature expired"
		}
		a.error(w, http.StatusForbidden, "forbidden", msg)
		return
	}

	f, err := a.Static.Open(bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrBucketNotPermitted) {
			a.error(w, http.StatusNotFound, "not_found", "resource not found")
			return
		}
		a.fail(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
}
