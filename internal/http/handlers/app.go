package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"genvid/internal/artifact"
	"genvid/internal/dispatch"
	"genvid/internal/domain"
	"genvid/internal/events"
	"genvid/internal/middleware"
	"genvid/internal/publish"
	"genvid/internal/quota"
)

// Pinger reports database readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StaticFiles serves signed filesystem objects.
type StaticFiles interface {
	Verify(method, bucket, key, expires, sig string) error
	Open(bucket, key string) (*os.File, error)
}

// Deps are the collaborators of the HTTP handlers. Static may be nil when
// objects live in S3.
type Deps struct {
	Jobs         domain.JobRepository
	Dispatch     *dispatch.Service
	Quota        *quota.Guard
	Publisher    *publish.Service
	Notifier     *events.Notifier
	Resolver     *artifact.Resolver
	Static       StaticFiles
	DB           Pinger
	Logger       zerolog.Logger
	SignedURLTTL time.Duration
}

type App struct {
	Deps
}

func NewApp(d Deps) *App {
	return &App{Deps: d}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// Unauthorized is the AuthJWT failure hook.
func (a *App) Unauthorized(w http.ResponseWriter, _ *http.Request, reason string) {
	a.error(w, http.StatusUnauthorized, "unauthorized", reason)
}

// fail maps domain errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrQuotaExceeded):
		a.error(w, http.StatusTooManyRequests, "quota_exceeded", "daily generation quota reached")
	case errors.Is(err, domain.ErrInvalidPrompt):
		a.error(w, http.StatusBadRequest, "invalid_prompt", err.Error())
	case errors.Is(err, domain.ErrAlreadyPublished):
		a.error(w, http.StatusBadRequest, "already_published", "job already published")
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, http.StatusBadRequest, "invalid_state", "job is not in a publishable state")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	default:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID <= 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return 0, false
	}
	return userID, true
}

func (a *App) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid "+name)
		return 0, false
	}
	return id, true
}
