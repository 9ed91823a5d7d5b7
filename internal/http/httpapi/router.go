package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"genvid/internal/http/handlers"
	"genvid/internal/middleware"
)

// Options configures the router around the handlers.
type Options struct {
	JWTSecret       string
	RateLimitPerMin int
	CORSOrigins     []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/static/{bucket}/*", app.ServeStatic)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret, app.Unauthorized))

		r.Route("/generations", func(r chi.Router) {
			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/", app.CreateGeneration)
			r.Get("/", app.ListGenerations)
			r.Get("/{job_id}", app.GetGeneration)
			r.Post("/{job_id}/publish", app.PublishGeneration)
		})
		r.Get("/videos", app.ListVideos)
		r.Get("/videos/{video_id}", app.GetVideo)
		r.Get("/quota", app.GetQuota)
		r.Get("/events", app.Events)
	})

	return r
}
