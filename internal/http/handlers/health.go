package handlers

import (
	"context"
	"net/http"
	"time"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the database answers.
func (a *App) Ready(w http.ResponseWriter, r *http.Request) {
	if a.DB == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("readiness check failed")
		a.error(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
