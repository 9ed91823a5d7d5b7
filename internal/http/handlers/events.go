package handlers

import (
	"fmt"
	"net/http"

	"genvid/internal/events"
	"genvid/internal/middleware"
)

// Events streams the caller's jobs as server-sent events until the client
// goes away.
func (a *App) Events(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := a.Notifier.Stream(r.Context(), userID, func(ev events.Event) error {
		var err error
		if ev.KeepAlive {
			_, err = fmt.Fprint(w, ": keep-alive\n\n")
		} else {
			_, err = fmt.Fprintf(w, "data: %s\n\n", ev.Data)
		}
		if err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		a.Logger.Warn().Err(err).
			Int64("user_id", userID).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("event stream ended")
	}
}
