package handlers

import (
	"context"
	"net/http"
	"time"

	"genvid/internal/domain"
)

type videoResponse struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	JobID        int64     `json:"job_id"`
	Caption      string    `json:"caption"`
	Status       string    `json:"status"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *App) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID, ok := a.idParam(w, r, "video_id")
	if !ok {
		return
	}
	video, err := a.Publisher.GetVideo(r.Context(), videoID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.renderVideo(r.Context(), video)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

// ListVideos returns the caller's visible published videos, newest first.
func (a *App) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	videos, err := a.Publisher.ListVideos(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]videoResponse, 0, len(videos))
	for i := range videos {
		resp, err := a.renderVideo(r.Context(), &videos[i])
		if err != nil {
			a.fail(w, r, err)
			return
		}
		items = append(items, resp)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) renderVideo(ctx context.Context, video *domain.PublishedVideo) (videoResponse, error) {
	videoURL, err := a.Resolver.Resolve(ctx, video.VideoObject, a.SignedURLTTL)
	if err != nil {
		return videoResponse{}, err
	}
	thumb, err := a.Resolver.ResolveOptional(ctx, video.ThumbnailObject, a.SignedURLTTL)
	if err != nil {
		return videoResponse{}, err
	}
	return videoResponse{
		ID:           video.ID,
		UserID:       video.UserID,
		JobID:        video.JobID,
		Caption:      video.Caption,
		Status:       string(video.Status),
		VideoURL:     videoURL,
		ThumbnailURL: thumb,
		CreatedAt:    video.CreatedAt,
	}, nil
}
