package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"genvid/internal/domain"
	"genvid/internal/events"
)

type generationRequest struct {
	Prompt string `json:"prompt"`
}

type generationAccepted struct {
	JobID          int64  `json:"job_id"`
	Status         string `json:"status"`
	RemainingQuota int    `json:"remaining_quota"`
}

type generationResponse struct {
	events.JobView
	PreviewURL   *string `json:"preview_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

type publishResponse struct {
	VideoID int64  `json:"video_id"`
	Status  string `json:"status"`
}

func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	var req generationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	res, err := a.Dispatch.Submit(r.Context(), userID, req.Prompt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, generationAccepted{
		JobID:          res.Job.ID,
		Status:         string(res.Job.Status),
		RemainingQuota: res.RemainingQuota,
	})
}

func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	jobs, err := a.Jobs.ListByUser(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]generationResponse, 0, len(jobs))
	for _, j := range jobs {
		item, err := a.generationView(r.Context(), j)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	jobID, ok := a.idParam(w, r, "job_id")
	if !ok {
		return
	}
	job, err := a.Jobs.GetForUser(r.Context(), jobID, userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	item, err := a.generationView(r.Context(), *job)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, item)
}

func (a *App) PublishGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.currentUserID(w, r)
	if !ok {
		return
	}
	jobID, ok := a.idParam(w, r, "job_id")
	if !ok {
		return
	}
	video, err := a.Publisher.Publish(r.Context(), jobID, userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, publishResponse{VideoID: video.ID, Status: string(video.Status)})
}

func (a *App) generationView(ctx context.Context, j domain.GenerationJob) (generationResponse, error) {
	preview, err := a.Resolver.ResolveOptional(ctx, j.PreviewVideoObject, a.SignedURLTTL)
	if err != nil {
		return generationResponse{}, fmt.Errorf("sign preview of job %d: %w", j.ID, err)
	}
	thumb, err := a.Resolver.ResolveOptional(ctx, j.PreviewThumbnailObject, a.SignedURLTTL)
	if err != nil {
		return generationResponse{}, fmt.Errorf("sign thumbnail of job %d: %w", j.ID, err)
	}
	return generationResponse{JobView: events.NewJobView(j), PreviewURL: preview, ThumbnailURL: thumb}, nil
}
