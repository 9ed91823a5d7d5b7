// Package publish promotes a succeeded job's artifact into a published video.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"genvid/internal/domain"
	"genvid/internal/metrics"
)

// Service publishes jobs.
type Service struct {
	jobs    domain.JobRepository
	videos  domain.VideoRepository
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewService creates a publisher. metrics may be nil.
func NewService(jobs domain.JobRepository, videos domain.VideoRepository, m *metrics.Collector, logger zerolog.Logger) *Service {
	return &Service{jobs: jobs, videos: videos, metrics: m, logger: logger}
}

// Publish creates a READY video from jobID for its owner. Jobs of other users
// are reported as not found. The final insert is guarded on the job still
// being unpublished, so a concurrent second publish fails with
// ErrAlreadyPublished.
func (s *Service) Publish(ctx context.Context, jobID, userID int64) (*domain.PublishedVideo, error) {
	job, err := s.jobs.GetForUser(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}
	if err := job.CheckPublishable(); err != nil {
		return nil, err
	}

	video, err := s.videos.PublishFromJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	s.metrics.JobPublished()
	s.logger.Info().Int64("job_id", jobID).Int64("video_id", video.ID).Int64("user_id", userID).Msg("job published")
	return video, nil
}

// GetVideo returns a visible published video.
func (s *Service) GetVideo(ctx context.Context, videoID int64) (*domain.PublishedVideo, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.Visible() {
		return nil, domain.ErrNotFound
	}
	return video, nil
}

// ListVideos returns the visible videos published by userID, newest first.
func (s *Service) ListVideos(ctx context.Context, userID int64) ([]domain.PublishedVideo, error) {
	videos, err := s.videos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list videos of user %d: %w", userID, err)
	}
	visible := videos[:0]
	for _, v := range videos {
		if v.Visible() {
			visible = append(visible, v)
		}
	}
	return visible, nil
}
