// Package memstore keeps generation jobs and published videos in memory. It
// mirrors the conditional-update semantics of the Postgres repositories and
// backs service tests and local runs without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"genvid/internal/domain"
)

// Store implements domain.JobRepository and domain.VideoRepository.
type Store struct {
	mu      sync.Mutex
	jobs    map[int64]*domain.GenerationJob
	videos  map[int64]*domain.PublishedVideo
	nextJob int64
	nextVid int64
	now     func() time.Time
}

// New returns an empty store. Job ids start after firstJobID.
func New(firstJobID int64) *Store {
	return &Store{
		jobs:    make(map[int64]*domain.GenerationJob),
		videos:  make(map[int64]*domain.PublishedVideo),
		nextJob: firstJobID,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Put stores a copy of job as is, for arranging fixtures.
func (s *Store) Put(job domain.GenerationJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID > s.nextJob {
		s.nextJob = job.ID
	}
	s.jobs[job.ID] = &job
}

func (s *Store) touch(job *domain.GenerationJob) {
	now := s.now()
	if now.After(job.UpdatedAt) {
		job.UpdatedAt = now
	}
}

func (s *Store) CreateWithinQuota(_ context.Context, userID int64, prompt string, window domain.QuotaWindow) (*domain.GenerationJob, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.countLocked(userID, window.Since)
	if used >= window.Limit {
		return nil, used, domain.ErrQuotaExceeded
	}
	s.nextJob++
	now := s.now()
	job := &domain.GenerationJob{
		ID:        s.nextJob,
		UserID:    userID,
		Prompt:    prompt,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	out := *job
	return &out, used, nil
}

func (s *Store) CountCreatedSince(_ context.Context, userID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(userID, since), nil
}

func (s *Store) countLocked(userID int64, since time.Time) int {
	n := 0
	for _, j := range s.jobs {
		if j.UserID == userID && !j.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func (s *Store) GetByID(_ context.Context, jobID int64) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *job
	return &out, nil
}

func (s *Store) GetForUser(ctx context.Context, jobID, userID int64) (*domain.GenerationJob, error) {
	job, err := s.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.OwnedBy(userID) {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (s *Store) ListByUser(_ context.Context, userID int64) ([]domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GenerationJob
	for _, j := range s.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].UpdatedAt.Equal(out[b].UpdatedAt) {
			return out[a].UpdatedAt.After(out[b].UpdatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

func (s *Store) ListByStatusBefore(_ context.Context, status domain.JobStatus, before time.Time, limit int) ([]domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GenerationJob
	for _, j := range s.jobs {
		if j.Status == status && j.UpdatedAt.Before(before) {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.Before(out[b].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) transition(jobID int64, from, to domain.JobStatus, apply func(*domain.GenerationJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != from || !from.CanTransitionTo(to) {
		return false
	}
	job.Status = to
	if apply != nil {
		apply(job)
	}
	s.touch(job)
	return true
}

func (s *Store) ClaimQueued(_ context.Context, jobID int64) (bool, error) {
	return s.transition(jobID, domain.JobStatusQueued, domain.JobStatusRunning, nil), nil
}

func (s *Store) MarkSucceeded(_ context.Context, jobID int64, videoObject string, thumbnailObject *string) (bool, error) {
	return s.transition(jobID, domain.JobStatusRunning, domain.JobStatusSucceeded, func(j *domain.GenerationJob) {
		j.PreviewVideoObject = &videoObject
		j.PreviewThumbnailObject = thumbnailObject
		j.ErrorMessage = nil
	}), nil
}

func (s *Store) MarkFailed(_ context.Context, jobID int64, from domain.JobStatus, message string) (bool, error) {
	if !from.CanTransitionTo(domain.JobStatusFailed) {
		return false, domain.ErrInvalidState
	}
	msg := domain.TruncateErrorMessage(message)
	return s.transition(jobID, from, domain.JobStatusFailed, func(j *domain.GenerationJob) {
		j.ErrorMessage = &msg
		j.PreviewVideoObject = nil
		j.PreviewThumbnailObject = nil
	}), nil
}

func (s *Store) RecordDispatchAttempt(_ context.Context, jobID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusQueued {
		return 0, domain.ErrInvalidState
	}
	job.DispatchAttempts++
	s.touch(job)
	return job.DispatchAttempts, nil
}

// PublishFromJob applies the same guard as the SQL statement.
func (s *Store) PublishFromJob(_ context.Context, jobID, userID int64) (*domain.PublishedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || !job.OwnedBy(userID) || job.CheckPublishable() != nil {
		return nil, domain.ErrAlreadyPublished
	}
	s.nextVid++
	now := s.now()
	video := &domain.PublishedVideo{
		ID:              s.nextVid,
		UserID:          userID,
		JobID:           jobID,
		Caption:         job.Prompt,
		VideoObject:     *job.PreviewVideoObject,
		ThumbnailObject: copyString(job.PreviewThumbnailObject),
		Status:          domain.VideoStatusReady,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.videos[video.ID] = video
	id := video.ID
	job.PublishedVideoID = &id
	s.touch(job)
	out := *video
	return &out, nil
}

func (s *Store) GetVideo(_ context.Context, videoID int64) (*domain.PublishedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[videoID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *video
	return &out, nil
}

// ListVideos returns the READY videos of userID, newest first.
func (s *Store) ListVideos(_ context.Context, userID int64) ([]domain.PublishedVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PublishedVideo
	for _, v := range s.videos {
		if v.UserID == userID && v.Visible() {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

// SetVideoStatus changes the status of a published video, for arranging
// moderation fixtures.
func (s *Store) SetVideoStatus(videoID int64, status domain.VideoStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.videos[videoID]; ok {
		v.Status = status
		v.UpdatedAt = s.now()
	}
}

// Videos exposes the store as a domain.VideoRepository; GetByID is taken by jobs.
func (s *Store) Videos() domain.VideoRepository { return videoView{s} }

type videoView struct{ s *Store }

func (v videoView) PublishFromJob(ctx context.Context, jobID, userID int64) (*domain.PublishedVideo, error) {
	return v.s.PublishFromJob(ctx, jobID, userID)
}

func (v videoView) GetByID(ctx context.Context, videoID int64) (*domain.PublishedVideo, error) {
	return v.s.GetVideo(ctx, videoID)
}

func (v videoView) ListByUser(ctx context.Context, userID int64) ([]domain.PublishedVideo, error) {
	return v.s.ListVideos(ctx, userID)
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ domain.JobRepository = (*Store)(nil)
