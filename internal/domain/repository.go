package domain

import (
	"context"
	"time"
)

// QuotaWindow bounds job creation for one user.
type QuotaWindow struct {
	Since time.Time
	Limit int
}

// JobRepository defines persistence for generation jobs. Every status mutation
// is conditional on the expected current status and reports whether exactly
// one row changed.
type JobRepository interface {
	// CreateWithinQuota inserts a QUEUED job unless the user already created
	// window.Limit jobs since window.Since. It returns the job and the number
	// of jobs the user had before this insert.
	CreateWithinQuota(ctx context.Context, userID int64, prompt string, window QuotaWindow) (*GenerationJob, int, error)
	CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	GetByID(ctx context.Context, jobID int64) (*GenerationJob, error)
	GetForUser(ctx context.Context, jobID, userID int64) (*GenerationJob, error)
	ListByUser(ctx context.Context, userID int64) ([]GenerationJob, error)
	ListByStatusBefore(ctx context.Context, status JobStatus, before time.Time, limit int) ([]GenerationJob, error)
	ClaimQueued(ctx context.Context, jobID int64) (bool, error)
	MarkSucceeded(ctx context.Context, jobID int64, videoObject string, thumbnailObject *string) (bool, error)
	MarkFailed(ctx context.Context, jobID int64, from JobStatus, message string) (bool, error)
	// RecordDispatchAttempt bumps the redispatch counter of a QUEUED job and
	// returns the new count; ErrInvalidState when the job left QUEUED.
	RecordDispatchAttempt(ctx context.Context, jobID int64) (int, error)
}

// VideoRepository handles published videos.
type VideoRepository interface {
	// PublishFromJob copies the artifact of a SUCCEEDED, unpublished job owned
	// by userID into a new READY video and links it back onto the job.
	PublishFromJob(ctx context.Context, jobID, userID int64) (*PublishedVideo, error)
	GetByID(ctx context.Context, videoID int64) (*PublishedVideo, error)
	// ListByUser returns the READY videos of userID, newest first.
	ListByUser(ctx context.Context, userID int64) ([]PublishedVideo, error)
}
