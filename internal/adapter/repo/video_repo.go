package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"genvid/internal/domain"
	"genvid/internal/infra"
	"genvid/internal/sqlinline"
)

// VideoRepositoryPG implements domain.VideoRepository.
type VideoRepositoryPG struct {
	db infra.SQLExecutor
}

// NewVideoRepository creates a published video repository backed by PostgreSQL.
func NewVideoRepository(db infra.SQLExecutor) *VideoRepositoryPG {
	return &VideoRepositoryPG{db: db}
}

// PublishFromJob runs the single-statement publish. No returned row means the
// guard failed; the caller has already classified missing and non-succeeded
// jobs, so the remaining cause is a concurrent publish.
func (r *VideoRepositoryPG) PublishFromJob(ctx context.Context, jobID, userID int64) (*domain.PublishedVideo, error) {
	video, err := scanVideo(r.db.QueryRow(ctx, sqlinline.QPublishJob, jobID, userID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAlreadyPublished
		}
		return nil, fmt.Errorf("publish job %d: %w", jobID, err)
	}
	return video, nil
}

// GetByID fetches a published video.
func (r *VideoRepositoryPG) GetByID(ctx context.Context, videoID int64) (*domain.PublishedVideo, error) {
	return scanVideo(r.db.QueryRow(ctx, sqlinline.QSelectVideoByID, videoID))
}

// ListByUser returns the caller's READY videos, newest first.
func (r *VideoRepositoryPG) ListByUser(ctx context.Context, userID int64) ([]domain.PublishedVideo, error) {
	rows, err := r.db.Query(ctx, sqlinline.QSelectVideosByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("list videos of user %d: %w", userID, err)
	}
	defer rows.Close()
	var videos []domain.PublishedVideo
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return videos, nil
}

func scanVideo(row pgx.Row) (*domain.PublishedVideo, error) {
	var (
		video  domain.PublishedVideo
		status string
	)
	if err := row.Scan(
		&video.ID,
		&video.UserID,
		&video.JobID,
		&video.Caption,
		&video.VideoObject,
		&video.ThumbnailObject,
		&status,
		&video.CreatedAt,
		&video.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	video.Status = domain.VideoStatus(status)
	return &video, nil
}

var _ domain.VideoRepository = (*VideoRepositoryPG)(nil)
