package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"genvid/internal/domain"
	"genvid/internal/infra"
	"genvid/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	db infra.SQLTransactor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(db infra.SQLTransactor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// CreateWithinQuota counts and inserts inside one transaction holding a
// per-user advisory lock, so concurrent submissions cannot overshoot the limit.
func (r *JobRepositoryPG) CreateWithinQuota(ctx context.Context, userID int64, prompt string, window domain.QuotaWindow) (*domain.GenerationJob, int, error) {
	var (
		job  *domain.GenerationJob
		used int
	)
	err := r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QLockUserQuota, userID); err != nil {
			return fmt.Errorf("lock quota: %w", err)
		}
		if err := tx.QueryRow(ctx, sqlinline.QCountJobsSince, userID, window.Since).Scan(&used); err != nil {
			return fmt.Errorf("count jobs: %w", err)
		}
		if used >= window.Limit {
			return domain.ErrQuotaExceeded
		}
		created, err := scanJob(tx.QueryRow(ctx, sqlinline.QInsertJob, userID, prompt))
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		job = created
		return nil
	})
	if err != nil {
		return nil, used, err
	}
	return job, used, nil
}

// CountCreatedSince returns how many jobs userID created at or after since.
func (r *JobRepositoryPG) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, sqlinline.QCountJobsSince, userID, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID int64) (*domain.GenerationJob, error) {
	return scanJob(r.db.QueryRow(ctx, sqlinline.QSelectJobByID, jobID))
}

// GetForUser fetches a job only when userID owns it.
func (r *JobRepositoryPG) GetForUser(ctx context.Context, jobID, userID int64) (*domain.GenerationJob, error) {
	return scanJob(r.db.QueryRow(ctx, sqlinline.QSelectJobForUser, jobID, userID))
}

// ListByUser returns the user's jobs, most recently updated first.
func (r *JobRepositoryPG) ListByUser(ctx context.Context, userID int64) ([]domain.GenerationJob, error) {
	rows, err := r.db.Query(ctx, sqlinline.QSelectJobsByUser, userID)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// ListByStatusBefore returns up to limit jobs in status that were last updated before the cutoff.
func (r *JobRepositoryPG) ListByStatusBefore(ctx context.Context, status domain.JobStatus, before time.Time, limit int) ([]domain.GenerationJob, error) {
	rows, err := r.db.Query(ctx, sqlinline.QSelectJobsByStatusBefore, string(status), before, limit)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// ClaimQueued moves a job from QUEUED to RUNNING. It reports false when the
// job was not QUEUED, which makes repeated deliveries harmless.
func (r *JobRepositoryPG) ClaimQueued(ctx context.Context, jobID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QClaimJob, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSucceeded records the artifact locators together with RUNNING -> SUCCEEDED.
func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, jobID int64, videoObject string, thumbnailObject *string) (bool, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QMarkJobSucceeded, jobID, videoObject, thumbnailObject)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a job from the given status to FAILED with a truncated message.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID int64, from domain.JobStatus, message string) (bool, error) {
	if !from.CanTransitionTo(domain.JobStatusFailed) {
		return false, fmt.Errorf("mark failed from %s: %w", from, domain.ErrInvalidState)
	}
	tag, err := r.db.Exec(ctx, sqlinline.QMarkJobFailed, jobID, string(from), domain.TruncateErrorMessage(message))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RecordDispatchAttempt increments dispatch_attempts of a QUEUED job.
func (r *JobRepositoryPG) RecordDispatchAttempt(ctx context.Context, jobID int64) (int, error) {
	var attempts int
	if err := r.db.QueryRow(ctx, sqlinline.QRecordDispatchAttempt, jobID).Scan(&attempts); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrInvalidState
		}
		return 0, err
	}
	return attempts, nil
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var (
		job    domain.GenerationJob
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Prompt,
		&status,
		&job.PreviewVideoObject,
		&job.PreviewThumbnailObject,
		&job.ErrorMessage,
		&job.PublishedVideoID,
		&job.DispatchAttempts,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.GenerationJob, error) {
	defer rows.Close()
	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
