package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"genvid/internal/domain"
)

// RecordSetupFailure marks jobID FAILED when the process could not build its
// generator or uploader. The job is claimed first so the failure follows the
// normal RUNNING -> FAILED path; a job that is no longer QUEUED is left alone
// and false is returned.
func RecordSetupFailure(ctx context.Context, jobs domain.JobRepository, jobID int64, cause error, logger zerolog.Logger) (bool, error) {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	log := logger.With().Int64("job_id", jobID).Logger()

	claimed, err := jobs.ClaimQueued(recordCtx, jobID)
	if err != nil {
		return false, fmt.Errorf("claim job %d: %w", jobID, err)
	}
	if !claimed {
		log.Warn().Err(cause).Msg("worker setup failed; job not claimable, leaving it")
		return false, nil
	}
	ok, err := jobs.MarkFailed(recordCtx, jobID, domain.JobStatusRunning, "worker setup: "+cause.Error())
	if err != nil {
		return false, fmt.Errorf("mark job %d failed: %w", jobID, err)
	}
	log.Error().Err(cause).Msg("worker setup failed; job marked FAILED")
	return ok, nil
}
