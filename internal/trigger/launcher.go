package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"genvid/internal/domain"
	"genvid/internal/metrics"
	"genvid/internal/queue"
)

// failureRecordTimeout bounds the detached write that marks a job FAILED.
const failureRecordTimeout = 10 * time.Second

// Launcher consumes dispatch messages and triggers one worker per QUEUED job.
type Launcher struct {
	jobs    domain.JobRepository
	trigger Trigger
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewLauncher creates a launcher. metrics may be nil.
func NewLauncher(jobs domain.JobRepository, t Trigger, m *metrics.Collector, logger zerolog.Logger) *Launcher {
	return &Launcher{jobs: jobs, trigger: t, metrics: m, logger: logger}
}

// Run handles messages from sub until ctx is cancelled.
func (l *Launcher) Run(ctx context.Context, sub queue.Subscriber) error {
	return sub.Subscribe(ctx, l.Handle)
}

// Handle triggers msg's job once. Duplicate deliveries of a job that already
// left QUEUED are skipped. A trigger failure marks the job FAILED.
func (l *Launcher) Handle(ctx context.Context, msg queue.Message) error {
	log := l.logger.With().Int64("job_id", msg.JobID).Logger()

	job, err := l.jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("dispatch for unknown job")
			return nil
		}
		return fmt.Errorf("load job %d: %w", msg.JobID, err)
	}
	if job.Status != domain.JobStatusQueued {
		log.Debug().Str("status", string(job.Status)).Msg("skip duplicate dispatch")
		return nil
	}

	if err := l.trigger.Trigger(ctx, msg); err != nil {
		l.metrics.DispatchError("trigger")
		log.Error().Err(err).Msg("trigger failed")

		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
		defer cancel()
		ok, markErr := l.jobs.MarkFailed(recordCtx, msg.JobID, domain.JobStatusQueued, "dispatch failed: "+err.Error())
		if markErr != nil {
			return fmt.Errorf("mark job %d failed: %w", msg.JobID, markErr)
		}
		if ok {
			l.metrics.JobFinished(string(domain.JobStatusFailed), 0)
		}
		return nil
	}
	return nil
}
