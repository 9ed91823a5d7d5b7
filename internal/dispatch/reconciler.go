package dispatch

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

const sweepBatch = 100

// ReconcilerConfig bounds how long jobs may sit in a state before a sweep
// acts on them.
type ReconcilerConfig struct {
	RedispatchAfter   time.Duration
	StuckRunningAfter time.Duration
	MaxAttempts       int
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Redispatched int
	Abandoned    int
	StuckRunning int
}

// Reconciler recovers QUEUED jobs whose dispatch message was lost and reports
// jobs stuck in RUNNING. It never changes the status of a RUNNING job.
type Reconciler struct {
	jobs      domain.JobRepository
	publisher queue.Publisher
	cfg       ReconcilerConfig
	metrics   *metrics.Collector
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReconciler creates a reconciler. metrics may be nil.
func NewReconciler(jobs domain.JobRepository, publisher queue.Publisher, cfg ReconcilerConfig, m *metrics.Collector, logger zerolog.Logger) *Reconciler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Reconciler{jobs: jobs, publisher: publisher, cfg: cfg, metrics: m, logger: logger, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("reconcile sweep failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep runs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := r.now()

	queued, err := r.jobs.ListByStatusBefore(ctx, domain.JobStatusQueued, now.Add(-r.cfg.RedispatchAfter), sweepBatch)
	if err != nil {
		return res, fmt.Errorf("list stale queued jobs: %w", err)
	}
	for _, job := range queued {
		outcome, err := r.redispatch(ctx, job)
		if err != nil {
			r.logger.Error().Err(err).Int64("job_id", job.ID).Msg("redispatch failed")
			continue
		}
		switch outcome {
		case outcomeRepublished:
			res.Redispatched++
		case outcomeAbandoned:
			res.Abandoned++
		}
	}

	running, err := r.jobs.ListByStatusBefore(ctx, domain.JobStatusRunning, now.Add(-r.cfg.StuckRunningAfter), sweepBatch)
	if err != nil {
		return res, fmt.Errorf("list stuck running jobs: %w", err)
	}
	for _, job := range running {
		r.logger.Warn().
			Int64("job_id", job.ID).
			Time("updated_at", job.UpdatedAt).
			Dur("running_for", now.Sub(job.UpdatedAt)).
			Msg("job stuck in RUNNING")
	}
	res.StuckRunning = len(running)
	r.metrics.SetStuckRunning(res.StuckRunning)

	if res.Redispatched+res.Abandoned+res.StuckRunning > 0 {
		r.logger.Info().
			Int("redispatched", res.Redispatched).
			Int("abandoned", res.Abandoned).
			Int("stuck_running", res.StuckRunning).
			Msg("reconcile sweep")
	}
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRepublished
	outcomeAbandoned
)

func (r *Reconciler) redispatch(ctx context.Context, job domain.GenerationJob) (outcome, error) {
	attempts, err := r.jobs.RecordDispatchAttempt(ctx, job.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			// picked up since the listing
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	if attempts > r.cfg.MaxAttempts {
		msg := fmt.Sprintf("dispatch failed: not picked up after %d attempts", r.cfg.MaxAttempts)
		ok, err := r.jobs.MarkFailed(ctx, job.ID, domain.JobStatusQueued, msg)
		if err != nil {
			return outcomeSkipped, err
		}
		if !ok {
			return outcomeSkipped, nil
		}
		r.metrics.JobFinished(string(domain.JobStatusFailed), 0)
		return outcomeAbandoned, nil
	}
	if err := r.publisher.Publish(ctx, queue.Message{JobID: job.ID, Prompt: job.Prompt}); err != nil {
		r.metrics.DispatchError("publish")
		return outcomeSkipped, err
	}
	r.metrics.JobRedispatched()
	return outcomeRepublished, nil
}
