// Package worker executes one generation job: claim, generate, upload and
// record the terminal status.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"genvid/internal/domain"
	"genvid/internal/metrics"
	videoprovider "genvid/internal/providers/video"
)

// recordTimeout bounds status writes made after the job context ended.
const recordTimeout = 15 * time.Second

// Outcome reports what Execute did with the job.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Uploader persists artifact bytes and returns their locator.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Options carries clip parameters and limits.
type Options struct {
	DurationSeconds   int
	AspectRatio       string
	Resolution        string
	GenerationTimeout time.Duration
}

// Worker runs jobs against a generator and an uploader.
type Worker struct {
	jobs    domain.JobRepository
	gen     videoprovider.Generator
	store   Uploader
	opts    Options
	metrics *metrics.Collector
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a worker. metrics may be nil.
func New(jobs domain.JobRepository, gen videoprovider.Generator, store Uploader, opts Options, m *metrics.Collector, logger zerolog.Logger) *Worker {
	return &Worker{jobs: jobs, gen: gen, store: store, opts: opts, metrics: m, logger: logger, now: time.Now}
}

// PreviewKey is the object key of a job's preview video.
func PreviewKey(jobID int64, at time.Time) string {
	return fmt.Sprintf("previews/%d/preview_%d.mp4", jobID, at.Unix())
}

// ThumbnailKey is the object key of a job's preview thumbnail.
func ThumbnailKey(jobID int64, at time.Time) string {
	return fmt.Sprintf("previews/%d/thumbnail_%d.png", jobID, at.Unix())
}

// Execute runs jobID once. Missing jobs and jobs that are no longer QUEUED
// are skipped. Generation and upload failures are recorded as FAILED and are
// not returned; an error means the job's state could not be read or written.
func (w *Worker) Execute(ctx context.Context, jobID int64, prompt string) (Outcome, error) {
	log := w.logger.With().Int64("job_id", jobID).Logger()

	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("job not found")
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, fmt.Errorf("load job %d: %w", jobID, err)
	}

	claimed, err := w.jobs.ClaimQueued(ctx, jobID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("claim job %d: %w", jobID, err)
	}
	if !claimed {
		log.Info().Str("status", string(job.Status)).Msg("job not claimable; skipping")
		return OutcomeSkipped, nil
	}
	started := w.now()
	if prompt != "" && prompt != job.Prompt {
		log.Warn().Msg("dispatched prompt differs from stored prompt; using stored prompt")
	}
	log.Info().Msg("job running")

	video, thumb, runErr := w.run(ctx, job)
	if runErr == nil {
		ok, err := w.jobs.MarkSucceeded(ctx, jobID, video, thumb)
		if err == nil {
			if !ok {
				log.Warn().Msg("job left RUNNING before completion was recorded")
				return OutcomeSkipped, nil
			}
			w.metrics.JobFinished(string(domain.JobStatusSucceeded), w.now().Sub(started).Seconds())
			log.Info().Str("video", video).Msg("job succeeded")
			return OutcomeSucceeded, nil
		}
		runErr = fmt.Errorf("record success: %w", err)
	}

	log.Error().Err(runErr).Msg("job failed")
	if err := w.recordFailure(ctx, jobID, runErr); err != nil {
		return OutcomeFailed, err
	}
	w.metrics.JobFinished(string(domain.JobStatusFailed), w.now().Sub(started).Seconds())
	return OutcomeFailed, nil
}

// run generates and uploads. A panic is converted into an error so the job
// still reaches a terminal status.
func (w *Worker) run(ctx context.Context, job *domain.GenerationJob) (video string, thumb *string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Int64("job_id", job.ID).Bytes("stack", debug.Stack()).Msg("panic during generation")
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	genCtx := ctx
	if w.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, w.opts.GenerationTimeout)
		defer cancel()
	}
	clip, err := w.gen.Generate(genCtx, videoprovider.Request{
		Prompt:          job.Prompt,
		DurationSeconds: w.opts.DurationSeconds,
		AspectRatio:     w.opts.AspectRatio,
		Resolution:      w.opts.Resolution,
	})
	if err != nil {
		return "", nil, fmt.Errorf("generate: %w", err)
	}
	if clip == nil || len(clip.Data) == 0 {
		return "", nil, fmt.Errorf("generate: %w: empty clip", domain.ErrProviderFailure)
	}

	at := w.now()
	mime := clip.MimeType
	if mime == "" {
		mime = "video/mp4"
	}
	video, err = w.store.Put(ctx, PreviewKey(job.ID, at), clip.Data, mime)
	if err != nil {
		return "", nil, fmt.Errorf("upload video: %w", err)
	}
	if len(clip.Thumbnail) > 0 {
		loc, err := w.store.Put(ctx, ThumbnailKey(job.ID, at), clip.Thumbnail, "image/png")
		if err != nil {
			return "", nil, fmt.Errorf("upload thumbnail: %w", err)
		}
		thumb = &loc
	}
	return video, thumb, nil
}

func (w *Worker) recordFailure(ctx context.Context, jobID int64, cause error) error {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	ok, err := w.jobs.MarkFailed(recordCtx, jobID, domain.JobStatusRunning, cause.Error())
	if err != nil {
		return fmt.Errorf("mark job %d failed: %w", jobID, err)
	}
	if !ok {
		w.logger.Warn().Int64("job_id", jobID).Msg("job left RUNNING before failure was recorded")
	}
	return nil
}
