package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"genvid/internal/domain"
	"genvid/internal/metrics"
	"genvid/internal/queue"
	"genvid/internal/quota"
)

// DefaultMaxPromptRunes bounds a prompt after normalization.
const DefaultMaxPromptRunes = 1000

// Result is returned for an accepted submission.
type Result struct {
	Job            *domain.GenerationJob
	RemainingQuota int
}

// Service accepts prompts, stores QUEUED jobs and emits dispatch messages.
type Service struct {
	jobs           domain.JobRepository
	quota          *quota.Guard
	publisher      queue.Publisher
	metrics        *metrics.Collector
	logger         zerolog.Logger
	maxPromptRunes int
}

// NewService wires the dispatcher. metrics may be nil.
func NewService(jobs domain.JobRepository, guard *quota.Guard, publisher queue.Publisher, m *metrics.Collector, logger zerolog.Logger, maxPromptRunes int) *Service {
	if maxPromptRunes <= 0 {
		maxPromptRunes = DefaultMaxPromptRunes
	}
	return &Service{
		jobs:           jobs,
		quota:          guard,
		publisher:      publisher,
		metrics:        m,
		logger:         logger,
		maxPromptRunes: maxPromptRunes,
	}
}

// NormalizePrompt returns prompt in NFC with surrounding space removed.
func NormalizePrompt(prompt string, maxRunes int) (string, error) {
	p := strings.TrimSpace(norm.NFC.String(prompt))
	if p == "" {
		return "", fmt.Errorf("%w: prompt is empty", domain.ErrInvalidPrompt)
	}
	if maxRunes > 0 && utf8.RuneCountInString(p) > maxRunes {
		return "", fmt.Errorf("%w: prompt longer than %d characters", domain.ErrInvalidPrompt, maxRunes)
	}
	return p, nil
}

// Submit validates the prompt, creates the job within the user's quota and,
// once the row is committed, publishes exactly one dispatch message. A publish
// failure leaves the job QUEUED for the reconciler and is not returned.
func (s *Service) Submit(ctx context.Context, userID int64, prompt string) (*Result, error) {
	p, err := NormalizePrompt(prompt, s.maxPromptRunes)
	if err != nil {
		return nil, err
	}

	job, used, err := s.jobs.CreateWithinQuota(ctx, userID, p, s.quota.Window())
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			s.metrics.QuotaRejected()
			return nil, err
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.metrics.JobSubmitted()

	log := s.logger.With().Int64("job_id", job.ID).Int64("user_id", userID).Logger()
	if err := s.publisher.Publish(ctx, queue.Message{JobID: job.ID, Prompt: job.Prompt}); err != nil {
		s.metrics.DispatchError("publish")
		log.Error().Err(err).Msg("dispatch publish failed; job left QUEUED")
	} else {
		s.metrics.DispatchPublished()
		log.Info().Msg("job queued")
	}

	return &Result{Job: job, RemainingQuota: s.quota.Remaining(used + 1)}, nil
}
