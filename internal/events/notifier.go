// Package events streams a user's job states to a connected client.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"genvid/internal/domain"
	"genvid/internal/metrics"
)

// DefaultInterval is the poll period between snapshots.
const DefaultInterval = 3 * time.Second

// Lister returns a user's jobs ordered by updated_at descending.
type Lister interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.GenerationJob, error)
}

// JobView is the streamed representation of a job.
type JobView struct {
	ID                     int64     `json:"id"`
	Prompt                 string    `json:"prompt"`
	Status                 string    `json:"status"`
	PreviewVideoObject     *string   `json:"preview_video_object"`
	PreviewThumbnailObject *string   `json:"preview_thumbnail_object"`
	ErrorMessage           *string   `json:"error_message"`
	PublishedVideoID       *int64    `json:"published_video_id"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewJobView projects a job for clients.
func NewJobView(j domain.GenerationJob) JobView {
	return JobView{
		ID:                     j.ID,
		Prompt:                 j.Prompt,
		Status:                 string(j.Status),
		PreviewVideoObject:     j.PreviewVideoObject,
		PreviewThumbnailObject: j.PreviewThumbnailObject,
		ErrorMessage:           j.ErrorMessage,
		PublishedVideoID:       j.PublishedVideoID,
		CreatedAt:              j.CreatedAt,
		UpdatedAt:              j.UpdatedAt,
	}
}

// Event is either a snapshot payload or a keep-alive.
type Event struct {
	Data      []byte
	KeepAlive bool
}

// Emitter delivers one event to the client. An error ends the stream.
type Emitter func(Event) error

// Notifier polls the job store per connected client.
type Notifier struct {
	jobs     Lister
	interval time.Duration
	metrics  *metrics.Collector
}

// NewNotifier creates a notifier. metrics may be nil.
func NewNotifier(jobs Lister, interval time.Duration, m *metrics.Collector) *Notifier {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Notifier{jobs: jobs, interval: interval, metrics: m}
}

// Stream emits a snapshot immediately and then every interval, sending the
// payload only when it differs from the last one sent and a keep-alive
// otherwise. It returns nil once ctx is cancelled.
func (n *Notifier) Stream(ctx context.Context, userID int64, emit Emitter) error {
	defer n.metrics.StreamOpened()()

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	var (
		last uint64
		sent bool
	)
	for {
		payload, err := n.snapshot(ctx, userID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		sum := xxhash.Sum64(payload)
		ev := Event{KeepAlive: true}
		if !sent || sum != last {
			ev = Event{Data: payload}
			last, sent = sum, true
		}
		if err := emit(ev); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (n *Notifier) snapshot(ctx context.Context, userID int64) ([]byte, error) {
	jobs, err := n.jobs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for user %d: %w", userID, err)
	}
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, NewJobView(j))
	}
	return json.Marshal(views)
}
