package queue

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Memory.Publish when the buffer is full.
var ErrQueueFull = errors.New("dispatch queue full")

// Memory is an in-process channel for single-binary deployments. Messages
// published before a subscriber starts stay buffered.
type Memory struct {
	ch     chan Message
	logger zerolog.Logger
}

// NewMemory creates a buffered in-memory queue.
func NewMemory(size int, logger zerolog.Logger) *Memory {
	if size <= 0 {
		size = 64
	}
	return &Memory{ch: make(chan Message, size), logger: logger}
}

// Publish enqueues msg without blocking.
func (m *Memory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe handles messages sequentially. Handler errors are logged and the
// message is dropped; the reconciler picks the job up again.
func (m *Memory) Subscribe(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.ch:
			if err := h(ctx, msg); err != nil {
				m.logger.Error().Err(err).Int64("job_id", msg.JobID).Msg("dispatch handler failed")
			}
		}
	}
}

var (
	_ Publisher  = (*Memory)(nil)
	_ Subscriber = (*Memory)(nil)
)
