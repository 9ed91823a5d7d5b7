package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"genvid/internal/infra"
	"genvid/internal/sqlinline"
)

// NotifyPublisher emits messages with pg_notify. Notifications are only
// delivered after the surrounding transaction commits, which the dispatcher
// relies on by publishing after the job insert.
type NotifyPublisher struct {
	db      infra.SQLExecutor
	channel string
}

// NewNotifyPublisher creates a publisher on the given channel.
func NewNotifyPublisher(db infra.SQLExecutor, channel string) *NotifyPublisher {
	return &NotifyPublisher{db: db, channel: channel}
}

// Publish sends msg as a JSON notification payload.
func (p *NotifyPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, sqlinline.QNotifyDispatch, p.channel, string(payload)); err != nil {
		return fmt.Errorf("notify job %d: %w", msg.JobID, err)
	}
	return nil
}

// pingInterval keeps idle LISTEN connections from being dropped silently.
const pingInterval = 90 * time.Second

// listener is the part of *pq.Listener used by PGListener.
type listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PGListener receives notifications through a dedicated lib/pq connection
// that reconnects on its own.
type PGListener struct {
	channel string
	logger  zerolog.Logger
	open    func() listener
}

// NewPGListener creates a subscriber for channel using dsn.
func NewPGListener(dsn, channel string, logger zerolog.Logger) *PGListener {
	l := &PGListener{channel: channel, logger: logger}
	l.open = func() listener {
		return pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				l.logger.Warn().Err(err).Int("event", int(ev)).Msg("pq listener event")
			}
		})
	}
	return l
}

// Subscribe blocks until ctx is done. Undecodable payloads and handler
// errors are logged and skipped.
func (l *PGListener) Subscribe(ctx context.Context, h Handler) error {
	pl := l.open()
	defer pl.Close()
	if err := pl.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info().Str("channel", l.channel).Msg("listening for dispatch messages")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.NotificationChannel():
			// nil after a reconnect; missed messages are recovered by the reconciler
			if n == nil {
				l.logger.Warn().Msg("listener reconnected")
				continue
			}
			msg, err := Decode([]byte(n.Extra))
			if err != nil {
				l.logger.Error().Err(err).Str("payload", n.Extra).Msg("drop dispatch message")
				continue
			}
			if err := h(ctx, msg); err != nil {
				l.logger.Error().Err(err).Int64("job_id", msg.JobID).Msg("dispatch handler failed")
			}
		case <-ticker.C:
			if err := pl.Ping(); err != nil {
				l.logger.Warn().Err(err).Msg("listener ping failed")
			}
		}
	}
}

var (
	_ Publisher  = (*NotifyPublisher)(nil)
	_ Subscriber = (*PGListener)(nil)
	_ listener   = (*pq.Listener)(nil)
)
