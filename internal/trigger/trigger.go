// Package trigger starts one out-of-process worker execution per dispatched
// job. Success means the execution was scheduled, not that it finished.
package trigger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"genvid/internal/infra"
	"genvid/internal/queue"
)

// Trigger schedules a worker run for msg.
type Trigger interface {
	Trigger(ctx context.Context, msg queue.Message) error
}

// WorkerArgs returns the worker command line for msg.
func WorkerArgs(msg queue.Message) []string {
	return []string{"--job-id", strconv.FormatInt(msg.JobID, 10), "--prompt", msg.Prompt}
}

// NewFromConfig selects the trigger named by TRIGGER_DRIVER.
func NewFromConfig(cfg *infra.Config, logger zerolog.Logger) (Trigger, error) {
	switch cfg.TriggerDriver {
	case "", "exec":
		return NewExecTrigger(cfg.WorkerBinary, nil, logger), nil
	case "webhook":
		if cfg.TriggerWebhookURL == "" {
			return nil, fmt.Errorf("TRIGGER_WEBHOOK_URL is required for the webhook trigger")
		}
		return NewWebhookTrigger(cfg.TriggerWebhookURL, cfg.TriggerWebhookToken, nil), nil
	default:
		return nil, fmt.Errorf("unknown trigger driver %q", cfg.TriggerDriver)
	}
}
