package trigger

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"genvid/internal/queue"
)

// ExecTrigger starts the worker binary as a child process and reaps it in the
// background. The child is not bound to the caller's context.
type ExecTrigger struct {
	binary string
	prefix []string
	logger zerolog.Logger
	// done, when set, receives each child's exit error after it is reaped.
	done func(jobID int64, err error)
}

// NewExecTrigger runs binary with prefix followed by the worker flags.
func NewExecTrigger(binary string, prefix []string, logger zerolog.Logger) *ExecTrigger {
	return &ExecTrigger{binary: binary, prefix: prefix, logger: logger}
}

func (t *ExecTrigger) Trigger(ctx context.Context, msg queue.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args := append(append([]string{}, t.prefix...), WorkerArgs(msg)...)
	cmd := exec.Command(t.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker for job %d: %w", msg.JobID, err)
	}
	log := t.logger.With().Int64("job_id", msg.JobID).Int("pid", cmd.Process.Pid).Logger()
	log.Info().Msg("worker started")

	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Warn().Err(err).Msg("worker exited with error")
		} else {
			log.Debug().Msg("worker exited")
		}
		if t.done != nil {
			t.done(msg.JobID, err)
		}
	}()
	return nil
}

var _ Trigger = (*ExecTrigger)(nil)
