package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"genvid/internal/adapter/repo"
	"genvid/internal/infra"
	"genvid/internal/infra/credentials"
	"genvid/internal/metrics"
	videoprovider "genvid/internal/providers/video"
	"genvid/internal/storage"
	"genvid/internal/worker"
)

var (
	jobID  int64
	prompt string
)

var rootCmd = &cobra.Command{
	Use:   "genvid-worker --job-id <id> --prompt <text>",
	Short: "Run one generation job to completion",
	Long: `Claims the given QUEUED job, generates its preview video, uploads the
artifacts and records SUCCEEDED or FAILED. A job that is missing or already
claimed is skipped. The exit status is non-zero only when the arguments are
invalid or the job's outcome could not be recorded.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWorker,
}

func init() {
	rootCmd.Flags().Int64Var(&jobID, "job-id", 0, "Generation job id")
	rootCmd.Flags().StringVar(&prompt, "prompt", "", "Prompt the job was dispatched with")
	_ = rootCmd.MarkFlagRequired("job-id")
	_ = rootCmd.MarkFlagRequired("prompt")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if jobID <= 0 {
		return errors.New("--job-id must be positive")
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, 2)
	if err != nil {
		return err
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)

	gen, store, err := buildBackends(ctx, cfg, runner, logger)
	if err != nil {
		recorded, recErr := worker.RecordSetupFailure(ctx, jobs, jobID, err, logger)
		if recErr != nil {
			logger.Error().Err(recErr).Int64("job_id", jobID).Msg("job outcome not recorded")
			return errors.Join(err, recErr)
		}
		if recorded {
			return nil
		}
		return err
	}

	w := worker.New(jobs, gen, store, worker.Options{
		DurationSeconds:   cfg.VideoDurationSeconds,
		AspectRatio:       cfg.VideoAspectRatio,
		Resolution:        cfg.VideoResolution,
		GenerationTimeout: cfg.GenerationTimeout,
	}, metrics.NewCollector(), logger)

	outcome, err := w.Execute(ctx, jobID, prompt)
	if err != nil {
		logger.Error().Err(err).Int64("job_id", jobID).Msg("job outcome not recorded")
		return err
	}
	logger.Info().Int64("job_id", jobID).Str("outcome", string(outcome)).Msg("worker done")
	return nil
}

// buildBackends resolves the generator key and opens the blob store.
func buildBackends(ctx context.Context, cfg *infra.Config, runner infra.SQLExecutor, logger zerolog.Logger) (videoprovider.Generator, storage.Store, error) {
	if cfg.GeneratorProvider == "veo" || cfg.GeneratorProvider == "gemini" {
		key, err := credentials.NewStore(runner).Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		cfg.GeminiAPIKey = key
	}
	gen, err := videoprovider.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return gen, store, nil
}
