package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"genvid/internal/adapter/repo"
	"genvid/internal/dispatch"
	"genvid/internal/infra"
	"genvid/internal/metrics"
	"genvid/internal/queue"
	"genvid/internal/trigger"
)

var (
	sweepOnly   bool
	noReconcile bool
)

var rootCmd = &cobra.Command{
	Use:   "genvid-launcher",
	Short: "Consume dispatch messages and start one worker per job",
	Long: `Listens on the Postgres dispatch channel and triggers a worker for every
QUEUED job it is told about. A reconciler sweeps jobs that stayed QUEUED
too long and re-publishes them, failing jobs that exhausted their attempts.

Examples:
  genvid-launcher
  genvid-launcher --sweep-once`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLauncher,
}

func init() {
	rootCmd.Flags().BoolVar(&sweepOnly, "sweep-once", false, "Run one reconcile sweep and exit")
	rootCmd.Flags().BoolVar(&noReconcile, "no-reconcile", false, "Do not run the periodic reconciler")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runLauncher(cmd *cobra.Command, _ []string) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv, "launcher")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, 4)
	if err != nil {
		logger.Error().Err(err).Msg("db connection failed")
		return err
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	collector := metrics.NewCollector()
	publisher := queue.NewNotifyPublisher(runner, cfg.QueueChannel)

	reconciler := dispatch.NewReconciler(jobs, publisher, dispatch.ReconcilerConfig{
		RedispatchAfter:   cfg.RedispatchAfter,
		StuckRunningAfter: cfg.StuckRunningAfter,
		MaxAttempts:       cfg.MaxDispatchAttempts,
	}, collector, logger)

	if sweepOnly {
		res, err := reconciler.Sweep(ctx)
		if err != nil {
			return err
		}
		logger.Info().
			Int("redispatched", res.Redispatched).
			Int("abandoned", res.Abandoned).
			Int("stuck_running", res.StuckRunning).
			Msg("sweep done")
		return nil
	}

	t, err := trigger.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	launcher := trigger.NewLauncher(jobs, t, collector, logger)
	listener := queue.NewPGListener(cfg.DatabaseURL, cfg.QueueChannel, logger)
	metricsServer := infra.NewHTTPServer(cfg, cfg.MetricsAddr, collector.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return launcher.Run(gctx, listener) })
	if !noReconcile {
		g.Go(func() error { return reconciler.Run(gctx, cfg.ReconcileInterval) })
	}
	g.Go(metricsServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	logger.Info().Str("channel", cfg.QueueChannel).Str("trigger", cfg.TriggerDriver).Msg("launcher started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("launcher stopped with error")
		return err
	}
	logger.Info().Msg("launcher stopped")
	return nil
}
