package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"genvid/internal/adapter/repo"
	"genvid/internal/artifact"
	"genvid/internal/db"
	"genvid/internal/dispatch"
	"genvid/internal/events"
	"genvid/internal/http/handlers"
	httpapi "genvid/internal/http/httpapi"
	"genvid/internal/infra"
	"genvid/internal/metrics"
	"genvid/internal/publish"
	"genvid/internal/queue"
	"genvid/internal/quota"
	"genvid/internal/storage"
	"genvid/internal/trigger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg, 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	videos := repo.NewVideoRepository(runner)
	collector := metrics.NewCollector()

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	var publisher queue.Publisher
	switch cfg.QueueDriver {
	case "memory":
		// Single-process mode: this process also launches workers.
		mem := queue.NewMemory(0, logger.With().Str("component", "queue").Logger())
		publisher = mem
		t, err := trigger.NewFromConfig(cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure trigger")
		}
		launcher := trigger.NewLauncher(jobs, t, collector, logger.With().Str("component", "launcher").Logger())
		go func() {
			if err := launcher.Run(ctx, mem); err != nil {
				logger.Error().Err(err).Msg("launcher stopped")
			}
		}()
		reconciler := dispatch.NewReconciler(jobs, publisher, dispatch.ReconcilerConfig{
			RedispatchAfter:   cfg.RedispatchAfter,
			StuckRunningAfter: cfg.StuckRunningAfter,
			MaxAttempts:       cfg.MaxDispatchAttempts,
		}, collector, logger.With().Str("component", "reconciler").Logger())
		go func() { _ = reconciler.Run(ctx, cfg.ReconcileInterval) }()
	default:
		publisher = queue.NewNotifyPublisher(runner, cfg.QueueChannel)
	}

	guard := quota.NewGuard(jobs, cfg.QuotaDailyLimit, cfg.QuotaLocation())
	deps := handlers.Deps{
		Jobs:         jobs,
		Dispatch:     dispatch.NewService(jobs, guard, publisher, collector, logger, cfg.PromptMaxRunes),
		Quota:        guard,
		Publisher:    publish.NewService(jobs, videos, collector, logger),
		Notifier:     events.NewNotifier(jobs, cfg.StreamInterval, collector),
		Resolver:     artifact.NewResolver(store, store.DefaultBucket(), cfg.SignedURLTTL),
		DB:           runner,
		Logger:       logger,
		SignedURLTTL: cfg.SignedURLTTL,
	}
	if fs, ok := store.(*storage.FileStore); ok {
		deps.Static = fs
	}

	router := httpapi.NewRouter(handlers.NewApp(deps), httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		Metrics:         collector.Handler(),
		Logger:          logger,
	})
	server := infra.NewHTTPServer(cfg, ":"+cfg.Port, router)

	go func() {
		logger.Info().Str("queue", cfg.QueueDriver).Str("storage", cfg.StorageDriver).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
