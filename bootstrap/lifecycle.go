package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-scheduler/config"
	"content-scheduler/domain"
	"content-scheduler/orchestrator"
	logger "content-scheduler/utils/logger"
	"content-scheduler/utils/otel"

	"github.com/joho/godotenv"
)

// Run is the main application entry point. It initializes all dependencies,
// starts the HTTP server and background jobs, then waits for a shutdown
// signal.
func Run(ctx context.Context) error {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("Failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if otelShutdown != nil {
			if err := otelShutdown(shutdownCtx); err != nil {
				fmt.Printf("Failed to shutdown OpenTelemetry: %v\n", err)
			}
		}
	}()

	log := logger.New(logger.LoadConfigFromEnv(), otelCfg.Enabled)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Info("starting content scheduler",
		"port", cfg.Server.Port,
		"generator_host", cfg.Generator.Host,
		"otel_enabled", otelCfg.Enabled)

	deps, cleanup, err := BuildDependencies(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer cleanup()

	// Do not start draining the queue while the generator is still booting.
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Generator.Timeout)
	if err := deps.HealthChecker.WaitForGenerator(waitCtx, 10*time.Second); err != nil {
		log.Warn("generator not reachable at startup, queue worker will retry", "error", err)
	}
	cancel()

	jobs := startJobs(ctx, deps, log)
	defer jobs.StopAll()

	httpServer := NewHTTPServer(deps, otelCfg.Enabled, otelCfg.ServiceName)
	StartHTTPServer(httpServer, cfg.Server.Port, log)

	log.Info("content scheduler started")
	waitForShutdown(ctx, httpServer, cfg, log)

	return nil
}

// startJobs wires the periodic background work: queue draining, publish
// sweeps, and housekeeping.
func startJobs(ctx context.Context, deps *Dependencies, log *slog.Logger) *orchestrator.JobGroup {
	cfg := deps.Config
	group := orchestrator.NewJobGroup(ctx, log)

	group.Add(orchestrator.NewJobRunner(orchestrator.JobConfig{
		Name:            "queue-worker",
		Interval:        cfg.Queue.WorkerInterval,
		InitialBackoff:  cfg.Queue.WorkerInterval,
		MaxBackoff:      cfg.Queue.BackoffCap,
		BackoffOnErrors: []error{domain.ErrGeneratorOverloaded},
		RunImmediately:  true,
	}, deps.QueueWorker.ProcessQueue, log))

	group.Add(orchestrator.NewJobRunner(orchestrator.JobConfig{
		Name:           "publish-sweeper",
		Interval:       cfg.Publish.SweepInterval,
		RunImmediately: true,
		RunTimeout:     cfg.Publish.SweepInterval,
	}, func(ctx context.Context) error {
		_, err := deps.PublishScheduler.Sweep(ctx)
		return err
	}, log))

	group.Add(orchestrator.NewJobRunner(orchestrator.JobConfig{
		Name:       "housekeeping",
		Interval:   cfg.Queue.PruneInterval,
		RunTimeout: 5 * time.Minute,
	}, func(ctx context.Context) error {
		if err := deps.QueueWorker.PruneOrphans(ctx); err != nil {
			return err
		}
		return deps.DLQ.Cleanup(ctx)
	}, log))

	return group
}

func waitForShutdown(ctx context.Context, httpServer interface{ Shutdown(context.Context) error }, cfg *config.Config, log *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down content scheduler")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down HTTP server", "error", err)
	}

	log.Info("content scheduler stopped")
}
