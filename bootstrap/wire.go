package bootstrap

import (
	"context"
	"log/slog"

	"content-scheduler/config"
	"content-scheduler/dlq"
	"content-scheduler/events"
	"content-scheduler/handler"
	"content-scheduler/repository"
	"content-scheduler/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all application dependencies.
type Dependencies struct {
	Config *config.Config
	DBPool *pgxpool.Pool
	Logger *slog.Logger

	Events events.Publisher
	DLQ    *dlq.FileDLQ

	QueueWorker      service.QueueWorkerService
	PublishScheduler service.PublishSchedulerService
	HealthChecker    *service.HealthChecker

	ArticleHandler *handler.ArticleHandler
	QueueHandler   *handler.QueueHandler
	PublishHandler *handler.PublishHandler
	HealthHandler  *handler.HealthHandler
}

// BuildDependencies constructs all application dependencies.
// Returns a cleanup function that should be deferred.
func BuildDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Dependencies, func(), error) {
	dbPool, err := repository.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}

	articleRepo := repository.NewArticleRepository(dbPool, log)
	queueRepo := repository.NewQueueRepository(dbPool, log)
	generatorRepo := repository.NewGeneratorRepository(cfg.Generator, log)

	publisher := events.NewRedisPublisher(cfg.Redis, log)
	archive := dlq.NewFileDLQ(cfg.DLQ, log)

	pipeline := service.NewPipeline(articleRepo, generatorRepo, publisher,
		cfg.Generator, cfg.Pipeline.PhaseTimeout, log)
	queueWorker := service.NewQueueWorker(queueRepo, articleRepo, pipeline, archive, cfg.Queue, log)
	publishScheduler := service.NewPublishScheduler(articleRepo, publisher, cfg.Publish, log)
	scheduler := service.NewScheduler(articleRepo, queueRepo, publisher, cfg.Queue, log)
	statusReporter := service.NewStatusReporter(articleRepo, queueRepo, log)
	healthChecker := service.NewHealthChecker(dbPool, generatorRepo, log)

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Error("failed to close event publisher", "error", err)
		}
		dbPool.Close()
	}

	return &Dependencies{
		Config:           cfg,
		DBPool:           dbPool,
		Logger:           log,
		Events:           publisher,
		DLQ:              archive,
		QueueWorker:      queueWorker,
		PublishScheduler: publishScheduler,
		HealthChecker:    healthChecker,
		ArticleHandler:   handler.NewArticleHandler(scheduler, statusReporter, log),
		QueueHandler:     handler.NewQueueHandler(scheduler, log),
		PublishHandler:   handler.NewPublishHandler(publishScheduler, log),
		HealthHandler:    handler.NewHealthHandler(healthChecker, log),
	}, cleanup, nil
}
