package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/app"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/inference"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/observability"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/pipeline"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/cache"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/db"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/reports"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/storage"
	"github.com/SarathManas/Finbuddy-Main-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store, err := storage.New(storage.Config{
		Root:    cfg.StorageDir,
		Secret:  cfg.StorageURLSecret,
		TTL:     cfg.StorageURLTTL,
		BaseURL: cfg.PublicBaseURL + "/files",
	})
	if err != nil {
		logger.Error("init storage", slog.Any("error", err))
		os.Exit(1)
	}

	aiClient, err := inference.NewClient(inference.Config{
		Endpoint: cfg.InferenceAPIURL,
		APIKey:   cfg.InferenceAPIKey,
		Model:    cfg.InferenceModel,
		Timeout:  cfg.InferenceTimeout,
	})
	if err != nil {
		logger.Error("init inference client", slog.Any("error", err))
		os.Exit(1)
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		Documents: documents.NewRepository(pool),
		Queue:     pipeline.NewRepository(pool),
		Processors: []pipeline.Processor{
			pipeline.NewConverter(aiClient, store),
			pipeline.NewExtractor(aiClient),
			pipeline.NewCategorizer(aiClient),
		},
		Dispatcher: jobsClient,
		Metrics:    observability.NewMetrics(),
		Logger:     logger,
	})
	pipelineJobs := jobs.NewPipelineJobs(orchestrator, logger)

	reportsCache := reports.NewCache(redisClient, time.Minute)
	if err := reportsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  pipelineJobs.Handlers(),
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: jobs.NewPipelineSweepTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
