package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/app"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/banking"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/inference"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/accounts"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/daybook"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/journals"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/posting"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/observability"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/pipeline"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/cache"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/db"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/reports"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/customers"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/invoices"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/quotations"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/storage"
	"github.com/SarathManas/Finbuddy-Main-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate database", slog.Any("error", err))
		os.Exit(1)
	}

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

	metrics := observability.NewMetrics()

	docRepo := documents.NewRepository(pool)
	queueRepo := pipeline.NewRepository(pool)
	docService := documents.NewService(docRepo, store, queueRepo, jobsClient, cfg.UploadMaxBytes)
	docHandler := documents.NewHandler(logger, docService)
	pipelineHandler := pipeline.NewHandler(logger, queueRepo, jobsClient)

	reportsCache := reports.NewCache(redisClient, time.Minute)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, logger, reportsCache)
	journalsHandler := journals.NewHandler(logger, journalsService)

	daybookRepo := daybook.NewRepository(pool)
	reportsService := reports.NewService(accountsRepo, daybookRepo, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo, logger)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	quotationsRepo := quotations.NewRepository(pool)
	quotationsService := quotations.NewService(quotationsRepo, invoicesService, logger)
	quotationsHandler := quotations.NewHandler(logger, quotationsService)

	postingEngine := posting.NewEngine(docRepo, customersService, invoicesService, journalsService, logger)
	postingHandler := posting.NewHandler(logger, postingEngine)

	bankingRepo := banking.NewRepository(pool)
	bankingService := banking.NewService(bankingRepo, aiClient, journalsService, logger)
	bankingHandler := banking.NewHandler(logger, bankingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		DocumentsHandler:  docHandler,
		PipelineHandler:   pipelineHandler,
		AccountsHandler:   accountsHandler,
		JournalsHandler:   journalsHandler,
		PostingHandler:    postingHandler,
		CustomersHandler:  customersHandler,
		InvoicesHandler:   invoicesHandler,
		QuotationsHandler: quotationsHandler,
		BankingHandler:    bankingHandler,
		ReportsHandler:    reportsHandler,
		FilesHandler:      storage.NewHandler(store, logger),
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
