package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/keystone-pm/keystone/internal/accounting/costcenters"
	"github.com/keystone-pm/keystone/internal/accounting/journals"
	"github.com/keystone-pm/keystone/internal/accounting/mappings"
	"github.com/keystone-pm/keystone/internal/app"
	"github.com/keystone-pm/keystone/internal/leasing"
	"github.com/keystone-pm/keystone/internal/maintenance"
	"github.com/keystone-pm/keystone/internal/platform/db"
	"github.com/keystone-pm/keystone/internal/shared"
	"github.com/keystone-pm/keystone/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	runner := db.NewRunner(pool)
	mappingsService := mappings.NewService(mappings.NewRepository(pool))
	resolver := costcenters.NewResolver(costcenters.NewRepository(pool))
	journalsService := journals.NewService(journals.NewRepository(pool), runner)
	sequences := shared.NewSequenceStore(pool)

	leasingService := leasing.NewService(leasing.NewRepository(pool), journalsService,
		resolver, mappingsService, sequences, runner, logger)
	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool),
		journalsService, resolver, mappingsService, runner, logger)

	locks := jobs.NewRunLock(redisClient, 2*time.Hour)
	recognitionJob := jobs.NewRevenueRecognitionJob(leasingService, locks, logger)
	amortizationJob := jobs.NewMaintenanceAmortizationJob(maintenanceService, locks, logger)

	recognitionTask, err := jobs.NewRevenueRecognitionTask(time.Time{})
	if err != nil {
		logger.Error("build recognition task", slog.Any("error", err))
		os.Exit(1)
	}
	amortizationTask, err := jobs.NewMaintenanceAmortizationTask(time.Time{})
	if err != nil {
		logger.Error("build amortization task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRevenueRecognition, Handler: recognitionJob.Handle},
			{Type: jobs.TaskMaintenanceAmortization, Handler: amortizationJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RevenueRecognitionCron, Task: recognitionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.MaintenanceAmortizationCron, Task: amortizationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
