package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mandala-erp/mandala-erp/internal/app"
	jobmetrics "github.com/mandala-erp/mandala-erp/internal/jobs"
	"github.com/mandala-erp/mandala-erp/internal/platform/db"
	"github.com/mandala-erp/mandala-erp/internal/submission"
	"github.com/mandala-erp/mandala-erp/jobs"
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

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	receiptRepo := submission.NewRepository(pool)
	dispatcher := submission.NewDispatcher(logger, receiptRepo, jobClient, cfg.DispatchUpstreamURL, cfg.DispatchSweepAge, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeReceiptDispatch, Handler: dispatcher.HandleDispatch},
			{Type: jobs.TaskTypeReceiptSweep, Handler: dispatcher.HandleSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DispatchSweepSpec, Task: jobs.NewReceiptSweepTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
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
