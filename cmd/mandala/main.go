package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mandala-erp/mandala-erp/internal/app"
	"github.com/mandala-erp/mandala-erp/internal/collection"
	"github.com/mandala-erp/mandala-erp/internal/invoices"
	"github.com/mandala-erp/mandala-erp/internal/masterdata"
	"github.com/mandala-erp/mandala-erp/internal/observability"
	"github.com/mandala-erp/mandala-erp/internal/platform/cache"
	"github.com/mandala-erp/mandala-erp/internal/platform/db"
	"github.com/mandala-erp/mandala-erp/internal/shared"
	"github.com/mandala-erp/mandala-erp/internal/submission"
	"github.com/mandala-erp/mandala-erp/jobs"
)

// invoiceSourceAdapter bridges the invoices service (int64 IDs) to the
// collection wizard (string IDs).
type invoiceSourceAdapter struct {
	service *invoices.Service
}

func (a invoiceSourceAdapter) ListOutstanding(ctx context.Context, customerID string) ([]collection.OutstandingInvoice, error) {
	id, err := strconv.ParseInt(customerID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid customer id %q: %w", customerID, err)
	}
	rows, err := a.service.ListOutstanding(ctx, id, time.Now())
	if err != nil {
		return nil, err
	}
	out := make([]collection.OutstandingInvoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, collection.OutstandingInvoice{
			InvoiceID:        strconv.FormatInt(row.ID, 10),
			InvoiceNumber:    row.Number,
			InvoiceDate:      row.IssuedAt,
			DueDate:          row.DueAt,
			TotalInvoice:     row.Total,
			AlreadyPaid:      row.Paid,
			RemainingBalance: row.Remaining,
			IsOverdue:        row.IsOverdue,
			OverdueDays:      row.OverdueDays,
		})
	}
	return out, nil
}

type customerDirectoryAdapter struct {
	service *masterdata.Service
}

func (a customerDirectoryAdapter) LookupCustomer(ctx context.Context, customerID string) (collection.Customer, error) {
	id, err := strconv.ParseInt(customerID, 10, 64)
	if err != nil {
		return collection.Customer{}, fmt.Errorf("invalid customer id %q: %w", customerID, err)
	}
	customer, err := a.service.GetCustomer(ctx, id)
	if err != nil {
		return collection.Customer{}, err
	}
	return collection.Customer{
		ID:   strconv.FormatInt(customer.ID, 10),
		Name: customer.Name,
	}, nil
}

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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Wizard sessions live in Redis, so a dead Redis is fatal here.
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

	metrics := observability.NewMetrics()

	invoiceRepo := invoices.NewRepository(dbpool)
	invoiceService := invoices.NewService(invoiceRepo)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	masterdataRepo := masterdata.NewRepository(dbpool)
	masterdataService := masterdata.NewService(masterdataRepo)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	submissionRepo := submission.NewRepository(dbpool)
	submissionService := submission.NewService(logger, submissionRepo, jobClient)

	sessionStore := collection.NewSessionStore(redisClient, cfg.CollectionSessionTTL)
	submitGuard := shared.NewIdempotencyStore(dbpool)
	collectionService := collection.NewService(logger, sessionStore,
		invoiceSourceAdapter{service: invoiceService},
		customerDirectoryAdapter{service: masterdataService},
		submissionService,
		submitGuard)
	collectionHandler := collection.NewHandler(logger, collectionService, metrics)

	jobHandler := jobs.NewHandler(asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr}), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		CollectionHandler: collectionHandler,
		InvoicesHandler:   invoiceHandler,
		MasterDataHandler: masterdataHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
