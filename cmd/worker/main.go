package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/karma-pos/karma/internal/app"
	"github.com/karma-pos/karma/internal/cart"
	"github.com/karma-pos/karma/internal/inventory"
	"github.com/karma-pos/karma/internal/payments"
	"github.com/karma-pos/karma/internal/platform/db"
	"github.com/karma-pos/karma/internal/products"
	"github.com/karma-pos/karma/internal/sales"
	"github.com/karma-pos/karma/jobs"
)

func main() {
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	inventoryService := inventory.NewService(inventory.NewRepository(pool), logger)
	cartService := cart.NewService(cart.NewRepository(pool), noCatalog{}, logger)
	paymentsService := payments.NewService(payments.NewRepository(pool), logger)
	salesService := sales.NewService(sales.NewRepository(pool), inventoryService, cartService, paymentsService, logger)

	scanner := jobs.NewLowStockScanner(inventoryService, redisClient, logger)
	warmer := jobs.NewDailyReportWarmer(salesService, redisClient, logger)

	scanTask, err := jobs.NewLowStockScanTask(int64(cfg.LowStockThreshold), time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	reportTask, err := jobs.NewDailySalesReportTask("")
	if err != nil {
		logger.Error("build daily report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: scanner.Handle},
			{Type: jobs.TaskDailySalesReport, Handler: warmer.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: scanTask},
			{Spec: "10 0 * * *", Task: reportTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("karma worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// noCatalog satisfies the cart catalog port; worker-side jobs never add cart
// lines, so lookups should not happen.
type noCatalog struct{}

func (noCatalog) Get(context.Context, int64) (products.Product, error) {
	return products.Product{}, products.ErrProductNotFound
}
