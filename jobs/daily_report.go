package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/karma-pos/karma/internal/sales"
)

const dailyReportCachePrefix = "karma:reports:daily:"

const dailyReportCacheTTL = 7 * 24 * time.Hour

// DailyReportWarmer precomputes the daily sales report off the request path.
type DailyReportWarmer struct {
	sales  *sales.Service
	cache  *redis.Client
	logger *slog.Logger
}

// NewDailyReportWarmer constructs the warmup handler.
func NewDailyReportWarmer(svc *sales.Service, cache *redis.Client, logger *slog.Logger) *DailyReportWarmer {
	return &DailyReportWarmer{sales: svc, cache: cache, logger: logger}
}

// Handle processes TaskDailySalesReport tasks. An empty fecha targets the
// previous calendar day, which is what the nightly cron wants.
func (w *DailyReportWarmer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DailySalesReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	day := time.Now().UTC().AddDate(0, 0, -1)
	if payload.Fecha != "" {
		parsed, err := time.Parse("2006-01-02", payload.Fecha)
		if err != nil {
			return asynq.SkipRetry
		}
		day = parsed
	}

	report, err := w.sales.DailyReport(ctx, day)
	if err != nil {
		return err
	}
	w.logger.Info("daily sales report warmed",
		slog.String("fecha", report.Fecha),
		slog.Int("total_ventas", report.TotalVentas),
		slog.Float64("monto_total", report.MontoTotal))

	body, err := json.Marshal(report)
	if err != nil {
		return asynq.SkipRetry
	}
	if err := w.cache.Set(ctx, dailyReportCachePrefix+report.Fecha, body, dailyReportCacheTTL).Err(); err != nil {
		w.logger.Warn("caching daily report failed", slog.Any("error", err))
	}
	return nil
}
