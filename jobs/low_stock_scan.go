package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/karma-pos/karma/internal/inventory"
)

// lowStockCacheKey holds the latest scan result for dashboards.
const lowStockCacheKey = "karma:reports:low_stock"

// lowStockCacheTTL keeps stale scans from lingering after the worker stops.
const lowStockCacheTTL = 26 * time.Hour

// LowStockScanner runs the periodic low-stock scan against the ledger.
type LowStockScanner struct {
	inventory *inventory.Service
	cache     *redis.Client
	logger    *slog.Logger
}

// NewLowStockScanner constructs the scan handler.
func NewLowStockScanner(inv *inventory.Service, cache *redis.Client, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{inventory: inv, cache: cache, logger: logger}
}

type lowStockSnapshot struct {
	Umbral            int64               `json:"umbral"`
	StockBajo         []inventory.Product `json:"stock_bajo"`
	ProductosSinStock []inventory.Product `json:"productos_sin_stock"`
	GeneradoEn        time.Time           `json:"generado_en"`
}

// Handle processes TaskLowStockScan tasks: it pulls the inventory report and
// caches the low-stock slice in Redis for cheap dashboard reads.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	umbral := payload.Umbral
	if umbral <= 0 {
		umbral = inventory.DefaultLowStockThreshold
	}

	report, err := s.inventory.Report(ctx, umbral)
	if err != nil {
		return err
	}
	s.logger.Info("low stock scan completed",
		slog.Int64("umbral", umbral),
		slog.Int("stock_bajo", len(report.StockBajo)),
		slog.Int("sin_stock", len(report.ProductosSinStock)))

	snapshot, err := json.Marshal(lowStockSnapshot{
		Umbral:            umbral,
		StockBajo:         report.StockBajo,
		ProductosSinStock: report.ProductosSinStock,
		GeneradoEn:        time.Now().UTC(),
	})
	if err != nil {
		return asynq.SkipRetry
	}
	if err := s.cache.Set(ctx, lowStockCacheKey, snapshot, lowStockCacheTTL).Err(); err != nil {
		// the scan itself succeeded; a cold cache only costs the next read
		s.logger.Warn("caching low stock snapshot failed", slog.Any("error", err))
	}
	return nil
}
