package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/karma-pos/karma/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID int64) (Product, error)
	ListHistory(ctx context.Context, filter HistoryFilter) ([]AdjustmentRecord, error)
	InsertHistory(ctx context.Context, rec AdjustmentRecord) error
}

// Service owns stock-quantity truth and its audit trail. Every mutation runs
// its read-modify-write inside one transaction holding a row lock on the
// product, so concurrent writers against the same product serialise instead
// of overwriting each other.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// SetStock writes an absolute stock quantity and appends a history record.
// The history write is best-effort: its failure is logged, surfaced through
// AuditDegraded and never fails the mutation.
func (s *Service) SetStock(ctx context.Context, input SetStockInput) (SetStockResult, error) {
	if input.Stock == nil {
		return SetStockResult{}, shared.NewError(shared.KindValidation, "Falta el campo stock")
	}
	if *input.Stock < 0 {
		return SetStockResult{}, shared.NewError(shared.KindValidation, "El stock no puede ser negativo")
	}

	var before int64
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		before = product.Stock
		if err := tx.UpdateStock(ctx, product.ID, *input.Stock); err != nil {
			return err
		}
		product.Stock = *input.Stock
		updated = product
		return nil
	})
	if err != nil {
		return SetStockResult{}, s.mapStoreError(err)
	}

	result := SetStockResult{Product: updated, Cambio: *input.Stock - before}
	result.AuditDegraded = !s.appendHistory(ctx, AdjustmentRecord{
		ProductID:     updated.ID,
		StockAnterior: before,
		StockNuevo:    *input.Stock,
		Diferencia:    result.Cambio,
		Usuario:       actorOrDefault(input.Usuario),
		Motivo:        reasonOrDefault(input.Motivo, ReasonManualUpdate),
	})
	return result, nil
}

// ApplyAdjustments posts a batch of signed deltas. Requests are processed
// sequentially and independently: one failure never aborts or rolls back the
// others, and outcome i always corresponds to request i.
func (s *Service) ApplyAdjustments(ctx context.Context, requests []AdjustmentRequest) (BatchResult, error) {
	result := BatchResult{Outcomes: make([]AdjustmentOutcome, 0, len(requests))}
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome := s.applyOne(ctx, req)
		if outcome.OK {
			result.Exitosos++
		} else {
			result.Fallidos++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func (s *Service) applyOne(ctx context.Context, req AdjustmentRequest) AdjustmentOutcome {
	if req.ProductID == nil || req.Cantidad == nil {
		outcome := AdjustmentOutcome{Err: shared.NewError(shared.KindValidation, "Faltan campos requeridos")}
		if req.ProductID != nil {
			outcome.ProductID = *req.ProductID
		}
		return outcome
	}

	outcome := AdjustmentOutcome{ProductID: *req.ProductID, Diferencia: *req.Cantidad}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, *req.ProductID)
		if err != nil {
			return err
		}
		candidate := product.Stock + *req.Cantidad
		if candidate < 0 {
			return shared.NewError(shared.KindInsufficientStock, "El stock resultante sería negativo")
		}
		if err := tx.UpdateStock(ctx, product.ID, candidate); err != nil {
			return err
		}
		outcome.Nombre = product.Nombre
		outcome.StockAnterior = product.Stock
		outcome.StockNuevo = candidate
		return nil
	})
	if err != nil {
		outcome.Err = s.mapStoreError(err)
		return outcome
	}

	outcome.OK = true
	outcome.AuditDegraded = !s.appendHistory(ctx, AdjustmentRecord{
		ProductID:     outcome.ProductID,
		StockAnterior: outcome.StockAnterior,
		StockNuevo:    outcome.StockNuevo,
		Diferencia:    outcome.Diferencia,
		Usuario:       actorOrDefault(req.Usuario),
		Motivo:        reasonOrDefault(req.Motivo, ReasonAdjustment),
	})
	return outcome
}

// History lists adjustment records matching all supplied filters, newest
// first, truncated to the limit.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]AdjustmentRecord, error) {
	records, err := s.repo.ListHistory(ctx, filter)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudo consultar el historial", err)
	}
	return records, nil
}

// Report returns the catalog with its low-stock and out-of-stock subsets.
func (s *Service) Report(ctx context.Context, threshold int64) (Report, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return Report{}, shared.WrapError(shared.KindStorage, "No se pudo consultar el inventario", err)
	}
	report := Report{Productos: products, StockBajo: []Product{}, ProductosSinStock: []Product{}}
	for _, p := range products {
		if p.Stock < threshold {
			report.StockBajo = append(report.StockBajo, p)
		}
		if p.Stock <= 0 {
			report.ProductosSinStock = append(report.ProductosSinStock, p)
		}
	}
	return report, nil
}

// GetStock loads one product with its most recent history.
func (s *Service) GetStock(ctx context.Context, productID int64) (StockDetail, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return StockDetail{}, s.mapStoreError(err)
	}
	history, err := s.repo.ListHistory(ctx, HistoryFilter{ProductID: productID, Limit: RecentHistoryLimit})
	if err != nil {
		// The original deployment may lack the history table; the product
		// view stays usable without it.
		s.logger.Warn("history lookup failed", slog.Int64("producto_id", productID), slog.Any("error", err))
		history = []AdjustmentRecord{}
	}
	return StockDetail{Product: product, Historial: history}, nil
}

// appendHistory reports whether the record was persisted.
func (s *Service) appendHistory(ctx context.Context, rec AdjustmentRecord) bool {
	rec.Fecha = time.Now().UTC()
	if err := s.repo.InsertHistory(ctx, rec); err != nil {
		s.logger.Warn("audit write degraded",
			slog.Int64("producto_id", rec.ProductID),
			slog.Int64("diferencia", rec.Diferencia),
			slog.Any("error", err))
		return false
	}
	return true
}

func (s *Service) mapStoreError(err error) error {
	if errors.Is(err, ErrProductNotFound) {
		return shared.NewError(shared.KindNotFound, "Producto no encontrado")
	}
	var tagged *shared.Error
	if errors.As(err, &tagged) {
		return err
	}
	return shared.WrapError(shared.KindStorage, "Error de acceso a datos", err)
}

func actorOrDefault(usuario string) string {
	if usuario == "" {
		return DefaultActor
	}
	return usuario
}

func reasonOrDefault(motivo, fallback string) string {
	if motivo == "" {
		return fallback
	}
	return motivo
}
