package sales

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/karma-pos/karma/internal/inventory"
	"github.com/karma-pos/karma/internal/payments"
	"github.com/karma-pos/karma/internal/shared"
)

// ReasonSale labels inventory history rows written by sale decrements.
const ReasonSale = "Venta registrada"

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	CreateSale(ctx context.Context, sale Sale, items []ItemInput) (Sale, []Detail, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
	Get(ctx context.Context, id int64) (Sale, error)
	ListDetails(ctx context.Context, ventaID int64) ([]Detail, error)
	ProductTotals(ctx context.Context, from, to time.Time, productID int64) ([]ProductSales, error)
}

// LedgerPort routes stock decrements through the inventory ledger so sale
// writes get the same locking and history treatment as manual adjustments.
type LedgerPort interface {
	ApplyAdjustments(ctx context.Context, requests []inventory.AdjustmentRequest) (inventory.BatchResult, error)
}

// CartPort empties the cart after checkout.
type CartPort interface {
	Clear(ctx context.Context) error
}

// PaymentsPort folds payment rows into sale views and reports.
type PaymentsPort interface {
	ListBySale(ctx context.Context, ventaID int64) ([]payments.Payment, error)
	MethodTotals(ctx context.Context, from, to time.Time) ([]payments.MethodTotal, error)
}

// Service implements sale registration and reporting.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerPort
	cart     CartPort
	payments PaymentsPort
	logger   *slog.Logger
}

// NewService constructs a sales service.
func NewService(repo RepositoryPort, ledger LedgerPort, cart CartPort, pay PaymentsPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, cart: cart, payments: pay, logger: logger}
}

// Create registers a sale with its detail rows. When the input asks for it,
// stock is decremented through the inventory ledger and the cart emptied;
// both are follow-ups to the committed sale, never part of its transaction.
func (s *Service) Create(ctx context.Context, input CreateSaleInput) (CreateSaleResult, error) {
	if input.Items == nil {
		return CreateSaleResult{}, shared.NewError(shared.KindValidation, "Se requiere una lista de items para la venta")
	}
	for _, item := range input.Items {
		if item.Cantidad <= 0 {
			return CreateSaleResult{}, shared.NewError(shared.KindValidation, "La cantidad de cada item debe ser mayor que cero")
		}
	}

	sale := Sale{UsuarioID: input.UsuarioID, Fecha: time.Now().UTC()}
	if input.Fecha != nil {
		sale.Fecha = *input.Fecha
	}
	if input.Total != nil {
		sale.Total = *input.Total
	} else {
		for _, item := range input.Items {
			sale.Total += item.Precio * float64(item.Cantidad)
		}
	}

	stored, details, err := s.repo.CreateSale(ctx, sale, input.Items)
	if err != nil {
		return CreateSaleResult{}, shared.WrapError(shared.KindStorage, "No se pudo registrar la venta", err)
	}
	result := CreateSaleResult{Venta: stored, Detalles: details}

	if input.ActualizarInventario {
		result.InventarioFallidos = s.decrementStock(ctx, stored.ID, input.Items)
	}
	if input.VaciarCarrito {
		if err := s.cart.Clear(ctx); err != nil {
			s.logger.Warn("emptying cart after sale failed",
				slog.Int64("venta_id", stored.ID), slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) decrementStock(ctx context.Context, ventaID int64, items []ItemInput) int {
	requests := make([]inventory.AdjustmentRequest, 0, len(items))
	for _, item := range items {
		if item.ProductoID == nil {
			continue
		}
		cantidad := -item.Cantidad
		requests = append(requests, inventory.AdjustmentRequest{
			ProductID: item.ProductoID,
			Cantidad:  &cantidad,
			Usuario:   shared.ActorName(ctx),
			Motivo:    ReasonSale,
		})
	}
	if len(requests) == 0 {
		return 0
	}
	batch, err := s.ledger.ApplyAdjustments(ctx, requests)
	if err != nil {
		s.logger.Warn("inventory decrement after sale aborted",
			slog.Int64("venta_id", ventaID), slog.Any("error", err))
		return len(requests)
	}
	for _, outcome := range batch.Outcomes {
		if !outcome.OK {
			s.logger.Warn("inventory decrement rejected",
				slog.Int64("venta_id", ventaID),
				slog.Int64("producto_id", outcome.ProductID),
				slog.Any("error", outcome.Err))
		}
	}
	return batch.Fallidos
}

// List returns sales inside the window, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	ventas, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudieron obtener las ventas", err)
	}
	return ventas, nil
}

// Get assembles the full view of one sale: detail rows, payments, the paid
// total and the pending balance.
func (s *Service) Get(ctx context.Context, id int64) (SaleView, error) {
	venta, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSaleNotFound) {
			return SaleView{}, shared.NewError(shared.KindNotFound, "Venta no encontrada")
		}
		return SaleView{}, shared.WrapError(shared.KindStorage, "No se pudo obtener la venta", err)
	}
	detalles, err := s.repo.ListDetails(ctx, id)
	if err != nil {
		return SaleView{}, shared.WrapError(shared.KindStorage, "No se pudieron obtener los detalles", err)
	}
	pagos, err := s.payments.ListBySale(ctx, id)
	if err != nil {
		return SaleView{}, err
	}
	view := SaleView{Venta: venta, Detalles: detalles, Pagos: pagos}
	for _, p := range pagos {
		view.TotalPagado += p.Monto
	}
	view.SaldoPendiente = venta.Total - view.TotalPagado
	return view, nil
}

// DailyReport summarizes the sales of one calendar day with per-method
// payment totals.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (DailyReport, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24*time.Hour - time.Nanosecond)

	ventas, err := s.repo.List(ctx, ListFilter{From: from, To: to, Limit: ListAll})
	if err != nil {
		return DailyReport{}, shared.WrapError(shared.KindStorage, "No se pudo generar el reporte diario", err)
	}
	report := DailyReport{
		Fecha:       from.Format("2006-01-02"),
		TotalVentas: len(ventas),
		Ventas:      ventas,
	}
	for _, v := range ventas {
		report.MontoTotal += v.Total
	}
	totals, err := s.payments.MethodTotals(ctx, from, to)
	if err != nil {
		return DailyReport{}, err
	}
	report.MetodosPago = totals
	return report, nil
}

// ProductReport aggregates quantities and revenue per product over a window.
func (s *Service) ProductReport(ctx context.Context, from, to time.Time, productID int64) (ProductReport, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	totals, err := s.repo.ProductTotals(ctx, from, to, productID)
	if err != nil {
		return ProductReport{}, shared.WrapError(shared.KindStorage, "No se pudo generar el reporte por producto", err)
	}
	report := ProductReport{
		FechaHasta:        to.Format(time.RFC3339),
		ProductosVendidos: totals,
	}
	if !from.IsZero() {
		report.FechaDesde = from.Format(time.RFC3339)
	}
	return report, nil
}
