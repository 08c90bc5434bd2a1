package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karma-pos/karma/internal/inventory"
	"github.com/karma-pos/karma/internal/payments"
	"github.com/karma-pos/karma/internal/shared"
)

type memoryRepo struct {
	sales   []Sale
	details []Detail
	nextID  int64
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{nextID: 1} }

func (m *memoryRepo) CreateSale(ctx context.Context, sale Sale, items []ItemInput) (Sale, []Detail, error) {
	sale.ID = m.nextID
	m.nextID++
	m.sales = append(m.sales, sale)
	details := []Detail{}
	for i, item := range items {
		d := Detail{
			ID:         int64(len(m.details) + i + 1),
			VentaID:    sale.ID,
			ProductoID: item.ProductoID,
			Nombre:     item.Nombre,
			Precio:     item.Precio,
			Cantidad:   item.Cantidad,
		}
		details = append(details, d)
	}
	m.details = append(m.details, details...)
	return sale, details, nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	out := []Sale{}
	for i := len(m.sales) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		s := m.sales[i]
		if !filter.From.IsZero() && s.Fecha.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.Fecha.After(filter.To) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Sale, error) {
	for _, s := range m.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return Sale{}, ErrSaleNotFound
}

func (m *memoryRepo) ListDetails(ctx context.Context, ventaID int64) ([]Detail, error) {
	out := []Detail{}
	for _, d := range m.details {
		if d.VentaID == ventaID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryRepo) ProductTotals(ctx context.Context, from, to time.Time, productID int64) ([]ProductSales, error) {
	byProduct := map[int64]*ProductSales{}
	order := []int64{}
	for _, d := range m.details {
		if d.ProductoID == nil {
			continue
		}
		if productID != 0 && *d.ProductoID != productID {
			continue
		}
		if agg, ok := byProduct[*d.ProductoID]; ok {
			agg.Cantidad += d.Cantidad
			agg.Subtotal += d.Precio * float64(d.Cantidad)
			continue
		}
		byProduct[*d.ProductoID] = &ProductSales{
			ProductoID: *d.ProductoID,
			Nombre:     d.Nombre,
			Cantidad:   d.Cantidad,
			Subtotal:   d.Precio * float64(d.Cantidad),
		}
		order = append(order, *d.ProductoID)
	}
	out := []ProductSales{}
	for _, id := range order {
		out = append(out, *byProduct[id])
	}
	return out, nil
}

type fakeLedger struct {
	requests [][]inventory.AdjustmentRequest
	reject   map[int64]bool
}

func (f *fakeLedger) ApplyAdjustments(ctx context.Context, requests []inventory.AdjustmentRequest) (inventory.BatchResult, error) {
	f.requests = append(f.requests, requests)
	result := inventory.BatchResult{}
	for _, req := range requests {
		outcome := inventory.AdjustmentOutcome{ProductID: *req.ProductID, OK: true}
		if f.reject[*req.ProductID] {
			outcome.OK = false
			outcome.Err = shared.NewError(shared.KindInsufficientStock, "El stock resultante sería negativo")
		}
		if outcome.OK {
			result.Exitosos++
		} else {
			result.Fallidos++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

type fakeCart struct{ cleared int }

func (f *fakeCart) Clear(ctx context.Context) error {
	f.cleared++
	return nil
}

type fakePayments struct {
	bySale map[int64][]payments.Payment
}

func (f *fakePayments) ListBySale(ctx context.Context, ventaID int64) ([]payments.Payment, error) {
	return f.bySale[ventaID], nil
}

func (f *fakePayments) MethodTotals(ctx context.Context, from, to time.Time) ([]payments.MethodTotal, error) {
	totals := map[string]float64{}
	order := []string{}
	for _, pagos := range f.bySale {
		for _, p := range pagos {
			if p.Fecha.Before(from) || p.Fecha.After(to) {
				continue
			}
			if _, seen := totals[p.MetodoPago]; !seen {
				order = append(order, p.MetodoPago)
			}
			totals[p.MetodoPago] += p.Monto
		}
	}
	out := []payments.MethodTotal{}
	for _, metodo := range order {
		out = append(out, payments.MethodTotal{Metodo: metodo, Monto: totals[metodo]})
	}
	return out, nil
}

type fixture struct {
	service *Service
	repo    *memoryRepo
	ledger  *fakeLedger
	cart    *fakeCart
	pay     *fakePayments
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	ledger := &fakeLedger{reject: map[int64]bool{}}
	cart := &fakeCart{}
	pay := &fakePayments{bySale: map[int64][]payments.Payment{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		service: NewService(repo, ledger, cart, pay, logger),
		repo:    repo,
		ledger:  ledger,
		cart:    cart,
		pay:     pay,
	}
}

func intPtr(v int64) *int64 { return &v }

func TestCreateComputesTotalAndFecha(t *testing.T) {
	f := newFixture()

	before := time.Now().UTC()
	result, err := f.service.Create(context.Background(), CreateSaleInput{
		Items: []ItemInput{
			{ProductoID: intPtr(1), Precio: 10, Cantidad: 2},
			{ProductoID: intPtr(2), Precio: 5, Cantidad: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 35.0, result.Venta.Total)
	require.False(t, result.Venta.Fecha.Before(before))
	require.Len(t, result.Detalles, 2)
	require.Equal(t, result.Venta.ID, result.Detalles[0].VentaID)
	require.Zero(t, f.cart.cleared)
	require.Empty(t, f.ledger.requests)
}

func TestCreateRequiresItems(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), CreateSaleInput{})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
	require.Equal(t, "Se requiere una lista de items para la venta", shared.UserSafeMessage(err))

	// an explicit empty list is a valid zero-item sale
	result, err := f.service.Create(context.Background(), CreateSaleInput{Items: []ItemInput{}})
	require.NoError(t, err)
	require.Zero(t, result.Venta.Total)
}

func TestCreateDecrementsStockThroughLedger(t *testing.T) {
	f := newFixture()
	f.ledger.reject[2] = true

	result, err := f.service.Create(context.Background(), CreateSaleInput{
		Items: []ItemInput{
			{ProductoID: intPtr(1), Precio: 10, Cantidad: 2},
			{ProductoID: intPtr(2), Precio: 5, Cantidad: 100},
			{Nombre: "Servicio sin producto", Precio: 50, Cantidad: 1},
		},
		ActualizarInventario: true,
		VaciarCarrito:        true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.InventarioFallidos)
	require.Equal(t, 1, f.cart.cleared)

	require.Len(t, f.ledger.requests, 1)
	requests := f.ledger.requests[0]
	require.Len(t, requests, 2) // the line without producto_id is skipped
	require.Equal(t, int64(-2), *requests[0].Cantidad)
	require.Equal(t, ReasonSale, requests[0].Motivo)
	require.Equal(t, "sistema", requests[0].Usuario)
}

func TestGetFoldsPaymentsIntoView(t *testing.T) {
	f := newFixture()

	result, err := f.service.Create(context.Background(), CreateSaleInput{
		Items: []ItemInput{{ProductoID: intPtr(1), Precio: 100, Cantidad: 1}},
	})
	require.NoError(t, err)

	f.pay.bySale[result.Venta.ID] = []payments.Payment{
		{ID: 1, VentaID: result.Venta.ID, MetodoPago: "efectivo", Monto: 60},
		{ID: 2, VentaID: result.Venta.ID, MetodoPago: "tarjeta", Monto: 15},
	}

	view, err := f.service.Get(context.Background(), result.Venta.ID)
	require.NoError(t, err)
	require.Equal(t, 75.0, view.TotalPagado)
	require.Equal(t, 25.0, view.SaldoPendiente)
	require.Len(t, view.Detalles, 1)

	_, err = f.service.Get(context.Background(), 999)
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDailyReportAggregatesByMethod(t *testing.T) {
	f := newFixture()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	noon := day.Add(12 * time.Hour)

	for _, total := range []float64{100, 50} {
		total := total
		_, err := f.service.Create(context.Background(), CreateSaleInput{
			Items: []ItemInput{},
			Total: &total,
			Fecha: &noon,
		})
		require.NoError(t, err)
	}
	other := day.AddDate(0, 0, 1).Add(time.Hour)
	outside := 999.0
	_, err := f.service.Create(context.Background(), CreateSaleInput{
		Items: []ItemInput{}, Total: &outside, Fecha: &other,
	})
	require.NoError(t, err)

	f.pay.bySale[1] = []payments.Payment{
		{MetodoPago: "efectivo", Monto: 100, Fecha: noon},
		{MetodoPago: "tarjeta", Monto: 30, Fecha: noon},
	}

	report, err := f.service.DailyReport(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, "2026-03-14", report.Fecha)
	require.Equal(t, 2, report.TotalVentas)
	require.Equal(t, 150.0, report.MontoTotal)
	require.Len(t, report.MetodosPago, 2)
}

func TestDailyReportCountsEverySaleOfTheDay(t *testing.T) {
	f := newFixture()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	count := DefaultListLimit + 20
	for i := 0; i < count; i++ {
		total := 2.0
		fecha := day.Add(time.Duration(i) * time.Second)
		_, err := f.service.Create(context.Background(), CreateSaleInput{
			Items: []ItemInput{}, Total: &total, Fecha: &fecha,
		})
		require.NoError(t, err)
	}

	report, err := f.service.DailyReport(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, count, report.TotalVentas)
	require.Equal(t, float64(count)*2.0, report.MontoTotal)
	require.Len(t, report.Ventas, count)
}

func TestProductReportGroupsDetails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, CreateSaleInput{
		Items: []ItemInput{
			{ProductoID: intPtr(1), Nombre: "Café", Precio: 10, Cantidad: 2},
			{ProductoID: intPtr(2), Nombre: "Té", Precio: 20, Cantidad: 1},
		},
	})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, CreateSaleInput{
		Items: []ItemInput{{ProductoID: intPtr(1), Nombre: "Café", Precio: 10, Cantidad: 3}},
	})
	require.NoError(t, err)

	report, err := f.service.ProductReport(ctx, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, report.ProductosVendidos, 2)
	require.Equal(t, int64(5), report.ProductosVendidos[0].Cantidad)
	require.Equal(t, 50.0, report.ProductosVendidos[0].Subtotal)
	require.NotEmpty(t, report.FechaHasta)

	filtered, err := f.service.ProductReport(ctx, time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, filtered.ProductosVendidos, 1)
	require.Equal(t, "Té", filtered.ProductosVendidos[0].Nombre)
}
