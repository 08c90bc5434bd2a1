package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karma-pos/karma/internal/shared"
)

type memoryRepo struct {
	payments   []Payment
	methods    []Method
	nextID     int64
	knownSales map[int64]bool
}

func newMemoryRepo(sales ...int64) *memoryRepo {
	known := map[int64]bool{}
	for _, id := range sales {
		known[id] = true
	}
	return &memoryRepo{nextID: 1, knownSales: known}
}

func (m *memoryRepo) Insert(ctx context.Context, p Payment) (Payment, error) {
	if !m.knownSales[p.VentaID] {
		return Payment{}, ErrSaleNotFound
	}
	p.ID = m.nextID
	m.nextID++
	m.payments = append(m.payments, p)
	return p, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (m *memoryRepo) ListBySale(ctx context.Context, ventaID int64) ([]Payment, error) {
	out := []Payment{}
	for _, p := range m.payments {
		if p.VentaID == ventaID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) MethodTotals(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	totals := map[string]float64{}
	order := []string{}
	for _, p := range m.payments {
		if p.Fecha.Before(from) || p.Fecha.After(to) {
			continue
		}
		if _, seen := totals[p.MetodoPago]; !seen {
			order = append(order, p.MetodoPago)
		}
		totals[p.MetodoPago] += p.Monto
	}
	out := []MethodTotal{}
	for _, metodo := range order {
		out = append(out, MethodTotal{Metodo: metodo, Monto: totals[metodo]})
	}
	return out, nil
}

func (m *memoryRepo) ListMethods(ctx context.Context) ([]Method, error) {
	return m.methods, nil
}

func (m *memoryRepo) InsertMethod(ctx context.Context, method Method) (Method, error) {
	for _, existing := range m.methods {
		if existing.ID == method.ID {
			return Method{}, ErrMethodExists
		}
	}
	m.methods = append(m.methods, method)
	return method, nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func strPtr(s string) *string     { return &s }
func intPtr(v int64) *int64       { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestProcessValidatesRequiredFields(t *testing.T) {
	service := newTestService(newMemoryRepo(1))
	ctx := context.Background()

	cases := []CreatePaymentInput{
		{MetodoPago: strPtr("efectivo"), Monto: floatPtr(10)},
		{VentaID: intPtr(1), Monto: floatPtr(10)},
		{VentaID: intPtr(1), MetodoPago: strPtr("efectivo")},
		{VentaID: intPtr(1), MetodoPago: strPtr("efectivo"), Monto: floatPtr(0)},
	}
	for _, input := range cases {
		_, err := service.Process(ctx, input)
		require.Equal(t, shared.KindValidation, shared.KindOf(err))
	}

	_, err := service.Process(ctx, CreatePaymentInput{
		VentaID: intPtr(99), MetodoPago: strPtr("efectivo"), Monto: floatPtr(10),
	})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestProcessDefaultsFecha(t *testing.T) {
	repo := newMemoryRepo(1)
	service := newTestService(repo)

	before := time.Now().UTC()
	pago, err := service.Process(context.Background(), CreatePaymentInput{
		VentaID: intPtr(1), MetodoPago: strPtr("tarjeta"), Monto: floatPtr(42.5),
	})
	require.NoError(t, err)
	require.False(t, pago.Fecha.Before(before))
	require.Equal(t, 42.5, pago.Monto)
	require.NotEmpty(t, pago.Referencia)
}

func TestProcessSplitLegsAreIndependent(t *testing.T) {
	repo := newMemoryRepo(1)
	service := newTestService(repo)

	legs := []SplitPaymentInput{
		{MetodoPago: strPtr("efectivo"), Monto: floatPtr(30)},
		{Monto: floatPtr(20)}, // missing method
		{MetodoPago: strPtr("tarjeta"), Monto: floatPtr(70)},
	}
	result, err := service.ProcessSplit(context.Background(), 1, legs)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 3)
	require.Equal(t, 2, result.Exitosos)
	require.Equal(t, 100.0, result.TotalProcesado)

	require.True(t, result.Outcomes[0].Exito)
	require.False(t, result.Outcomes[1].Exito)
	require.Equal(t, "Falta método de pago o monto", result.Outcomes[1].Error)
	require.True(t, result.Outcomes[2].Exito)

	// the failed leg never rolled back the recorded ones
	require.Len(t, repo.payments, 2)
	require.Equal(t, "Procesados 2 de 3 pagos", SplitMessage(result.Exitosos, len(legs)))
}

func TestSummarizeSaleTotalsPayments(t *testing.T) {
	repo := newMemoryRepo(1, 2)
	service := newTestService(repo)
	ctx := context.Background()

	for _, monto := range []float64{25, 75} {
		_, err := service.Process(ctx, CreatePaymentInput{
			VentaID: intPtr(1), MetodoPago: strPtr("efectivo"), Monto: floatPtr(monto),
		})
		require.NoError(t, err)
	}
	_, err := service.Process(ctx, CreatePaymentInput{
		VentaID: intPtr(2), MetodoPago: strPtr("tarjeta"), Monto: floatPtr(999),
	})
	require.NoError(t, err)

	summary, err := service.SummarizeSale(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, summary.CantidadPagos)
	require.Equal(t, 100.0, summary.TotalPagado)
}

func TestMethodsFallBackToDefaults(t *testing.T) {
	repo := newMemoryRepo()
	service := newTestService(repo)
	ctx := context.Background()

	methods, err := service.Methods(ctx)
	require.NoError(t, err)
	require.Equal(t, DefaultMethods, methods)

	_, err = service.AddMethod(ctx, Method{ID: "cripto", Nombre: "Criptomoneda"})
	require.NoError(t, err)

	methods, err = service.Methods(ctx)
	require.NoError(t, err)
	require.Equal(t, []Method{{ID: "cripto", Nombre: "Criptomoneda"}}, methods)

	_, err = service.AddMethod(ctx, Method{ID: "cripto", Nombre: "Otra"})
	require.Equal(t, shared.KindConflict, shared.KindOf(err))

	_, err = service.AddMethod(ctx, Method{ID: "", Nombre: "Sin id"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}
