package inventory

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karma-pos/karma/internal/shared"
)

type memoryRepo struct {
	products    map[int64]Product
	history     []AdjustmentRecord
	nextID      int64
	failHistory bool
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...Product) *memoryRepo {
	repo := &memoryRepo{products: make(map[int64]Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListProducts(ctx context.Context) ([]Product, error) {
	ids := make([]int64, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, r.products[id])
	}
	return products, nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, productID int64) (Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListHistory(ctx context.Context, filter HistoryFilter) ([]AdjustmentRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	records := []AdjustmentRecord{}
	for i := len(r.history) - 1; i >= 0 && len(records) < limit; i-- {
		rec := r.history[i]
		if filter.ProductID != 0 && rec.ProductID != filter.ProductID {
			continue
		}
		if !filter.From.IsZero() && rec.Fecha.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.Fecha.After(filter.To) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *memoryRepo) InsertHistory(ctx context.Context, rec AdjustmentRecord) error {
	if r.failHistory {
		return errors.New("historial_inventario does not exist")
	}
	r.nextID++
	rec.ID = r.nextID
	r.history = append(r.history, rec)
	return nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (Product, error) {
	return tx.repo.GetProduct(ctx, productID)
}

func (tx *memoryTx) UpdateStock(ctx context.Context, productID, stock int64) error {
	p, ok := tx.repo.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock = stock
	tx.repo.products[productID] = p
	return nil
}

func ptr(v int64) *int64 { return &v }

func TestSetStockWritesProductAndHistory(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Nombre: "Cafe", Precio: 50, Stock: 20})
	svc := NewService(repo, nil)

	result, err := svc.SetStock(context.Background(), SetStockInput{ProductID: 1, Stock: ptr(35), Usuario: "ana", Motivo: "Recepción"})
	require.NoError(t, err)
	require.EqualValues(t, 35, result.Product.Stock)
	require.EqualValues(t, 15, result.Cambio)
	require.False(t, result.AuditDegraded)

	require.Len(t, repo.history, 1)
	rec := repo.history[0]
	require.EqualValues(t, 20, rec.StockAnterior)
	require.EqualValues(t, 35, rec.StockNuevo)
	require.EqualValues(t, 15, rec.Diferencia)
	require.Equal(t, "ana", rec.Usuario)
	require.Equal(t, "Recepción", rec.Motivo)
	require.Equal(t, rec.StockAnterior+rec.Diferencia, rec.StockNuevo)
}

func TestSetStockDefaultsActorAndReason(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Stock: 5})
	svc := NewService(repo, nil)

	_, err := svc.SetStock(context.Background(), SetStockInput{ProductID: 1, Stock: ptr(7)})
	require.NoError(t, err)
	require.Equal(t, "sistema", repo.history[0].Usuario)
	require.Equal(t, "Actualización manual", repo.history[0].Motivo)
}

func TestSetStockValidation(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Stock: 5})
	svc := NewService(repo, nil)

	_, err := svc.SetStock(context.Background(), SetStockInput{ProductID: 1})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.SetStock(context.Background(), SetStockInput{ProductID: 1, Stock: ptr(-3)})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.SetStock(context.Background(), SetStockInput{ProductID: 99, Stock: ptr(3)})
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	// Failed validations leave state untouched.
	require.EqualValues(t, 5, repo.products[1].Stock)
	require.Empty(t, repo.history)
}

func TestSetStockIdempotentSecondWriteHasZeroDelta(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Stock: 9})
	svc := NewService(repo, nil)

	first, err := svc.SetStock(context.Background(), SetStockInput{ProductID: 1, Stock: ptr(5)})
	require.NoError(t, err)
	require.EqualValues(t, -4, first.Cambio)

	second, err := svc.SetStock(context.Background(), SetStockInput{ProductID: 1, Stock: ptr(5)})
	require.NoError(t, err)
	require.EqualValues(t, 0, second.Cambio)

	require.EqualValues(t, 5, repo.products[1].Stock)
	require.Len(t, repo.history, 2)
	require.EqualValues(t, 0, repo.history[1].Diferencia)
}

func TestSetStockAuditDegradedStillSucceeds(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Stock: 4})
	repo.failHistory = true
	svc := NewService(repo, nil)

	result, err := svc.SetStock(context.Background(), SetStockInput{ProductID: 1, Stock: ptr(10)})
	require.NoError(t, err)
	require.True(t, result.AuditDegraded)
	require.EqualValues(t, 10, repo.products[1].Stock)
	require.Empty(t, repo.history)
}

func TestApplyAdjustmentsOrderAndIsolation(t *testing.T) {
	repo := newMemoryRepo(
		Product{ID: 1, Nombre: "Cafe", Stock: 20},
		Product{ID: 2, Nombre: "Pan", Stock: 8},
	)
	svc := NewService(repo, nil)

	batch, err := svc.ApplyAdjustments(context.Background(), []AdjustmentRequest{
		{ProductID: ptr(1), Cantidad: ptr(-25)},       // insufficient
		{ProductID: ptr(2), Cantidad: ptr(4)},         // ok
		{ProductID: ptr(77), Cantidad: ptr(1)},        // missing product
		{ProductID: ptr(1), Cantidad: nil},            // missing field
		{ProductID: ptr(1), Cantidad: ptr(-5), Usuario: "luis"}, // ok
	})
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 5)
	require.Equal(t, 2, batch.Exitosos)
	require.Equal(t, 3, batch.Fallidos)

	require.False(t, batch.Outcomes[0].OK)
	require.True(t, shared.IsKind(batch.Outcomes[0].Err, shared.KindInsufficientStock))

	require.True(t, batch.Outcomes[1].OK)
	require.EqualValues(t, 8, batch.Outcomes[1].StockAnterior)
	require.EqualValues(t, 12, batch.Outcomes[1].StockNuevo)

	require.True(t, shared.IsKind(batch.Outcomes[2].Err, shared.KindNotFound))
	require.True(t, shared.IsKind(batch.Outcomes[3].Err, shared.KindValidation))

	require.True(t, batch.Outcomes[4].OK)
	require.EqualValues(t, 20, batch.Outcomes[4].StockAnterior)
	require.EqualValues(t, 15, batch.Outcomes[4].StockNuevo)

	// The failed decrement left product 1 untouched until the later valid one.
	require.EqualValues(t, 15, repo.products[1].Stock)
	require.EqualValues(t, 12, repo.products[2].Stock)

	// Only committed mutations reach the history.
	require.Len(t, repo.history, 2)
	require.Equal(t, "sistema", repo.history[0].Usuario)
	require.Equal(t, "Ajuste de inventario", repo.history[0].Motivo)
	require.Equal(t, "luis", repo.history[1].Usuario)
}

func TestApplyAdjustmentsNeverGoesNegative(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Stock: 20})
	svc := NewService(repo, nil)

	batch, err := svc.ApplyAdjustments(context.Background(), []AdjustmentRequest{{ProductID: ptr(1), Cantidad: ptr(-25)}})
	require.NoError(t, err)
	require.Equal(t, 1, batch.Fallidos)
	require.EqualValues(t, 20, repo.products[1].Stock)

	batch, err = svc.ApplyAdjustments(context.Background(), []AdjustmentRequest{{ProductID: ptr(1), Cantidad: ptr(-5)}})
	require.NoError(t, err)
	require.Equal(t, 1, batch.Exitosos)
	require.EqualValues(t, 20, batch.Outcomes[0].StockAnterior)
	require.EqualValues(t, 15, batch.Outcomes[0].StockNuevo)
	require.EqualValues(t, -5, batch.Outcomes[0].Diferencia)
}

func TestHistoryDateRangeInclusiveDescending(t *testing.T) {
	repo := newMemoryRepo()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		repo.history = append(repo.history, AdjustmentRecord{
			ID:        int64(i + 1),
			ProductID: 1,
			Fecha:     base.AddDate(0, 0, i),
		})
	}
	svc := NewService(repo, nil)

	records, err := svc.History(context.Background(), HistoryFilter{
		ProductID: 1,
		From:      base,
		To:        base.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i := 1; i < len(records); i++ {
		require.False(t, records[i].Fecha.After(records[i-1].Fecha))
	}
}

func TestReportThresholds(t *testing.T) {
	repo := newMemoryRepo(
		Product{ID: 1, Stock: 5},
		Product{ID: 2, Stock: 15},
		Product{ID: 3, Stock: 0},
	)
	svc := NewService(repo, nil)

	report, err := svc.Report(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.Productos, 3)
	require.Len(t, report.StockBajo, 2)
	require.Len(t, report.ProductosSinStock, 1)
	require.EqualValues(t, 3, report.ProductosSinStock[0].ID)

	// Threshold 10 on {5, 15}: only the 5 is low, nothing is out of stock.
	repo = newMemoryRepo(Product{ID: 1, Stock: 5}, Product{ID: 2, Stock: 15})
	svc = NewService(repo, nil)
	report, err = svc.Report(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, report.StockBajo, 1)
	require.EqualValues(t, 1, report.StockBajo[0].ID)
	require.Empty(t, report.ProductosSinStock)
}

func TestGetStockIncludesRecentHistory(t *testing.T) {
	repo := newMemoryRepo(Product{ID: 1, Nombre: "Cafe", Stock: 3})
	for i := 0; i < 15; i++ {
		repo.history = append(repo.history, AdjustmentRecord{ID: int64(i + 1), ProductID: 1, Fecha: time.Now().UTC()})
	}
	svc := NewService(repo, nil)

	detail, err := svc.GetStock(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, detail.Product.ID)
	require.Len(t, detail.Historial, RecentHistoryLimit)

	_, err = svc.GetStock(context.Background(), 9)
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}
