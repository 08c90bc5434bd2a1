package cart

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karma-pos/karma/internal/products"
	"github.com/karma-pos/karma/internal/shared"
)

type memoryRepo struct {
	items  map[int64]Item
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[int64]Item{}, nextID: 1}
}

func (m *memoryRepo) List(ctx context.Context) ([]Item, error) {
	out := []Item{}
	for i := int64(1); i < m.nextID; i++ {
		if it, ok := m.items[i]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memoryRepo) Upsert(ctx context.Context, productID, cantidad int64) (Item, bool, error) {
	for id, it := range m.items {
		if it.ProductoID == productID {
			it.Cantidad += cantidad
			m.items[id] = it
			return it, false, nil
		}
	}
	it := Item{ID: m.nextID, ProductoID: productID, Cantidad: cantidad}
	m.items[m.nextID] = it
	m.nextID++
	return it, true, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (m *memoryRepo) UpdateCantidad(ctx context.Context, id, cantidad int64) (Item, error) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	it.Cantidad = cantidad
	m.items[id] = it
	return it, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memoryRepo) Clear(ctx context.Context) error {
	m.items = map[int64]Item{}
	return nil
}

type memoryCatalog struct {
	products map[int64]products.Product
}

func (m *memoryCatalog) Get(ctx context.Context, id int64) (products.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return products.Product{}, products.ErrProductNotFound
	}
	return p, nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	catalog := &memoryCatalog{products: map[int64]products.Product{
		1: {ID: 1, Nombre: "Café", Precio: 10, Descuento: 0},
		2: {ID: 2, Nombre: "Té", Precio: 20, Descuento: 25},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, catalog, logger), repo
}

func ptr(v int64) *int64 { return &v }

func TestAddIncrementsExistingLine(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	item, created, err := service.Add(ctx, AddItemInput{ProductoID: ptr(1), Cantidad: ptr(2)})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(2), item.Cantidad)

	item, created, err = service.Add(ctx, AddItemInput{ProductoID: ptr(1), Cantidad: ptr(3)})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, int64(5), item.Cantidad)

	items, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestAddValidation(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	_, _, err := service.Add(ctx, AddItemInput{Cantidad: ptr(1)})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, _, err = service.Add(ctx, AddItemInput{ProductoID: ptr(1), Cantidad: ptr(0)})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, _, err = service.Add(ctx, AddItemInput{ProductoID: ptr(99), Cantidad: ptr(1)})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
	require.Equal(t, "El producto no existe", shared.UserSafeMessage(err))
}

func TestUpdateCantidadRequiresPositive(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	item, _, err := service.Add(ctx, AddItemInput{ProductoID: ptr(1), Cantidad: ptr(2)})
	require.NoError(t, err)

	_, err = service.UpdateCantidad(ctx, item.ID, nil)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = service.UpdateCantidad(ctx, item.ID, ptr(-1))
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	updated, err := service.UpdateCantidad(ctx, item.ID, ptr(7))
	require.NoError(t, err)
	require.Equal(t, int64(7), updated.Cantidad)

	_, err = service.UpdateCantidad(ctx, 999, ptr(1))
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestComputeTotalsAppliesPercentageDiscounts(t *testing.T) {
	items := []Item{
		{Cantidad: 2, Producto: products.Product{Precio: 10}},
		{Cantidad: 1, Producto: products.Product{Precio: 20, Descuento: 25}},
	}
	totals := ComputeTotals(items)
	require.Equal(t, 40.0, totals.Subtotal)
	require.Equal(t, 5.0, totals.Descuentos)
	require.Equal(t, 35.0, totals.Total)
	require.Equal(t, 2, totals.Items)
}

func TestClearEmptiesCart(t *testing.T) {
	service, repo := newTestService()
	ctx := context.Background()

	_, _, err := service.Add(ctx, AddItemInput{ProductoID: ptr(1), Cantidad: ptr(2)})
	require.NoError(t, err)
	_, _, err = service.Add(ctx, AddItemInput{ProductoID: ptr(2), Cantidad: ptr(1)})
	require.NoError(t, err)

	require.NoError(t, service.Clear(ctx))
	require.Empty(t, repo.items)

	totals, err := service.Total(ctx)
	require.NoError(t, err)
	require.Equal(t, Totals{}, totals)
}
