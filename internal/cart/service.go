package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/karma-pos/karma/internal/products"
	"github.com/karma-pos/karma/internal/shared"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	List(ctx context.Context) ([]Item, error)
	Upsert(ctx context.Context, productID, cantidad int64) (Item, bool, error)
	Get(ctx context.Context, id int64) (Item, error)
	UpdateCantidad(ctx context.Context, id, cantidad int64) (Item, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}

// CatalogPort resolves products before they enter the cart.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// Service implements cart operations.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	logger  *slog.Logger
}

// NewService constructs a cart service.
func NewService(repo RepositoryPort, catalog CatalogPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

// List returns the current cart contents.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudo obtener el carrito", err)
	}
	return items, nil
}

// Add places a product in the cart. Adding a product that is already there
// increments its quantity instead of creating a second line.
func (s *Service) Add(ctx context.Context, input AddItemInput) (Item, bool, error) {
	if input.ProductoID == nil || input.Cantidad == nil {
		return Item{}, false, shared.NewError(shared.KindValidation, "Faltan datos: producto_id y cantidad son necesarios")
	}
	if *input.Cantidad <= 0 {
		return Item{}, false, shared.NewError(shared.KindValidation, "La cantidad debe ser mayor que cero")
	}
	if _, err := s.catalog.Get(ctx, *input.ProductoID); err != nil {
		if errors.Is(err, products.ErrProductNotFound) || shared.KindOf(err) == shared.KindNotFound {
			return Item{}, false, shared.NewError(shared.KindNotFound, "El producto no existe")
		}
		return Item{}, false, shared.WrapError(shared.KindStorage, "No se pudo verificar el producto", err)
	}
	item, created, err := s.repo.Upsert(ctx, *input.ProductoID, *input.Cantidad)
	if err != nil {
		return Item{}, false, shared.WrapError(shared.KindStorage, "No se pudo agregar al carrito", err)
	}
	return item, created, nil
}

// UpdateCantidad replaces the quantity on one line.
func (s *Service) UpdateCantidad(ctx context.Context, id int64, cantidad *int64) (Item, error) {
	if cantidad == nil {
		return Item{}, shared.NewError(shared.KindValidation, "Falta el campo cantidad")
	}
	if *cantidad <= 0 {
		return Item{}, shared.NewError(shared.KindValidation, "La cantidad debe ser mayor que cero")
	}
	item, err := s.repo.UpdateCantidad(ctx, id, *cantidad)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return Item{}, shared.NewError(shared.KindNotFound, "Producto no encontrado en el carrito")
		}
		return Item{}, shared.WrapError(shared.KindStorage, "No se pudo actualizar la cantidad", err)
	}
	return item, nil
}

// Remove deletes one line from the cart.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return shared.WrapError(shared.KindStorage, "No se pudo eliminar del carrito", err)
	}
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return shared.WrapError(shared.KindStorage, "No se pudo vaciar el carrito", err)
	}
	return nil
}

// Total computes subtotal, line discounts and final total for the cart.
func (s *Service) Total(ctx context.Context) (Totals, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return Totals{}, shared.WrapError(shared.KindStorage, "No se pudo calcular el total", err)
	}
	return ComputeTotals(items), nil
}

// ComputeTotals folds cart lines into price totals. Discounts are the
// product's descuento percentage applied to precio*cantidad.
func ComputeTotals(items []Item) Totals {
	t := Totals{Items: len(items)}
	for _, it := range items {
		line := it.Producto.Precio * float64(it.Cantidad)
		t.Subtotal += line
		if it.Producto.Descuento > 0 {
			t.Descuentos += line * it.Producto.Descuento / 100
		}
	}
	t.Total = t.Subtotal - t.Descuentos
	return t
}
