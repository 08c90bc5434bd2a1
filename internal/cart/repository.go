package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrItemNotFound indicates the cart row does not exist.
var ErrItemNotFound = errors.New("cart item not found")

// Repository persists carrito rows in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a cart repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `c.id, c.producto_id, c.cantidad,
	p.id, p.nombre, p.precio, p.stock, COALESCE(p.descuento, 0), COALESCE(p.categoria, ''), p.created_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(
		&it.ID, &it.ProductoID, &it.Cantidad,
		&it.Producto.ID, &it.Producto.Nombre, &it.Producto.Precio, &it.Producto.Stock,
		&it.Producto.Descuento, &it.Producto.Categoria, &it.Producto.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// List returns every cart line with its product attached.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM carrito c
		JOIN productos p ON p.id = c.producto_id
		ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Upsert adds quantity onto an existing line for the product, or creates one.
func (r *Repository) Upsert(ctx context.Context, productID, cantidad int64) (Item, bool, error) {
	var id int64
	var created bool
	err := r.pool.QueryRow(ctx, `
		INSERT INTO carrito (producto_id, cantidad)
		VALUES ($1, $2)
		ON CONFLICT (producto_id)
		DO UPDATE SET cantidad = carrito.cantidad + EXCLUDED.cantidad
		RETURNING id, (xmax = 0)`, productID, cantidad).Scan(&id, &created)
	if err != nil {
		return Item{}, false, err
	}
	item, err := r.Get(ctx, id)
	return item, created, err
}

// Get fetches one cart line.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM carrito c
		JOIN productos p ON p.id = c.producto_id
		WHERE c.id = $1`, id))
}

// UpdateCantidad replaces the quantity on a cart line.
func (r *Repository) UpdateCantidad(ctx context.Context, id, cantidad int64) (Item, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE carrito SET cantidad = $2 WHERE id = $1`, id, cantidad)
	if err != nil {
		return Item{}, err
	}
	if tag.RowsAffected() == 0 {
		return Item{}, ErrItemNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes one cart line.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carrito WHERE id = $1`, id)
	return err
}

// Clear empties the whole cart.
func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carrito`)
	return err
}
