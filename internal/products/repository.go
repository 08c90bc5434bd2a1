package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrProductNotFound indicates a missing product row.
var ErrProductNotFound = errors.New("products: not found")

const productColumns = `id, nombre, precio, stock, COALESCE(descuento, 0), COALESCE(categoria, ''), created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Nombre, &p.Precio, &p.Stock, &p.Descuento, &p.Categoria, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// List returns the whole catalog, optionally filtered to specific ids.
func (r *Repository) List(ctx context.Context, ids []int64) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM productos ORDER BY id`
	args := []any{}
	if len(ids) > 0 {
		query = `SELECT ` + productColumns + ` FROM productos WHERE id = ANY($1) ORDER BY id`
		args = append(args, ids)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Get loads one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM productos WHERE id=$1`, id))
}

// Insert creates a product and returns the stored row.
func (r *Repository) Insert(ctx context.Context, input CreateProductInput) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `INSERT INTO productos (nombre, precio, stock, descuento, categoria, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING `+productColumns,
		input.Nombre, input.Precio, input.Stock, input.Descuento, input.Categoria))
}

// Update patches the provided fields and returns the stored row.
func (r *Repository) Update(ctx context.Context, id int64, patch UpdateProductInput) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `UPDATE productos SET
	nombre    = COALESCE($2, nombre),
	precio    = COALESCE($3, precio),
	stock     = COALESCE($4, stock),
	descuento = COALESCE($5, descuento),
	categoria = COALESCE($6, categoria)
WHERE id=$1 RETURNING `+productColumns,
		id, patch.Nombre, patch.Precio, patch.Stock, patch.Descuento, patch.Categoria))
}

// Delete removes a product row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM productos WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
