package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karma-pos/karma/internal/platform/db"
)

// ErrSaleNotFound indicates the venta row does not exist.
var ErrSaleNotFound = errors.New("sale not found")

// Repository persists ventas and detalles_venta rows in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a sales repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSale inserts the sale and its detail rows in one transaction.
func (r *Repository) CreateSale(ctx context.Context, sale Sale, items []ItemInput) (Sale, []Detail, error) {
	var stored Sale
	details := make([]Detail, 0, len(items))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ventas (usuario_id, total, fecha)
			VALUES ($1, $2, $3)
			RETURNING id, usuario_id, total, fecha`,
			sale.UsuarioID, sale.Total, sale.Fecha).
			Scan(&stored.ID, &stored.UsuarioID, &stored.Total, &stored.Fecha)
		if err != nil {
			return err
		}
		for _, item := range items {
			var d Detail
			err := tx.QueryRow(ctx, `
				INSERT INTO detalles_venta (venta_id, producto_id, nombre, precio, cantidad)
				VALUES ($1, $2, NULLIF($3, ''), $4, $5)
				RETURNING id, venta_id, producto_id, COALESCE(nombre, ''), precio, cantidad`,
				stored.ID, item.ProductoID, item.Nombre, item.Precio, item.Cantidad).
				Scan(&d.ID, &d.VentaID, &d.ProductoID, &d.Nombre, &d.Precio, &d.Cantidad)
			if err != nil {
				return err
			}
			details = append(details, d)
		}
		return nil
	})
	if err != nil {
		return Sale{}, nil, err
	}
	return stored, details, nil
}

// List returns sales inside the window, newest first. A zero Limit falls back
// to DefaultListLimit; ListAll lifts the cap entirely.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var limit any = filter.Limit
	if filter.Limit == 0 {
		limit = DefaultListLimit
	} else if filter.Limit < 0 {
		limit = nil // LIMIT NULL reads the whole window
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, usuario_id, total, fecha
		FROM ventas
		WHERE fecha >= COALESCE($1, '-infinity'::timestamptz)
		  AND fecha <= COALESCE($2, 'infinity'::timestamptz)
		ORDER BY fecha DESC, id DESC
		LIMIT $3`, nullableTime(filter.From), nullableTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSales(rows)
}

// Get fetches one sale.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	err := r.pool.QueryRow(ctx, `SELECT id, usuario_id, total, fecha FROM ventas WHERE id = $1`, id).
		Scan(&s.ID, &s.UsuarioID, &s.Total, &s.Fecha)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	return s, nil
}

// ListDetails returns the detail rows of one sale.
func (r *Repository) ListDetails(ctx context.Context, ventaID int64) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, venta_id, producto_id, COALESCE(nombre, ''), precio, cantidad
		FROM detalles_venta
		WHERE venta_id = $1
		ORDER BY id`, ventaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := []Detail{}
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.VentaID, &d.ProductoID, &d.Nombre, &d.Precio, &d.Cantidad); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ProductTotals aggregates detail rows per product over a sale window.
func (r *Repository) ProductTotals(ctx context.Context, from, to time.Time, productID int64) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.producto_id,
		       COALESCE(MAX(NULLIF(d.nombre, '')), 'Producto ' || d.producto_id),
		       SUM(d.cantidad),
		       SUM(d.precio * d.cantidad)
		FROM detalles_venta d
		JOIN ventas v ON v.id = d.venta_id
		WHERE d.producto_id IS NOT NULL
		  AND ($1::bigint = 0 OR d.producto_id = $1)
		  AND v.fecha >= COALESCE($2, '-infinity'::timestamptz)
		  AND v.fecha <= COALESCE($3, 'infinity'::timestamptz)
		GROUP BY d.producto_id
		ORDER BY d.producto_id`, productID, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := []ProductSales{}
	for rows.Next() {
		var t ProductSales
		if err := rows.Scan(&t.ProductoID, &t.Nombre, &t.Cantidad, &t.Subtotal); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func scanSales(rows pgx.Rows) ([]Sale, error) {
	ventas := []Sale{}
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.UsuarioID, &s.Total, &s.Fecha); err != nil {
			return nil, err
		}
		ventas = append(ventas, s)
	}
	return ventas, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
