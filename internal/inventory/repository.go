package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the row-locked operations used inside a mutation.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (Product, error)
	UpdateStock(ctx context.Context, productID, stock int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// ErrProductNotFound indicates a missing product row.
var ErrProductNotFound = errors.New("inventory: product not found")

// WithTx executes the callback inside a transaction. Mutations lock the
// product row with FOR UPDATE, which serialises concurrent read-modify-write
// cycles against the same product.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// ListProducts returns the full catalog with stock quantities.
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, precio, stock, COALESCE(descuento, 0) FROM productos ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Nombre, &p.Precio, &p.Stock, &p.Descuento); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct loads a single product without locking.
func (r *Repository) GetProduct(ctx context.Context, productID int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, nombre, precio, stock, COALESCE(descuento, 0) FROM productos WHERE id=$1`, productID).
		Scan(&p.ID, &p.Nombre, &p.Precio, &p.Stock, &p.Descuento)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListHistory returns adjustment records newest first.
func (r *Repository) ListHistory(ctx context.Context, filter HistoryFilter) ([]AdjustmentRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.pool.Query(ctx, `SELECT id, producto_id, stock_anterior, stock_nuevo, diferencia, fecha, usuario, motivo
FROM historial_inventario
WHERE ($1::bigint = 0 OR producto_id = $1)
  AND fecha >= COALESCE($2, '-infinity'::timestamptz)
  AND fecha <= COALESCE($3, 'infinity'::timestamptz)
ORDER BY fecha DESC, id DESC
LIMIT $4`, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []AdjustmentRecord{}
	for rows.Next() {
		var rec AdjustmentRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.StockAnterior, &rec.StockNuevo, &rec.Diferencia, &rec.Fecha, &rec.Usuario, &rec.Motivo); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertHistory appends one adjustment record. Callers treat failures as
// non-fatal: the stock write is authoritative and the history is best-effort.
func (r *Repository) InsertHistory(ctx context.Context, rec AdjustmentRecord) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO historial_inventario (producto_id, stock_anterior, stock_nuevo, diferencia, fecha, usuario, motivo)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, rec.ProductID, rec.StockAnterior, rec.StockNuevo, rec.Diferencia, rec.Fecha, rec.Usuario, rec.Motivo)
	return err
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (Product, error) {
	var p Product
	err := r.tx.QueryRow(ctx, `SELECT id, nombre, precio, stock, COALESCE(descuento, 0) FROM productos WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Nombre, &p.Precio, &p.Stock, &p.Descuento)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateStock(ctx context.Context, productID, stock int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE productos SET stock=$2 WHERE id=$1`, productID, stock)
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
