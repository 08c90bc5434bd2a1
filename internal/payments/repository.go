package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrPaymentNotFound indicates the pago row does not exist.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrSaleNotFound indicates the referenced venta does not exist.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrMethodExists indicates a duplicate payment method id.
	ErrMethodExists = errors.New("payment method already exists")
)

// Repository persists pagos and metodos_pago rows in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const paymentColumns = `id, venta_id, metodo_pago, monto, fecha, COALESCE(referencia, '')`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.VentaID, &p.MetodoPago, &p.Monto, &p.Fecha, &p.Referencia)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

// Insert records a payment and returns the stored row.
func (r *Repository) Insert(ctx context.Context, p Payment) (Payment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pagos (venta_id, metodo_pago, monto, fecha, referencia)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING `+paymentColumns,
		p.VentaID, p.MetodoPago, p.Monto, p.Fecha, p.Referencia)
	stored, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Payment{}, ErrSaleNotFound
		}
		return Payment{}, err
	}
	return stored, nil
}

// Get fetches one payment.
func (r *Repository) Get(ctx context.Context, id int64) (Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM pagos WHERE id = $1`, id))
}

// ListBySale returns all payments against one sale, oldest first.
func (r *Repository) ListBySale(ctx context.Context, ventaID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM pagos WHERE venta_id = $1 ORDER BY fecha, id`, ventaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pagos := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		pagos = append(pagos, p)
	}
	return pagos, rows.Err()
}

// MethodTotals aggregates amounts per payment method inside a window.
func (r *Repository) MethodTotals(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT metodo_pago, SUM(monto)
		FROM pagos
		WHERE fecha >= $1 AND fecha <= $2
		GROUP BY metodo_pago
		ORDER BY metodo_pago`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := []MethodTotal{}
	for rows.Next() {
		var t MethodTotal
		if err := rows.Scan(&t.Metodo, &t.Monto); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ListMethods returns configured payment methods.
func (r *Repository) ListMethods(ctx context.Context) ([]Method, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre FROM metodos_pago ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	methods := []Method{}
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.Nombre); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// InsertMethod registers a custom payment method.
func (r *Repository) InsertMethod(ctx context.Context, m Method) (Method, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO metodos_pago (id, nombre) VALUES ($1, $2)`, m.ID, m.Nombre)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Method{}, ErrMethodExists
		}
		return Method{}, err
	}
	return m, nil
}
