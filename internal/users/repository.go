package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists user data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	// ErrUserNotFound indicates a missing user row.
	ErrUserNotFound = errors.New("users: not found")
	// ErrCorreoTaken indicates the unique correo constraint fired.
	ErrCorreoTaken = errors.New("users: correo already registered")
)

const userColumns = `id, nombre, correo, COALESCE(direccion, ''), role, created_at, last_login, password`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Nombre, &u.Correo, &u.Direccion, &u.Role, &u.CreatedAt, &u.LastLogin, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

// List returns users, optionally filtered by role.
func (r *Repository) List(ctx context.Context, role string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios ORDER BY id`
	args := []any{}
	if role != "" {
		query = `SELECT ` + userColumns + ` FROM usuarios WHERE role=$1 ORDER BY id`
		args = append(args, role)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// Get loads one user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id=$1`, id))
}

// FindByCorreo loads one user by email.
func (r *Repository) FindByCorreo(ctx context.Context, correo string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM usuarios WHERE correo=$1`, correo))
}

// Insert creates a user row.
func (r *Repository) Insert(ctx context.Context, u User) (User, error) {
	stored, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO usuarios (nombre, correo, direccion, role, password, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING `+userColumns,
		u.Nombre, u.Correo, u.Direccion, u.Role, u.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrCorreoTaken
		}
		return User{}, err
	}
	return stored, nil
}

// Update patches the provided fields and returns the stored row.
func (r *Repository) Update(ctx context.Context, id int64, patch UpdateUserInput, passwordHash *string) (User, error) {
	stored, err := scanUser(r.pool.QueryRow(ctx, `UPDATE usuarios SET
	nombre    = COALESCE($2, nombre),
	correo    = COALESCE($3, correo),
	direccion = COALESCE($4, direccion),
	role      = COALESCE($5, role),
	password  = COALESCE($6, password)
WHERE id=$1 RETURNING `+userColumns,
		id, patch.Nombre, patch.Correo, patch.Direccion, patch.Role, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrCorreoTaken
		}
		return User{}, err
	}
	return stored, nil
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE usuarios SET password=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE usuarios SET last_login=$2 WHERE id=$1`, id, at)
	return err
}

// Delete removes a user row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM usuarios WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
