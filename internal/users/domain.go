package users

import "time"

// Role values carried on usuarios rows.
const (
	RoleCliente = "cliente"
	RoleAdmin   = "admin"
)

// User is a usuarios row. PasswordHash never leaves the package boundary:
// the JSON tag keeps it out of every response.
type User struct {
	ID           int64      `json:"id"`
	Nombre       string     `json:"nombre"`
	Correo       string     `json:"correo"`
	Direccion    string     `json:"direccion,omitempty"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	PasswordHash string     `json:"-"`
}
