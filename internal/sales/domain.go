package sales

import (
	"time"

	"github.com/karma-pos/karma/internal/payments"
)

// Sale is a ventas row.
type Sale struct {
	ID        int64     `json:"id"`
	UsuarioID *int64    `json:"usuario_id,omitempty"`
	Total     float64   `json:"total"`
	Fecha     time.Time `json:"fecha"`
}

// Detail is a detalles_venta row.
type Detail struct {
	ID         int64   `json:"id"`
	VentaID    int64   `json:"venta_id"`
	ProductoID *int64  `json:"producto_id,omitempty"`
	Nombre     string  `json:"nombre,omitempty"`
	Precio     float64 `json:"precio"`
	Cantidad   int64   `json:"cantidad"`
}

// ItemInput is one line of a sale being created.
type ItemInput struct {
	ProductoID *int64  `json:"producto_id"`
	Nombre     string  `json:"nombre"`
	Precio     float64 `json:"precio"`
	Cantidad   int64   `json:"cantidad"`
}

// CreateSaleInput carries a whole sale. Total and Fecha are optional: the
// total is derived from the items and the date defaults to now.
type CreateSaleInput struct {
	Items                []ItemInput `json:"items"`
	Total                *float64    `json:"total"`
	Fecha                *time.Time  `json:"fecha"`
	UsuarioID            *int64      `json:"usuario_id"`
	ActualizarInventario bool        `json:"actualizar_inventario"`
	VaciarCarrito        bool        `json:"vaciar_carrito"`
}

// CreateSaleResult is the stored sale with its detail rows.
type CreateSaleResult struct {
	Venta    Sale
	Detalles []Detail
	// InventarioFallidos counts items whose stock decrement was rejected,
	// typically for insufficient stock.
	InventarioFallidos int
}

// SaleView is the detail view of one sale with payments folded in.
type SaleView struct {
	Venta          Sale               `json:"venta"`
	Detalles       []Detail           `json:"detalles"`
	Pagos          []payments.Payment `json:"pagos"`
	TotalPagado    float64            `json:"total_pagado"`
	SaldoPendiente float64            `json:"saldo_pendiente"`
}

// ListFilter filters sale listings; zero values impose no constraint.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

const (
	// DefaultListLimit caps sale listings when the caller asks for no limit.
	DefaultListLimit = 100

	// ListAll disables the cap. Report paths use it: a report computed over
	// a truncated listing would understate its totals.
	ListAll = -1
)

// DailyReport summarizes one calendar day of sales.
type DailyReport struct {
	Fecha       string                 `json:"fecha"`
	TotalVentas int                    `json:"total_ventas"`
	MontoTotal  float64                `json:"monto_total"`
	Ventas      []Sale                 `json:"ventas"`
	MetodosPago []payments.MethodTotal `json:"metodos_pago"`
}

// ProductSales aggregates quantity and revenue for one product.
type ProductSales struct {
	ProductoID int64   `json:"producto_id"`
	Nombre     string  `json:"nombre"`
	Cantidad   int64   `json:"cantidad"`
	Subtotal   float64 `json:"subtotal"`
}

// ProductReport aggregates sold quantities per product over a window.
type ProductReport struct {
	FechaDesde        string         `json:"fecha_desde,omitempty"`
	FechaHasta        string         `json:"fecha_hasta"`
	ProductosVendidos []ProductSales `json:"productos_vendidos"`
}
