package payments

import "time"

// Payment is a pagos row. Referencia holds an optional gateway reference;
// payments are recorded without an actual gateway round trip.
type Payment struct {
	ID         int64     `json:"id"`
	VentaID    int64     `json:"venta_id"`
	MetodoPago string    `json:"metodo_pago"`
	Monto      float64   `json:"monto"`
	Fecha      time.Time `json:"fecha"`
	Referencia string    `json:"referencia,omitempty"`
}

// Method is a configurable payment method.
type Method struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
}

// DefaultMethods are served while the metodos_pago table is empty.
var DefaultMethods = []Method{
	{ID: "efectivo", Nombre: "Efectivo"},
	{ID: "tarjeta", Nombre: "Tarjeta de Crédito/Débito"},
	{ID: "transferencia", Nombre: "Transferencia Bancaria"},
	{ID: "movil", Nombre: "Pago Móvil"},
}

// CreatePaymentInput carries one payment to record.
type CreatePaymentInput struct {
	VentaID    *int64     `json:"venta_id"`
	MetodoPago *string    `json:"metodo_pago"`
	Monto      *float64   `json:"monto"`
	Fecha      *time.Time `json:"fecha"`
	Referencia string     `json:"referencia"`
}

// SplitPaymentInput is one leg of a split payment; venta_id comes from the
// envelope, not the leg.
type SplitPaymentInput struct {
	MetodoPago *string    `json:"metodo_pago"`
	Monto      *float64   `json:"monto"`
	Fecha      *time.Time `json:"fecha"`
	Referencia string     `json:"referencia"`
}

// SplitOutcome reports one leg of a split run. Legs fail and succeed
// independently of each other.
type SplitOutcome struct {
	Exito bool     `json:"exito"`
	Error string   `json:"error,omitempty"`
	Pago  *Payment `json:"pago,omitempty"`
}

// SplitResult aggregates a whole split run.
type SplitResult struct {
	Outcomes       []SplitOutcome
	Exitosos       int
	TotalProcesado float64
}

// SaleSummary totals the payments recorded against one sale.
type SaleSummary struct {
	Pagos         []Payment `json:"pagos"`
	TotalPagado   float64   `json:"total_pagado"`
	CantidadPagos int       `json:"cantidad_pagos"`
}

// MethodTotal aggregates payment amounts per method for reporting.
type MethodTotal struct {
	Metodo string  `json:"metodo"`
	Monto  float64 `json:"monto"`
}
