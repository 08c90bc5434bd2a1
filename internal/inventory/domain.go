package inventory

import "time"

// Defaults recorded on history rows when the caller does not identify itself.
const (
	// DefaultActor is recorded when no usuario accompanies a mutation.
	DefaultActor = "sistema"
	// ReasonManualUpdate is the default motivo for absolute stock writes.
	ReasonManualUpdate = "Actualización manual"
	// ReasonAdjustment is the default motivo for batch adjustments.
	ReasonAdjustment = "Ajuste de inventario"
)

const (
	// DefaultHistoryLimit caps history queries when no limit is supplied.
	DefaultHistoryLimit = 100
	// RecentHistoryLimit is how many records accompany a product detail.
	RecentHistoryLimit = 10
	// DefaultLowStockThreshold marks products as low-stock below it.
	DefaultLowStockThreshold = 10
)

// Product is the ledger's read/write view of a catalog row. Only Stock is
// ever written by this package; everything else belongs to the catalog.
type Product struct {
	ID        int64   `json:"id"`
	Nombre    string  `json:"nombre"`
	Precio    float64 `json:"precio"`
	Stock     int64   `json:"stock"`
	Descuento float64 `json:"descuento"`
}

// AdjustmentRecord is one immutable row of historial_inventario. Created
// exactly once per committed stock mutation, never updated or deleted.
type AdjustmentRecord struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"producto_id"`
	StockAnterior int64     `json:"stock_anterior"`
	StockNuevo    int64     `json:"stock_nuevo"`
	Diferencia    int64     `json:"diferencia"`
	Fecha         time.Time `json:"fecha"`
	Usuario       string    `json:"usuario"`
	Motivo        string    `json:"motivo"`
}

// AdjustmentRequest is one line of a batch adjustment. ProductID and
// Cantidad are pointers so the service can distinguish absent from zero.
type AdjustmentRequest struct {
	ProductID *int64
	Cantidad  *int64
	Usuario   string
	Motivo    string
}

// SetStockInput carries an absolute stock write.
type SetStockInput struct {
	ProductID int64
	Stock     *int64
	Usuario   string
	Motivo    string
}

// SetStockResult reports a committed absolute write. AuditDegraded flags
// that the history insert failed and the mutation committed without it.
type SetStockResult struct {
	Product       Product
	Cambio        int64
	AuditDegraded bool
}

// AdjustmentOutcome is the per-request result of a batch adjustment.
// Outcomes preserve request order: outcome i corresponds to request i.
type AdjustmentOutcome struct {
	ProductID     int64
	Nombre        string
	OK            bool
	StockAnterior int64
	StockNuevo    int64
	Diferencia    int64
	AuditDegraded bool
	Err           error
}

// BatchResult aggregates a whole batch run.
type BatchResult struct {
	Outcomes []AdjustmentOutcome
	Exitosos int
	Fallidos int
}

// HistoryFilter filters history queries; zero values impose no constraint.
type HistoryFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// Report is the low-stock snapshot over the whole catalog.
type Report struct {
	Productos         []Product
	StockBajo         []Product
	ProductosSinStock []Product
}

// StockDetail is a product plus its most recent history.
type StockDetail struct {
	Product   Product
	Historial []AdjustmentRecord
}
