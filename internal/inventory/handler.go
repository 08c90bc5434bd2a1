package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/karma-pos/karma/internal/platform/httpx"
	"github.com/karma-pos/karma/internal/shared"
)

// Handler wires the HTTP endpoints of the inventory ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	reports singleflight.Group
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleReport)
	r.Get("/historial", h.handleHistory)
	r.Post("/ajuste", h.handleBatchAdjust)
	r.Get("/{id}", h.handleGetStock)
	r.Put("/{id}", h.handleSetStock)
}

type setStockRequest struct {
	Stock   *int64 `json:"stock"`
	Usuario string `json:"usuario"`
	Motivo  string `json:"motivo"`
}

type adjustmentItem struct {
	ProductoID *int64 `json:"producto_id"`
	Cantidad   *int64 `json:"cantidad"`
	Usuario    string `json:"usuario"`
	Motivo     string `json:"motivo"`
}

type adjustmentResult struct {
	ProductoID    int64  `json:"producto_id"`
	Nombre        string `json:"nombre,omitempty"`
	Exito         bool   `json:"exito"`
	StockAnterior *int64 `json:"stock_anterior,omitempty"`
	StockNuevo    *int64 `json:"stock_nuevo,omitempty"`
	Diferencia    *int64 `json:"diferencia,omitempty"`
	Error         string `json:"error,omitempty"`
	AuditDegraded bool   `json:"auditoria_degradada,omitempty"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	threshold := int64(DefaultLowStockThreshold)
	if raw := r.URL.Query().Get("umbral"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Umbral inválido")
			return
		}
		threshold = parsed
	}

	// Concurrent report requests collapse into one catalog scan.
	value, err, _ := h.reports.Do(strconv.FormatInt(threshold, 10), func() (any, error) {
		return h.service.Report(r.Context(), threshold)
	})
	if err != nil {
		h.logger.Error("inventory report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	report := value.(Report)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"productos":           report.Productos,
		"total_productos":     len(report.Productos),
		"stock_bajo":          report.StockBajo,
		"productos_sin_stock": report.ProductosSinStock,
	})
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetStock(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"producto":  detail.Product,
		"historial": detail.Historial,
	})
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req setStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Cuerpo JSON inválido")
		return
	}
	result, err := h.service.SetStock(r.Context(), SetStockInput{
		ProductID: productID,
		Stock:     req.Stock,
		Usuario:   defaultActor(r.Context(), req.Usuario),
		Motivo:    req.Motivo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	response := map[string]any{
		"mensaje":  "Stock actualizado correctamente",
		"producto": result.Product,
		"cambio":   result.Cambio,
	}
	if result.AuditDegraded {
		response["auditoria_degradada"] = true
	}
	httpx.JSON(w, http.StatusOK, response)
}

func (h *Handler) handleBatchAdjust(w http.ResponseWriter, r *http.Request) {
	var items []adjustmentItem
	if err := httpx.DecodeJSON(r, &items); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Se espera una lista de ajustes")
		return
	}
	requests := make([]AdjustmentRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, AdjustmentRequest{
			ProductID: item.ProductoID,
			Cantidad:  item.Cantidad,
			Usuario:   defaultActor(r.Context(), item.Usuario),
			Motivo:    item.Motivo,
		})
	}
	batch, err := h.service.ApplyAdjustments(r.Context(), requests)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	results := make([]adjustmentResult, 0, len(batch.Outcomes))
	for _, outcome := range batch.Outcomes {
		results = append(results, toAdjustmentResult(outcome))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"resultados": results,
		"exitosos":   batch.Exitosos,
		"fallidos":   batch.Fallidos,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter := HistoryFilter{Limit: DefaultHistoryLimit}
	q := r.URL.Query()
	if raw := q.Get("producto_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "producto_id inválido")
			return
		}
		filter.ProductID = id
	}
	if raw := q.Get("fecha_desde"); raw != "" {
		from, err := parseDate(raw, false)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fecha_desde inválida")
			return
		}
		filter.From = from
	}
	if raw := q.Get("fecha_hasta"); raw != "" {
		to, err := parseDate(raw, true)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fecha_hasta inválida")
			return
		}
		filter.To = to
	}
	if raw := q.Get("limite"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limite inválido")
			return
		}
		filter.Limit = limit
	}
	records, err := h.service.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("history query failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func toAdjustmentResult(outcome AdjustmentOutcome) adjustmentResult {
	result := adjustmentResult{ProductoID: outcome.ProductID, Exito: outcome.OK}
	if outcome.OK {
		before, after, delta := outcome.StockAnterior, outcome.StockNuevo, outcome.Diferencia
		result.Nombre = outcome.Nombre
		result.StockAnterior = &before
		result.StockNuevo = &after
		result.Diferencia = &delta
		result.AuditDegraded = outcome.AuditDegraded
		return result
	}
	result.Error = shared.UserSafeMessage(outcome.Err)
	return result
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Identificador inválido")
		return 0, false
	}
	return id, true
}

// parseDate accepts RFC3339 timestamps or bare dates. Bare end dates extend
// to the last instant of the day so the range stays inclusive.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func defaultActor(ctx context.Context, usuario string) string {
	if usuario != "" {
		return usuario
	}
	if actor := shared.ActorFromContext(ctx); actor != nil {
		return actor.Nombre
	}
	return ""
}
