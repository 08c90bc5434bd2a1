package sales

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/karma-pos/karma/internal/platform/httpx"
)

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/reportes/diario", h.handleDailyReport)
	r.Get("/reportes/producto", h.handleProductReport)
	r.Get("/{id}", h.handleGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateSaleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	result, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	body := map[string]any{
		"mensaje":  "Venta registrada correctamente",
		"venta":    result.Venta,
		"detalles": result.Detalles,
	}
	if result.InventarioFallidos > 0 {
		body["inventario_fallidos"] = result.InventarioFallidos
	}
	httpx.JSON(w, http.StatusCreated, body)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
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
	ventas, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ventas)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Identificador inválido", "El id debe ser numérico")
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("fecha"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fecha inválida, formato esperado AAAA-MM-DD")
			return
		}
		day = parsed
	}
	report, err := h.service.DailyReport(r.Context(), day)
	if err != nil {
		h.logger.Error("daily report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleProductReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	if raw := q.Get("fecha_desde"); raw != "" {
		parsed, err := parseDate(raw, false)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fecha_desde inválida")
			return
		}
		from = parsed
	}
	if raw := q.Get("fecha_hasta"); raw != "" {
		parsed, err := parseDate(raw, true)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fecha_hasta inválida")
			return
		}
		to = parsed
	}
	var productID int64
	if raw := q.Get("producto_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "producto_id inválido")
			return
		}
		productID = parsed
	}
	report, err := h.service.ProductReport(r.Context(), from, to, productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
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
