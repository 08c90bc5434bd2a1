package payments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/karma-pos/karma/internal/platform/httpx"
)

// Handler wires HTTP endpoints for payments.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the payments handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers payment routes under /pagos.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleProcess)
	r.Post("/split", h.handleSplit)
	r.Get("/venta/{venta_id}", h.handleSaleSummary)
	r.Get("/{id}", h.handleGet)
}

// MountMethodRoutes registers payment method routes under /metodos-pago.
func (h *Handler) MountMethodRoutes(r chi.Router) {
	r.Get("/", h.handleListMethods)
	r.Post("/", h.handleAddMethod)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var input CreatePaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	pago, err := h.service.Process(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"mensaje": "Pago procesado correctamente",
		"pago":    pago,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Identificador inválido", "El id debe ser numérico")
		return
	}
	pago, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pago)
}

func (h *Handler) handleSaleSummary(w http.ResponseWriter, r *http.Request) {
	ventaID, err := strconv.ParseInt(chi.URLParam(r, "venta_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Identificador inválido", "El venta_id debe ser numérico")
		return
	}
	summary, err := h.service.SummarizeSale(r.Context(), ventaID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type splitRequest struct {
	VentaID *int64              `json:"venta_id"`
	Pagos   []SplitPaymentInput `json:"pagos"`
}

func (h *Handler) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	if req.Pagos == nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "Se requiere una lista de pagos")
		return
	}
	if req.VentaID == nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "Falta el ID de venta")
		return
	}
	result, err := h.service.ProcessSplit(r.Context(), *req.VentaID, req.Pagos)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"mensaje":         SplitMessage(result.Exitosos, len(req.Pagos)),
		"total_procesado": result.TotalProcesado,
		"resultados":      result.Outcomes,
	})
}

func (h *Handler) handleListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.Methods(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, methods)
}

func (h *Handler) handleAddMethod(w http.ResponseWriter, r *http.Request) {
	var m Method
	if err := httpx.DecodeJSON(r, &m); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	stored, err := h.service.AddMethod(r.Context(), m)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, stored)
}
