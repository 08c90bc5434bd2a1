package cart

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/karma-pos/karma/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the cart.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the cart handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleAdd)
	r.Get("/total", h.handleTotal)
	r.Delete("/vaciar", h.handleClear)
	r.Delete("/{id}", h.handleRemove)
	r.Put("/{id}/cantidad", h.handleUpdateCantidad)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list cart failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var input AddItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	item, created, err := h.service.Add(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, item)
}

func (h *Handler) handleUpdateCantidad(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req struct {
		Cantidad *int64 `json:"cantidad"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	item, err := h.service.UpdateCantidad(r.Context(), id, req.Cantidad)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Producto eliminado del carrito"})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Carrito vaciado correctamente"})
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Total(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, totals)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Identificador inválido", "El id debe ser numérico")
		return 0, false
	}
	return id, true
}
