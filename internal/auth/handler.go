package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/karma-pos/karma/internal/platform/httpx"
	"github.com/karma-pos/karma/internal/users"
)

// Handler wires HTTP endpoints for login, registration and profile lookup.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	accounts *users.Service
	validate *validator.Validate
}

// NewHandler constructs the auth handler.
func NewHandler(logger *slog.Logger, service *Service, accounts *users.Service) *Handler {
	return &Handler{logger: logger, service: service, accounts: accounts, validate: validator.New()}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Get("/profile", h.handleProfile)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Correo   string `json:"correo" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginUser struct {
	users.User
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", "Se requieren correo y password")
		return
	}
	user, token, err := h.service.Login(r.Context(), req.Correo, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Login exitoso",
		"usuario": loginUser{User: user, Token: token},
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input users.CreateUserInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Solicitud inválida", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Datos inválidos", err.Error())
		return
	}
	user, err := h.accounts.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "Usuario registrado correctamente",
		"usuario": user,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		httpx.Problem(w, http.StatusUnauthorized, "No autorizado", "Se requiere un token Bearer")
		return
	}
	user, err := h.service.Profile(r.Context(), token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.logger.Warn("logout failed", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Sesión cerrada"})
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
