package auth

import (
	"errors"
	"net/http"

	"github.com/karma-pos/karma/internal/platform/httpx"
	"github.com/karma-pos/karma/internal/shared"
)

// Identify resolves an optional bearer token into the request context. Requests
// without a token pass through anonymously; the inventory module then records
// history under the default actor.
func (s *Service) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := s.ResolveToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrTokenNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireAuth rejects requests that do not carry a valid token.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "No autorizado", "Se requiere un token Bearer")
			return
		}
		actor, err := s.ResolveToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrTokenNotFound) {
				httpx.Problem(w, http.StatusUnauthorized, "No autorizado", "Sesión inválida o expirada")
				return
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireRole layers a role check on top of RequireAuth.
func (s *Service) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil || actor.Role != role {
				httpx.Problem(w, http.StatusForbidden, "Acceso denegado", "Permisos insuficientes")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
