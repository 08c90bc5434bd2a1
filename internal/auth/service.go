package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/karma-pos/karma/internal/shared"
	"github.com/karma-pos/karma/internal/users"
)

// UserPort is the slice of the users module that auth needs.
type UserPort interface {
	FindByCorreo(ctx context.Context, correo string) (users.User, error)
	Get(ctx context.Context, id int64) (users.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   UserPort
	tokens *shared.TokenStore
}

// NewService constructs a new Service.
func NewService(repo UserPort, tokens *shared.TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, correo, password string) (users.User, string, error) {
	user, err := s.repo.FindByCorreo(ctx, correo)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.User{}, "", shared.NewError(shared.KindUnauthorized, "Credenciales inválidas")
		}
		return users.User{}, "", shared.WrapError(shared.KindStorage, "Error de acceso a datos", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, "", shared.NewError(shared.KindUnauthorized, "Credenciales inválidas")
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err == nil {
		user.LastLogin = &now
	}

	token, err := s.tokens.Issue(ctx, shared.Actor{UserID: user.ID, Nombre: user.Nombre, Role: user.Role})
	if err != nil {
		return users.User{}, "", err
	}
	return user, token, nil
}

// Profile resolves a token into its account.
func (s *Service) Profile(ctx context.Context, token string) (users.User, error) {
	actor, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrTokenNotFound) {
			return users.User{}, shared.NewError(shared.KindUnauthorized, "Sesión inválida o expirada")
		}
		return users.User{}, err
	}
	user, err := s.repo.Get(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.User{}, shared.NewError(shared.KindUnauthorized, "Sesión inválida o expirada")
		}
		return users.User{}, shared.WrapError(shared.KindStorage, "Error de acceso a datos", err)
	}
	return user, nil
}

// Logout revokes a token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ResolveToken resolves a bearer token into an actor, for middleware use.
func (s *Service) ResolveToken(ctx context.Context, token string) (*shared.Actor, error) {
	return s.tokens.Resolve(ctx, token)
}
