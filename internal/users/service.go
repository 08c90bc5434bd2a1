package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/karma-pos/karma/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	List(ctx context.Context, role string) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	FindByCorreo(ctx context.Context, correo string) (User, error)
	Insert(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, id int64, patch UpdateUserInput, passwordHash *string) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// AuditPort records user mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates user management.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// CreateUserInput carries a new account.
type CreateUserInput struct {
	Nombre    string `json:"nombre" validate:"required"`
	Correo    string `json:"correo" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Direccion string `json:"direccion"`
	Role      string `json:"role" validate:"omitempty,oneof=cliente admin"`
}

// UpdateUserInput patches an account; nil fields stay untouched.
type UpdateUserInput struct {
	Nombre    *string `json:"nombre,omitempty"`
	Correo    *string `json:"correo,omitempty" validate:"omitempty,email"`
	Direccion *string `json:"direccion,omitempty"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=cliente admin"`
	Password  *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns accounts, optionally filtered by role.
func (s *Service) List(ctx context.Context, role string) ([]User, error) {
	list, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, shared.WrapError(shared.KindStorage, "No se pudieron consultar los usuarios", err)
	}
	return list, nil
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, s.mapStoreError(err)
	}
	return user, nil
}

// Create registers an account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	role := input.Role
	if role == "" {
		role = RoleCliente
	}
	user, err := s.repo.Insert(ctx, User{
		Nombre:       input.Nombre,
		Correo:       input.Correo,
		Direccion:    input.Direccion,
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, s.mapStoreError(err)
	}
	s.recordAudit(ctx, "user:create", user.ID)
	return user, nil
}

// Update patches an account, re-hashing the password when supplied.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateUserInput) (User, error) {
	var passwordHash *string
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hashed := string(hash)
		passwordHash = &hashed
	}
	user, err := s.repo.Update(ctx, id, patch, passwordHash)
	if err != nil {
		return User{}, s.mapStoreError(err)
	}
	s.recordAudit(ctx, "user:update", user.ID)
	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.mapStoreError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return shared.NewError(shared.KindUnauthorized, "Contraseña actual incorrecta")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return s.mapStoreError(err)
	}
	s.recordAudit(ctx, "user:change_password", id)
	return nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapStoreError(err)
	}
	s.recordAudit(ctx, "user:delete", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorName(ctx),
		Action:   action,
		Entity:   "usuarios",
		EntityID: strconv.FormatInt(id, 10),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return shared.NewError(shared.KindNotFound, "Usuario no encontrado")
	case errors.Is(err, ErrCorreoTaken):
		return shared.NewError(shared.KindConflict, "El correo ya está registrado")
	default:
		return shared.WrapError(shared.KindStorage, "Error de acceso a datos", err)
	}
}
