package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/karma-pos/karma/internal/shared"
)

type memoryRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]User{}, nextID: 1}
}

func (m *memoryRepo) List(ctx context.Context, role string) ([]User, error) {
	out := []User{}
	for i := int64(1); i < m.nextID; i++ {
		u, ok := m.users[i]
		if !ok {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memoryRepo) FindByCorreo(ctx context.Context, correo string) (User, error) {
	for _, u := range m.users {
		if u.Correo == correo {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memoryRepo) Insert(ctx context.Context, u User) (User, error) {
	for _, existing := range m.users {
		if existing.Correo == u.Correo {
			return User{}, ErrCorreoTaken
		}
	}
	u.ID = m.nextID
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, patch UpdateUserInput, passwordHash *string) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if patch.Nombre != nil {
		u.Nombre = *patch.Nombre
	}
	if patch.Correo != nil {
		u.Correo = *patch.Correo
	}
	if patch.Direccion != nil {
		u.Direccion = *patch.Direccion
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	m.users[id] = u
	return u, nil
}

func (m *memoryRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, nil, logger), repo
}

func TestCreateHashesPasswordAndDefaultsRole(t *testing.T) {
	service, repo := newTestService()

	user, err := service.Create(context.Background(), CreateUserInput{
		Nombre:   "Ana",
		Correo:   "ana@example.com",
		Password: "secreto123",
	})
	require.NoError(t, err)
	require.Equal(t, RoleCliente, user.Role)

	stored := repo.users[user.ID]
	require.NotEqual(t, "secreto123", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreto123")))
}

func TestCreateRejectsDuplicateCorreo(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	_, err := service.Create(ctx, CreateUserInput{Nombre: "Ana", Correo: "ana@example.com", Password: "secreto123"})
	require.NoError(t, err)

	_, err = service.Create(ctx, CreateUserInput{Nombre: "Otra", Correo: "ana@example.com", Password: "secreto456"})
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
	require.Equal(t, "El correo ya está registrado", shared.UserSafeMessage(err))
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	service, repo := newTestService()
	ctx := context.Background()

	user, err := service.Create(ctx, CreateUserInput{Nombre: "Ana", Correo: "ana@example.com", Password: "secreto123"})
	require.NoError(t, err)

	err = service.ChangePassword(ctx, user.ID, "incorrecta", "nuevosecreto")
	require.Equal(t, shared.KindUnauthorized, shared.KindOf(err))
	require.Equal(t, "Contraseña actual incorrecta", shared.UserSafeMessage(err))

	require.NoError(t, service.ChangePassword(ctx, user.ID, "secreto123", "nuevosecreto"))
	stored := repo.users[user.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("nuevosecreto")))
}

func TestListFiltersByRole(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	_, err := service.Create(ctx, CreateUserInput{Nombre: "Ana", Correo: "ana@example.com", Password: "secreto123", Role: RoleAdmin})
	require.NoError(t, err)
	_, err = service.Create(ctx, CreateUserInput{Nombre: "Beto", Correo: "beto@example.com", Password: "secreto123"})
	require.NoError(t, err)

	admins, err := service.List(ctx, RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, "Ana", admins[0].Nombre)

	todos, err := service.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, todos, 2)
}

func TestDeleteMissingUser(t *testing.T) {
	service, _ := newTestService()

	err := service.Delete(context.Background(), 42)
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
	require.Equal(t, "Usuario no encontrado", shared.UserSafeMessage(err))
}
