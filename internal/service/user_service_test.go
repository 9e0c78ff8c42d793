package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/domain"
	"account-service/internal/repository"
)

// mockUserRepository is an in-memory UserRepository for testing.
type mockUserRepository struct {
	users       map[string]*domain.User // id -> user
	createError error
	getError    error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[string]*domain.User{}}
}

func (m *mockUserRepository) Init(ctx context.Context) error { return nil }

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createError != nil {
		return m.createError
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.PhoneNumber != nil {
		user.PhoneNumber = *update.PhoneNumber
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	return nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	for _, user := range m.users {
		users = append(users, *user)
	}
	return users, nil
}

func TestRegister(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "Ann Lee", "Ann@X.com", "longpassw0rd", "5551234567")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ann Lee", user.Name)
	assert.Equal(t, "ann@x.com", user.Email, "email should be stored lowercase")
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.IsActive)

	assert.NotEqual(t, "longpassw0rd", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("longpassw0rd")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "Ann Lee", "ann@x.com", "longpassw0rd", "5551234567")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Other Ann", "ANN@x.com", "otherpassword", "5559876543")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, repo.users, 1, "failed registration must not mutate the store")
}

func TestAuthenticate(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "Ann Lee", "ann@x.com", "longpassw0rd", "5551234567")
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "ann@x.com", "longpassw0rd")
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", user.Email)
	})

	t.Run("email case is ignored", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "ANN@X.COM", "longpassw0rd")
		assert.NoError(t, err)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, wrongPassErr := svc.Authenticate(context.Background(), "ann@x.com", "wrongpassword")
		_, unknownErr := svc.Authenticate(context.Background(), "nobody@x.com", "longpassw0rd")

		assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
		assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
		assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
	})
}

func TestAuthenticateStoreError(t *testing.T) {
	repo := newMockUserRepository()
	repo.getError = errors.New("disk on fire")
	svc := NewUserService(repo)

	_, err := svc.Authenticate(context.Background(), "ann@x.com", "longpassw0rd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials, "store failures must not masquerade as bad credentials")
}

func TestDeactivate(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "Ann Lee", "ann@x.com", "longpassw0rd", "5551234567")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID))

	stored, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	assert.ErrorIs(t, svc.Deactivate(context.Background(), "missing-id"), ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "Ann Lee", "ann@x.com", "longpassw0rd", "5551234567")
	require.NoError(t, err)

	name := "Ann Updated"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, repository.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ann Updated", updated.Name)
	assert.Equal(t, "5551234567", updated.PhoneNumber, "untouched fields keep their value")

	_, err = svc.UpdateProfile(context.Background(), "missing-id", repository.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "Root", "admin@x.com", "adminpassword"))

	admin, err := svc.Authenticate(context.Background(), "admin@x.com", "adminpassword")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	// second call is a no-op, not an error
	require.NoError(t, svc.EnsureAdmin(context.Background(), "Root", "admin@x.com", "adminpassword"))
	assert.Len(t, repo.users, 1)
}
