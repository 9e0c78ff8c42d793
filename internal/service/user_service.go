package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/domain"
	"account-service/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// UserService describes account lifecycle and credential operations.
type UserService interface {
	Register(ctx context.Context, name, email, password, phoneNumber string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) (*domain.User, error)
	Deactivate(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Register(ctx context.Context, name, email, password, phoneNumber string) (*domain.User, error) {
	user, err := s.create(ctx, name, email, password, phoneNumber, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// bcrypt compare is the constant-time check; the hash never leaves this package.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, update repository.ProfileUpdate) (*domain.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Deactivate marks the account inactive. The record stays; outstanding tokens
// stop working on the next authenticated request because the gate re-reads
// live record state.
func (s *userService) Deactivate(ctx context.Context, id string) error {
	if err := s.users.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// EnsureAdmin creates an admin account at startup if the email is free.
// An existing account with that email is left untouched.
func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if _, err := s.create(ctx, name, email, password, "", domain.RoleAdmin); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil
		}
		return err
	}
	return nil
}

func (s *userService) create(ctx context.Context, name, email, password, phoneNumber string, role domain.Role) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PhoneNumber:  strings.TrimSpace(phoneNumber),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// normalizeEmail makes the login key case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
