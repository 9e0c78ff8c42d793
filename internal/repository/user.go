package repository

import (
	"context"

	"account-service/internal/domain"
)

// ProfileUpdate carries the mutable profile fields. Nil means leave unchanged.
// Email, role and password are deliberately absent: they are immutable
// through this surface.
type ProfileUpdate struct {
	Name        *string
	PhoneNumber *string
}

// UserRepository defines persistence operations for User records.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context) ([]domain.User, error)
}
