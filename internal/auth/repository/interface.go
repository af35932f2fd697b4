package repository

import (
	"context"

	"github.com/google/uuid"
)

// UserStore defines the user persistence the auth service depends on.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	ListUsers(ctx context.Context, officeID *uuid.UUID) ([]User, error)
	SetUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error
}

// Ensure Repository implements UserStore
var _ UserStore = (*Repository)(nil)
