package user

import (
	"context"

	"shopcore/internal/domain"
)

// Repository fetches user snapshots. Account management lives in a
// separate system; orders only need the denormalized name and email.
type Repository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
