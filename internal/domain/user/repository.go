package user

import (
	"context"
)

// Repository defines the read operations for User entities.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}
