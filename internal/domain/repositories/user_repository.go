package repositories

import (
	"context"

	"github.com/google/uuid"
	"seqrview.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	UpdateNames(ctx context.Context, id uuid.UUID, first, middle, last string) error
	UpdatePhoto(ctx context.Context, id uuid.UUID, photo []byte) error
}

// WorkerProfileRepository defines operator profile operations
type WorkerProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.WorkerProfile, error)
	Update(ctx context.Context, profile *entities.WorkerProfile) error
}
