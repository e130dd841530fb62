package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"seqrview.backend/internal/domain/entities"
)

// VerificationSessionRepository defines KYC session persistence.
// Reads honour UnitOfWork.WithLock.
type VerificationSessionRepository interface {
	// Create fails with ErrAlreadyExists when the user already has an open
	// session for the method
	Create(ctx context.Context, session *entities.VerificationSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.VerificationSession, error)
	// GetActive returns the latest non-terminal session of the user for method
	GetActive(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationSession, error)
	// GetLatest returns the latest session of the user for method in any status
	GetLatest(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationSession, error)
	// ListResettable returns every non-terminal or FAILED session of the user, newest first
	ListResettable(ctx context.Context, userID uuid.UUID) ([]*entities.VerificationSession, error)
	Update(ctx context.Context, session *entities.VerificationSession) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// VerificationRecordRepository defines the durable dedupe authority
type VerificationRecordRepository interface {
	// GetOrCreate returns the (user, method) record, creating an empty one if missing
	GetOrCreate(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationRecord, error)
	// Save persists rec. Marking a hash verified that is already verified under
	// another user fails with ErrAlreadyExists.
	Save(ctx context.Context, rec *entities.VerificationRecord) error
	// VerifiedByOtherUser reports whether hash is verified under a user other than userID
	VerifiedByOtherUser(ctx context.Context, hash string, userID uuid.UUID) (bool, error)
}
