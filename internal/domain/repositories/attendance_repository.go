package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"seqrview.backend/internal/domain/entities"
)

// AttendanceRepository defines attendance persistence and duty lookups
type AttendanceRepository interface {
	GetDutyContext(ctx context.Context, assignmentID uuid.UUID) (*entities.DutyContext, error)
	Create(ctx context.Context, event *entities.AttendanceEvent) error
	UpdateAssignmentStatus(ctx context.Context, assignmentID uuid.UUID, status entities.AssignmentStatus, completedAt *time.Time) error
	// List returns events newest first; a nil operatorID lists all operators
	List(ctx context.Context, operatorID *uuid.UUID, limit, offset int) ([]*entities.AttendanceEvent, int64, error)
}
