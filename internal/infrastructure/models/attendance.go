package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceLog struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	AssignmentID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ActivityType       string    `gorm:"type:varchar(20);not null"`
	Timestamp          time.Time `gorm:"not null;index"`
	Latitude           float64
	Longitude          float64
	DistanceFromCenter int
	IsVerified         bool    `gorm:"not null;default:false"`
	SelfieRef          *string `gorm:"type:varchar(100)"`
	CreatedAt          time.Time
}

type OperatorAssignment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OperatorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ShiftCenterID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status        string    `gorm:"type:varchar(20);not null;default:'PENDING'"`
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DutyRow is the flattened join of an assignment with its shift, exam and centers
type DutyRow struct {
	AssignmentID      uuid.UUID
	OperatorID        uuid.UUID
	Status            string
	ShiftID           uuid.UUID
	WorkDate          string
	StartTime         string
	EndTime           string
	ExamID            uuid.UUID
	GeofencingEnabled bool
	SelfieRequired    bool
	EcLatitude        *float64
	EcLongitude       *float64
	EcRadius          *int64
	CmLatitude        *float64
	CmLongitude       *float64
	CmRadius          *int64
}
