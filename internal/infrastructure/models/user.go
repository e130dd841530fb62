package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Username   string    `gorm:"type:varchar(150);uniqueIndex;not null"`
	FirstName  string    `gorm:"type:varchar(100)"`
	MiddleName string    `gorm:"type:varchar(100)"`
	LastName   string    `gorm:"type:varchar(100)"`
	Photo      []byte    `gorm:"type:bytea"`
	Role       string    `gorm:"type:varchar(50);not null;default:'OPERATOR'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OperatorProfile struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID             uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	ProfileStatus      string     `gorm:"type:varchar(30);not null;default:'DRAFT'"`
	VerificationMethod string     `gorm:"type:varchar(20);not null;default:'NONE'"`
	KYCStatus          string     `gorm:"column:kyc_status;type:varchar(30);not null;default:'NOT_STARTED'"`
	KYCFailReason      *string    `gorm:"column:kyc_fail_reason;type:varchar(250)"`
	KYCVerifiedAt      *time.Time `gorm:"column:kyc_verified_at"`
	DOB                *string    `gorm:"column:dob;type:varchar(10)"`
	Gender             *string    `gorm:"type:varchar(20)"`
	CurrentAddress     *string    `gorm:"type:text"`
	State              *string    `gorm:"type:varchar(100)"`
	District           *string    `gorm:"type:varchar(100)"`
	Photo              []byte     `gorm:"type:bytea"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (OperatorProfile) TableName() string {
	return "operator_profiles"
}
