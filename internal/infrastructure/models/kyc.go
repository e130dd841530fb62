package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KYCSession stores the ID photo sealed; the repository seals and opens it.
// At most one session per user and method is open at a time; the partial
// unique index behind that is created by repositories.EnsureIndexes.
type KYCSession struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index:idx_kyc_sessions_user_method"`
	Method             string         `gorm:"type:varchar(20);not null;index:idx_kyc_sessions_user_method"`
	Status             string         `gorm:"type:varchar(30);not null;index"`
	DedupeHash         string         `gorm:"type:varchar(64);not null;index"`
	VendorClientID     *string        `gorm:"column:vendor_client_id;type:varchar(255)"`
	OTPAttempts        int            `gorm:"column:otp_attempts;not null;default:0"`
	LivenessAttempts   int            `gorm:"column:liveness_attempts;not null;default:0"`
	FaceAttempts       int            `gorm:"column:face_attempts;not null;default:0"`
	FullName           *string        `gorm:"type:varchar(255)"`
	DOB                *string        `gorm:"column:dob;type:varchar(10)"`
	Gender             *string        `gorm:"type:varchar(20)"`
	AddressData        datatypes.JSON `gorm:"column:ekyc_address_data"`
	NameMatch          *bool
	NameMatchScore     *float64
	DOBMatch           *bool `gorm:"column:dob_match"`
	GenderMatch        *bool
	IDPhoto            []byte     `gorm:"column:id_photo;type:bytea"`
	VendorReferenceID  *string    `gorm:"column:vendor_reference_id;type:varchar(255)"`
	VendorUniquenessID *string    `gorm:"column:vendor_uniqueness_id;type:varchar(255)"`
	OTPSentAt          *time.Time `gorm:"column:otp_sent_at"`
	ExpiresAt          time.Time  `gorm:"not null;index"`
	ClearedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (KYCSession) TableName() string {
	return "kyc_sessions"
}

// UserVerification carries a partial unique index on dedupe_hash where verified
// so two accounts can never both hold a verified record for one ID.
type UserVerification struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_verifications_user_method"`
	Method              string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_verifications_user_method"`
	DedupeHash          string    `gorm:"type:varchar(64);index;uniqueIndex:uq_user_verifications_verified_hash,where:verified = true"`
	Verified            bool      `gorm:"not null;default:false"`
	VerifiedAt          *time.Time
	NameMatch           *bool
	NameMatchScore      *float64
	DOBMatch            *bool `gorm:"column:dob_match"`
	GenderMatch         *bool
	LivenessPass        *bool
	LivenessConfidence  *float64
	FaceMatchPass       *bool
	FaceMatchConfidence *float64
	VendorReferenceID   *string `gorm:"column:vendor_reference_id;type:varchar(255)"`
	VendorUniquenessID  *string `gorm:"column:vendor_uniqueness_id;type:varchar(255)"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (UserVerification) TableName() string {
	return "user_verifications"
}
