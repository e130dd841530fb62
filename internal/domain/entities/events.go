package entities

import (
	"time"

	"github.com/google/uuid"
)

// Domain event types emitted after committed transitions
const (
	EventKYCStarted         = "kyc.started"
	EventKYCOTPVerified     = "kyc.otp_verified"
	EventKYCDetailsVerified = "kyc.details_verified"
	EventKYCLiveness        = "kyc.liveness_checked"
	EventKYCVerified        = "kyc.verified"
	EventKYCFailed          = "kyc.failed"
	EventKYCReset           = "kyc.reset"
	EventKYCSwept           = "kyc.sessions_swept"
	EventAttendanceRecorded = "attendance.recorded"
)

// DomainEvent is published asynchronously for downstream notification workers.
// Payloads never carry ID numbers, OTPs or images.
type DomainEvent struct {
	ID          uuid.UUID              `json:"id"`
	Type        string                 `json:"type"`
	AggregateID uuid.UUID              `json:"aggregateId"`
	UserID      uuid.UUID              `json:"userId"`
	OccurredAt  time.Time              `json:"occurredAt"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}
