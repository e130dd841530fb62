package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ProfileStatus is the coarse onboarding state of a worker
type ProfileStatus string

const (
	ProfileDraft         ProfileStatus = "DRAFT"
	ProfileFilled        ProfileStatus = "PROFILE_FILLED"
	ProfileKYCInProgress ProfileStatus = "KYC_IN_PROGRESS"
	ProfileVerified      ProfileStatus = "VERIFIED"
	ProfileRejected      ProfileStatus = "REJECTED"
)

// ProfileKYCStatus mirrors session progress on the profile
type ProfileKYCStatus string

const (
	KYCNotStarted  ProfileKYCStatus = "NOT_STARTED"
	KYCOTPSent     ProfileKYCStatus = "OTP_SENT"
	KYCOTPVerified ProfileKYCStatus = "OTP_VERIFIED"
	KYCFacePending ProfileKYCStatus = "FACE_PENDING"
	KYCVerified    ProfileKYCStatus = "VERIFIED"
	KYCFailed      ProfileKYCStatus = "FAILED"
)

// MaxFailReasonLength bounds kyc_fail_reason
const MaxFailReasonLength = 250

// WorkerProfile is the operator profile projected from KYC transitions
type WorkerProfile struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"userId"`
	ProfileStatus      ProfileStatus      `json:"profileStatus"`
	VerificationMethod VerificationMethod `json:"verificationMethod"`
	KYCStatus          ProfileKYCStatus   `json:"kycStatus"`
	KYCFailReason      null.String        `json:"kycFailReason,omitempty"`
	KYCVerifiedAt      null.Time          `json:"kycVerifiedAt,omitempty"`
	DOB                null.String        `json:"dob,omitempty"`
	Gender             null.String        `json:"gender,omitempty"`
	CurrentAddress     null.String        `json:"currentAddress,omitempty"`
	State              null.String        `json:"state,omitempty"`
	District           null.String        `json:"district,omitempty"`
	Photo              []byte             `json:"-"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// SetFailReason stores reason truncated to MaxFailReasonLength runes; empty clears it
func (p *WorkerProfile) SetFailReason(reason string) {
	if reason == "" {
		p.KYCFailReason = null.String{}
		return
	}
	r := []rune(reason)
	if len(r) > MaxFailReasonLength {
		r = r[:MaxFailReasonLength]
	}
	p.KYCFailReason = null.StringFrom(string(r))
}

// IsStuck reports whether a previous attempt left the profile mid-flow
func (p *WorkerProfile) IsStuck() bool {
	return p.ProfileStatus == ProfileKYCInProgress || p.KYCStatus == KYCFailed
}
