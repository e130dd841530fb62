package usecases

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"seqrview.backend/internal/domain/entities"
)

// Profile fail reasons
const (
	ReasonOTPAttemptsExceeded = "OTP attempts exceeded"
	ReasonDetailsMismatch     = "Details mismatch"
	ReasonFaceMatchFailed     = "Face match failed"
)

// ProfileProjector projects KYC transitions onto the worker profile and
// user. It only mutates the values passed in; callers persist them in the
// same unit of work as the session change.
type ProfileProjector struct{}

// KycStarted marks a new session of method at kycStatus
func (ProfileProjector) KycStarted(p *entities.WorkerProfile, method entities.VerificationMethod, kycStatus entities.ProfileKYCStatus) {
	p.ProfileStatus = entities.ProfileKYCInProgress
	p.VerificationMethod = method
	p.KYCStatus = kycStatus
	p.SetFailReason("")
}

func (ProfileProjector) OtpSent(p *entities.WorkerProfile) {
	p.KYCStatus = entities.KYCOTPSent
}

func (pp ProfileProjector) OtpFailed(p *entities.WorkerProfile, reason string) {
	pp.KycFailed(p, reason)
}

func (ProfileProjector) OtpVerified(p *entities.WorkerProfile) {
	p.KYCStatus = entities.KYCOTPVerified
	p.SetFailReason("")
}

// DetailsVerified writes the declared biographical fields. dob is the
// date of birth confirmed for the session.
func (ProfileProjector) DetailsVerified(p *entities.WorkerProfile, u *entities.User, declared *entities.DeclaredDetails, dob string) {
	if u != nil && strings.TrimSpace(declared.FirstName) != "" {
		u.FirstName = strings.TrimSpace(declared.FirstName)
		u.MiddleName = strings.TrimSpace(declared.MiddleName)
		u.LastName = strings.TrimSpace(declared.LastName)
	}
	p.DOB = optional(dob)
	p.Gender = optional(declared.Gender)
	p.State = optional(declared.State)
	p.District = optional(declared.District)
	p.CurrentAddress = optional(declared.Address)
	p.ProfileStatus = entities.ProfileKYCInProgress
	p.KYCStatus = entities.KYCFacePending
	p.SetFailReason("")
}

// DetailsMismatch keeps the worker on the details step
func (ProfileProjector) DetailsMismatch(p *entities.WorkerProfile) {
	p.KYCStatus = entities.KYCOTPVerified
	p.SetFailReason(ReasonDetailsMismatch)
}

// LivenessOutcome advances to FACE_PENDING on a live selfie; a failed check
// leaves kyc_status as it was
func (ProfileProjector) LivenessOutcome(p *entities.WorkerProfile, live bool) {
	if live {
		p.KYCStatus = entities.KYCFacePending
	}
}

// FaceMatchFailed fails the profile once attempts are exhausted, otherwise
// keeps it waiting for another selfie
func (pp ProfileProjector) FaceMatchFailed(p *entities.WorkerProfile, exhausted bool) {
	if exhausted {
		pp.KycFailed(p, ReasonFaceMatchFailed)
		return
	}
	p.KYCStatus = entities.KYCFacePending
}

// KycVerified completes the profile and stores selfie as the profile and user photo
func (ProfileProjector) KycVerified(p *entities.WorkerProfile, u *entities.User, selfie []byte, now time.Time) {
	p.ProfileStatus = entities.ProfileVerified
	p.KYCStatus = entities.KYCVerified
	p.KYCVerifiedAt = null.TimeFrom(now)
	p.Photo = selfie
	p.SetFailReason("")
	if u != nil {
		u.Photo = selfie
	}
}

func (ProfileProjector) KycFailed(p *entities.WorkerProfile, reason string) {
	p.KYCStatus = entities.KYCFailed
	p.SetFailReason(reason)
}

// KycReset returns the profile to a restartable state. A verified profile
// keeps its profile status.
func (ProfileProjector) KycReset(p *entities.WorkerProfile) {
	if p.ProfileStatus != entities.ProfileVerified {
		p.ProfileStatus = entities.ProfileFilled
	}
	p.KYCStatus = entities.KYCNotStarted
	p.VerificationMethod = entities.MethodNone
	p.SetFailReason("")
}

// StuckReset clears a profile left mid-flow by an abandoned attempt
func (ProfileProjector) StuckReset(p *entities.WorkerProfile) {
	p.ProfileStatus = entities.ProfileDraft
	p.KYCStatus = entities.KYCNotStarted
	p.VerificationMethod = entities.MethodNone
	p.SetFailReason("")
}

func optional(s string) null.String {
	if s = strings.TrimSpace(s); s != "" {
		return null.StringFrom(s)
	}
	return null.String{}
}
