package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// VerificationMethod is the government ID used for KYC
type VerificationMethod string

const (
	MethodNone    VerificationMethod = "NONE"
	MethodAadhaar VerificationMethod = "AADHAAR"
	MethodDL      VerificationMethod = "DL"
)

// Valid reports whether m names a session-capable method
func (m VerificationMethod) Valid() bool {
	return m == MethodAadhaar || m == MethodDL
}

// SessionStatus is the state of a VerificationSession
type SessionStatus string

const (
	SessionCreated         SessionStatus = "CREATED"
	SessionOTPSent         SessionStatus = "OTP_SENT"
	SessionOTPVerified     SessionStatus = "OTP_VERIFIED"
	SessionDLVerified      SessionStatus = "DL_VERIFIED"
	SessionDetailsVerified SessionStatus = "DETAILS_VERIFIED"
	SessionFailed          SessionStatus = "FAILED"
	SessionCompleted       SessionStatus = "COMPLETED"
	SessionExpired         SessionStatus = "EXPIRED"
)

// IsTerminal reports whether a new session must be started
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionFailed, SessionCompleted, SessionExpired:
		return true
	}
	return false
}

// ActiveSessionStatuses are the non-terminal statuses
var ActiveSessionStatuses = []SessionStatus{
	SessionCreated,
	SessionOTPSent,
	SessionOTPVerified,
	SessionDLVerified,
	SessionDetailsVerified,
}

// VerificationSession is one KYC attempt of a user for a method.
// IDPhoto is held only between ID verification and completion, expiry or reset.
type VerificationSession struct {
	ID                 uuid.UUID              `json:"id"`
	UserID             uuid.UUID              `json:"userId"`
	Method             VerificationMethod     `json:"method"`
	Status             SessionStatus          `json:"status"`
	DedupeHash         string                 `json:"-"`
	VendorClientID     null.String            `json:"-"`
	OTPAttempts        int                    `json:"otpAttempts"`
	LivenessAttempts   int                    `json:"livenessAttempts"`
	FaceAttempts       int                    `json:"faceAttempts"`
	FullName           null.String            `json:"fullName,omitempty"`
	DOB                null.String            `json:"dob,omitempty"`
	Gender             null.String            `json:"gender,omitempty"`
	Address            map[string]interface{} `json:"-"`
	NameMatch          null.Bool              `json:"nameMatch"`
	NameMatchScore     null.Float64           `json:"nameMatchScore"`
	DOBMatch           null.Bool              `json:"dobMatch"`
	GenderMatch        null.Bool              `json:"genderMatch"`
	IDPhoto            []byte                 `json:"-"`
	VendorReferenceID  null.String            `json:"-"`
	VendorUniquenessID null.String            `json:"-"`
	OTPSentAt          null.Time              `json:"otpSentAt,omitempty"`
	ExpiresAt          time.Time              `json:"expiresAt"`
	ClearedAt          null.Time              `json:"clearedAt,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

// IsExpired reports whether the session deadline has passed at now
func (s *VerificationSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ClearSensitive wipes the ID photo and stamps cleared_at
func (s *VerificationSession) ClearSensitive(now time.Time) {
	if s.IDPhoto == nil && s.ClearedAt.Valid {
		return
	}
	s.IDPhoto = nil
	s.ClearedAt = null.TimeFrom(now)
}

// Expire moves the session to EXPIRED and wipes sensitive data
func (s *VerificationSession) Expire(now time.Time) {
	s.Status = SessionExpired
	s.ClearSensitive(now)
}

// ResumeStatus returns the status a FAILED session resumes at when a face
// step is retried. Only sessions that failed after details verification
// can resume.
func (s *VerificationSession) ResumeStatus() (SessionStatus, bool) {
	if s.Status != SessionFailed || !s.NameMatch.Valid {
		return "", false
	}
	return SessionDetailsVerified, true
}

// VerificationRecord is the durable dedupe authority keyed by (user, method)
type VerificationRecord struct {
	ID                  uuid.UUID          `json:"id"`
	UserID              uuid.UUID          `json:"userId"`
	Method              VerificationMethod `json:"method"`
	DedupeHash          string             `json:"-"`
	Verified            bool               `json:"verified"`
	VerifiedAt          null.Time          `json:"verifiedAt,omitempty"`
	NameMatch           null.Bool          `json:"nameMatch"`
	NameMatchScore      null.Float64       `json:"nameMatchScore"`
	DOBMatch            null.Bool          `json:"dobMatch"`
	GenderMatch         null.Bool          `json:"genderMatch"`
	LivenessPass        null.Bool          `json:"livenessPass"`
	LivenessConfidence  null.Float64       `json:"livenessConfidence"`
	FaceMatchPass       null.Bool          `json:"faceMatchPass"`
	FaceMatchConfidence null.Float64       `json:"faceMatchConfidence"`
	VendorReferenceID   null.String        `json:"-"`
	VendorUniquenessID  null.String        `json:"-"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// CopyMatches copies the session's match outcomes and vendor ids
func (r *VerificationRecord) CopyMatches(s *VerificationSession) {
	r.DedupeHash = s.DedupeHash
	r.NameMatch = s.NameMatch
	r.NameMatchScore = s.NameMatchScore
	r.DOBMatch = s.DOBMatch
	r.GenderMatch = s.GenderMatch
	r.VendorReferenceID = s.VendorReferenceID
	r.VendorUniquenessID = s.VendorUniquenessID
}

// DeclaredDetails is what the worker claims about themselves
type DeclaredDetails struct {
	FirstName  string `json:"first_name" form:"first_name" binding:"required,max=100"`
	MiddleName string `json:"middle_name" form:"middle_name" binding:"max=100"`
	LastName   string `json:"last_name" form:"last_name" binding:"max=100"`
	DOB        string `json:"dob" form:"dob" binding:"omitempty,datetime=2006-01-02"`
	Gender     string `json:"gender" form:"gender" binding:"max=20"`
	State      string `json:"state" form:"state" binding:"max=100"`
	District   string `json:"district" form:"district" binding:"max=100"`
	Address    string `json:"address" form:"address" binding:"max=500"`
}

// FullName joins the declared name parts
func (d *DeclaredDetails) FullName() string {
	u := User{FirstName: d.FirstName, MiddleName: d.MiddleName, LastName: d.LastName}
	return u.FullName()
}

// StartResult is returned by the start operations
type StartResult struct {
	Session     *VerificationSession `json:"session"`
	AlreadySent bool                 `json:"alreadySent"`
	RetryAfter  int                  `json:"retryAfter,omitempty"`
}

// LivenessResult is returned by the KYC liveness step
type LivenessResult struct {
	Live       bool    `json:"live"`
	Confidence float64 `json:"confidence"`
	Attempts   int     `json:"attempts"`
}

// FaceMatchResult is returned by the KYC face-match step
type FaceMatchResult struct {
	Matched    bool          `json:"matched"`
	Confidence float64       `json:"confidence"`
	Threshold  float64       `json:"threshold"`
	Attempts   int           `json:"attempts"`
	Status     SessionStatus `json:"status"`
}

// KYCStatusView is the caller's KYC state without sensitive data
type KYCStatusView struct {
	Profile  *WorkerProfile                              `json:"profile"`
	Sessions map[VerificationMethod]*VerificationSession `json:"sessions"`
}
