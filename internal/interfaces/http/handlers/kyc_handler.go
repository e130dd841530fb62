package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/interfaces/http/middleware"
	"seqrview.backend/internal/interfaces/http/response"
	"seqrview.backend/internal/usecases"
)

type kycService interface {
	StartAadhaar(ctx context.Context, userID uuid.UUID, idNumber string) (*entities.StartResult, error)
	ResendOTP(ctx context.Context, userID, sessionID uuid.UUID, idNumber string) (*entities.StartResult, error)
	SubmitOTP(ctx context.Context, userID, sessionID uuid.UUID, otp string) (*entities.VerificationSession, error)
	StartDL(ctx context.Context, userID uuid.UUID, licenceNumber, dob string) (*entities.StartResult, error)
	VerifyDetails(ctx context.Context, userID, sessionID uuid.UUID, declared *entities.DeclaredDetails) (*entities.VerificationSession, error)
	Liveness(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.LivenessResult, error)
	FaceMatch(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.FaceMatchResult, error)
	Reset(ctx context.Context, userID uuid.UUID) error
	Status(ctx context.Context, userID uuid.UUID) (*entities.KYCStatusView, error)
}

// Next steps reported to the client
const (
	nextSubmitOTP     = "SUBMIT_OTP"
	nextVerifyDetails = "VERIFY_DETAILS"
	nextFaceLiveness  = "FACE_LIVENESS"
	nextFaceMatch     = "FACE_MATCH"
	nextRetry         = "RETRY"
	nextRestart       = "RESTART"
	nextDone          = "DONE"
)

// KycHandler handles operator KYC endpoints
type KycHandler struct {
	kycUsecase kycService
}

// NewKycHandler creates a new KYC handler
func NewKycHandler(kycUsecase *usecases.KycUsecase) *KycHandler {
	return &KycHandler{kycUsecase: kycUsecase}
}

type startAadhaarRequest struct {
	AadhaarNumber string `json:"aadhaar_number" binding:"required"`
}

type resendOTPRequest struct {
	SessionID     string `json:"session_id" binding:"required,uuid"`
	AadhaarNumber string `json:"aadhaar_number" binding:"required"`
}

type submitOTPRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
	OTP       string `json:"otp" binding:"required"`
}

type startDLRequest struct {
	LicenseNumber string `json:"license_number" binding:"required"`
	DOB           string `json:"dob" binding:"required"`
}

type verifyDetailsRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
	entities.DeclaredDetails
}

// StartAadhaar sends an Aadhaar OTP
// POST /api/v1/kyc/aadhaar/start
func (h *KycHandler) StartAadhaar(c *gin.Context) {
	var req startAadhaarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	result, err := h.kycUsecase.StartAadhaar(c.Request.Context(), userID, req.AadhaarNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, startBody(result, nextSubmitOTP))
}

// ResendOTP re-sends the OTP of an active Aadhaar session
// POST /api/v1/kyc/aadhaar/resend
func (h *KycHandler) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	result, err := h.kycUsecase.ResendOTP(c.Request.Context(), userID, uuid.MustParse(req.SessionID), req.AadhaarNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, startBody(result, nextSubmitOTP))
}

// SubmitOTP verifies the OTP
// POST /api/v1/kyc/aadhaar/submit-otp
func (h *KycHandler) SubmitOTP(c *gin.Context) {
	var req submitOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	session, err := h.kycUsecase.SubmitOTP(c.Request.Context(), userID, uuid.MustParse(req.SessionID), req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session, "next": nextVerifyDetails})
}

// StartDL verifies a driving licence
// POST /api/v1/kyc/dl/start
func (h *KycHandler) StartDL(c *gin.Context) {
	var req startDLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	result, err := h.kycUsecase.StartDL(c.Request.Context(), userID, req.LicenseNumber, req.DOB)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, startBody(result, nextVerifyDetails))
}

// VerifyDetails compares declared details with the ID document. Serves
// both the Aadhaar and DL routes; the session decides the method.
// POST /api/v1/kyc/aadhaar/verify-details, /api/v1/kyc/dl/verify-details
func (h *KycHandler) VerifyDetails(c *gin.Context) {
	var req verifyDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	session, err := h.kycUsecase.VerifyDetails(c.Request.Context(), userID, uuid.MustParse(req.SessionID), &req.DeclaredDetails)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session, "next": nextFaceLiveness})
}

// Liveness checks a selfie for liveness
// POST /api/v1/kyc/face/liveness (multipart: session_id, selfie)
func (h *KycHandler) Liveness(c *gin.Context) {
	userID, sessionID, selfie, ok := h.faceInput(c)
	if !ok {
		return
	}

	result, err := h.kycUsecase.Liveness(c.Request.Context(), userID, sessionID, selfie)
	if err != nil {
		response.Error(c, err)
		return
	}

	next := nextRetry
	if result.Live {
		next = nextFaceMatch
	}
	response.Success(c, http.StatusOK, gin.H{
		"live":       result.Live,
		"confidence": result.Confidence,
		"attempts":   result.Attempts,
		"next":       next,
	})
}

// FaceMatch compares a selfie with the ID photo and completes KYC on a match
// POST /api/v1/kyc/face/match (multipart: session_id, selfie)
func (h *KycHandler) FaceMatch(c *gin.Context) {
	userID, sessionID, selfie, ok := h.faceInput(c)
	if !ok {
		return
	}

	result, err := h.kycUsecase.FaceMatch(c.Request.Context(), userID, sessionID, selfie)
	if err != nil {
		response.Error(c, err)
		return
	}

	next := nextRetry
	switch {
	case result.Status == entities.SessionCompleted:
		next = nextDone
	case result.Status == entities.SessionFailed:
		next = nextRestart
	}
	response.Success(c, http.StatusOK, gin.H{
		"verified":   result.Status == entities.SessionCompleted,
		"matched":    result.Matched,
		"confidence": result.Confidence,
		"threshold":  result.Threshold,
		"attempts":   result.Attempts,
		"status":     result.Status,
		"next":       next,
	})
}

// Reset abandons the current KYC attempt
// POST /api/v1/kyc/reset
func (h *KycHandler) Reset(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	if err := h.kycUsecase.Reset(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

// Status returns the caller's KYC progress
// GET /api/v1/kyc/status
func (h *KycHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	view, err := h.kycUsecase.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

func (h *KycHandler) faceInput(c *gin.Context) (uuid.UUID, uuid.UUID, []byte, bool) {
	sessionID, err := uuid.Parse(c.PostForm("session_id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("session_id is required"))
		return uuid.Nil, uuid.Nil, nil, false
	}

	selfie, err := readSelfie(c)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, uuid.Nil, nil, false
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return uuid.Nil, uuid.Nil, nil, false
	}
	return userID, sessionID, selfie, true
}

func startBody(result *entities.StartResult, next string) gin.H {
	body := gin.H{
		"session_id":   result.Session.ID,
		"status":       result.Session.Status,
		"method":       result.Session.Method,
		"expires_at":   result.Session.ExpiresAt,
		"already_sent": result.AlreadySent,
		"next":         next,
	}
	if result.RetryAfter > 0 {
		body["retry_after"] = result.RetryAfter
	}
	return body
}
