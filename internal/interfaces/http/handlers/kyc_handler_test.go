package handlers

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
)

type kycServiceStub struct {
	startAadhaarFn  func(ctx context.Context, userID uuid.UUID, idNumber string) (*entities.StartResult, error)
	resendFn        func(ctx context.Context, userID, sessionID uuid.UUID, idNumber string) (*entities.StartResult, error)
	submitOTPFn     func(ctx context.Context, userID, sessionID uuid.UUID, otp string) (*entities.VerificationSession, error)
	startDLFn       func(ctx context.Context, userID uuid.UUID, licenceNumber, dob string) (*entities.StartResult, error)
	verifyDetailsFn func(ctx context.Context, userID, sessionID uuid.UUID, declared *entities.DeclaredDetails) (*entities.VerificationSession, error)
	livenessFn      func(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.LivenessResult, error)
	faceMatchFn     func(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.FaceMatchResult, error)
	resetFn         func(ctx context.Context, userID uuid.UUID) error
	statusFn        func(ctx context.Context, userID uuid.UUID) (*entities.KYCStatusView, error)
}

func (s *kycServiceStub) StartAadhaar(ctx context.Context, userID uuid.UUID, idNumber string) (*entities.StartResult, error) {
	return s.startAadhaarFn(ctx, userID, idNumber)
}
func (s *kycServiceStub) ResendOTP(ctx context.Context, userID, sessionID uuid.UUID, idNumber string) (*entities.StartResult, error) {
	return s.resendFn(ctx, userID, sessionID, idNumber)
}
func (s *kycServiceStub) SubmitOTP(ctx context.Context, userID, sessionID uuid.UUID, otp string) (*entities.VerificationSession, error) {
	return s.submitOTPFn(ctx, userID, sessionID, otp)
}
func (s *kycServiceStub) StartDL(ctx context.Context, userID uuid.UUID, licenceNumber, dob string) (*entities.StartResult, error) {
	return s.startDLFn(ctx, userID, licenceNumber, dob)
}
func (s *kycServiceStub) VerifyDetails(ctx context.Context, userID, sessionID uuid.UUID, declared *entities.DeclaredDetails) (*entities.VerificationSession, error) {
	return s.verifyDetailsFn(ctx, userID, sessionID, declared)
}
func (s *kycServiceStub) Liveness(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.LivenessResult, error) {
	return s.livenessFn(ctx, userID, sessionID, selfie)
}
func (s *kycServiceStub) FaceMatch(ctx context.Context, userID, sessionID uuid.UUID, selfie []byte) (*entities.FaceMatchResult, error) {
	return s.faceMatchFn(ctx, userID, sessionID, selfie)
}
func (s *kycServiceStub) Reset(ctx context.Context, userID uuid.UUID) error {
	return s.resetFn(ctx, userID)
}
func (s *kycServiceStub) Status(ctx context.Context, userID uuid.UUID) (*entities.KYCStatusView, error) {
	return s.statusFn(ctx, userID)
}

func newKycRouter(stub *kycServiceStub, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &KycHandler{kycUsecase: stub}
	r := gin.New()
	r.Use(withUser(userID, entities.UserRoleOperator))
	r.POST("/kyc/aadhaar/start", h.StartAadhaar)
	r.POST("/kyc/aadhaar/resend", h.ResendOTP)
	r.POST("/kyc/aadhaar/submit-otp", h.SubmitOTP)
	r.POST("/kyc/aadhaar/verify-details", h.VerifyDetails)
	r.POST("/kyc/dl/start", h.StartDL)
	r.POST("/kyc/face/liveness", h.Liveness)
	r.POST("/kyc/face/match", h.FaceMatch)
	r.POST("/kyc/reset", h.Reset)
	r.GET("/kyc/status", h.Status)
	return r
}

func TestKycHandler_StartAadhaar(t *testing.T) {
	userID := uuid.New()
	session := &entities.VerificationSession{ID: uuid.New(), Method: entities.MethodAadhaar, Status: entities.SessionOTPSent, ExpiresAt: time.Now().Add(15 * time.Minute)}
	stub := &kycServiceStub{
		startAadhaarFn: func(_ context.Context, gotUser uuid.UUID, idNumber string) (*entities.StartResult, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, "123412341234", idNumber)
			return &entities.StartResult{Session: session, AlreadySent: true, RetryAfter: 42}, nil
		},
	}

	rec := serve(newKycRouter(stub, userID), jsonRequest(t, http.MethodPost, "/kyc/aadhaar/start", gin.H{"aadhaar_number": "123412341234"}))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, session.ID.String(), body["session_id"])
	assert.Equal(t, "OTP_SENT", body["status"])
	assert.Equal(t, true, body["already_sent"])
	assert.Equal(t, float64(42), body["retry_after"])
	assert.Equal(t, nextSubmitOTP, body["next"])
}

func TestKycHandler_StartAadhaar_Errors(t *testing.T) {
	stub := &kycServiceStub{
		startAadhaarFn: func(context.Context, uuid.UUID, string) (*entities.StartResult, error) {
			return nil, domainerrors.RateLimited("Rate limited by verification provider", 60)
		},
	}
	r := newKycRouter(stub, uuid.New())

	rec := serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/start", gin.H{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/start", gin.H{"aadhaar_number": "123412341234"}))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, rec)["code"])
}

func TestKycHandler_Unauthenticated(t *testing.T) {
	stub := &kycServiceStub{}
	rec := serve(newKycRouter(stub, uuid.Nil), jsonRequest(t, http.MethodPost, "/kyc/aadhaar/start", gin.H{"aadhaar_number": "123412341234"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(newKycRouter(stub, uuid.Nil), jsonRequest(t, http.MethodGet, "/kyc/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestKycHandler_ResendAndSubmit(t *testing.T) {
	userID, sessionID := uuid.New(), uuid.New()
	session := &entities.VerificationSession{ID: sessionID, Method: entities.MethodAadhaar, Status: entities.SessionOTPVerified}
	stub := &kycServiceStub{
		resendFn: func(_ context.Context, _ uuid.UUID, gotSession uuid.UUID, _ string) (*entities.StartResult, error) {
			assert.Equal(t, sessionID, gotSession)
			return &entities.StartResult{Session: &entities.VerificationSession{ID: sessionID, Status: entities.SessionOTPSent}}, nil
		},
		submitOTPFn: func(_ context.Context, _ uuid.UUID, gotSession uuid.UUID, otp string) (*entities.VerificationSession, error) {
			assert.Equal(t, sessionID, gotSession)
			assert.Equal(t, "123456", otp)
			return session, nil
		},
	}
	r := newKycRouter(stub, userID)

	rec := serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/resend", gin.H{"session_id": sessionID.String(), "aadhaar_number": "123412341234"}))
	require.Equal(t, http.StatusOK, rec.Code)
	_, hasRetry := decodeBody(t, rec)["retry_after"]
	assert.False(t, hasRetry)

	rec = serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/submit-otp", gin.H{"session_id": sessionID.String(), "otp": "123456"}))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, nextVerifyDetails, body["next"])
	assert.Equal(t, "OTP_VERIFIED", body["session"].(map[string]interface{})["status"])

	rec = serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/submit-otp", gin.H{"session_id": "not-a-uuid", "otp": "123456"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKycHandler_SubmitOTP_RestartRequired(t *testing.T) {
	stub := &kycServiceStub{
		submitOTPFn: func(context.Context, uuid.UUID, uuid.UUID, string) (*entities.VerificationSession, error) {
			return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeRestartRequired, "OTP attempts exceeded", domainerrors.ErrRestartRequired)
		},
	}
	rec := serve(newKycRouter(stub, uuid.New()), jsonRequest(t, http.MethodPost, "/kyc/aadhaar/submit-otp", gin.H{"session_id": uuid.NewString(), "otp": "1234"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "RESTART_REQUIRED", decodeBody(t, rec)["code"])
}

func TestKycHandler_StartDL(t *testing.T) {
	stub := &kycServiceStub{
		startDLFn: func(_ context.Context, _ uuid.UUID, licence, dob string) (*entities.StartResult, error) {
			assert.Equal(t, "MH1220190001234", licence)
			assert.Equal(t, "1990-01-01", dob)
			return &entities.StartResult{Session: &entities.VerificationSession{ID: uuid.New(), Method: entities.MethodDL, Status: entities.SessionDLVerified}}, nil
		},
	}
	r := newKycRouter(stub, uuid.New())

	rec := serve(r, jsonRequest(t, http.MethodPost, "/kyc/dl/start", gin.H{"license_number": "MH1220190001234", "dob": "1990-01-01"}))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "DL_VERIFIED", body["status"])
	assert.Equal(t, nextVerifyDetails, body["next"])

	rec = serve(r, jsonRequest(t, http.MethodPost, "/kyc/dl/start", gin.H{"license_number": "MH1220190001234"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKycHandler_VerifyDetails(t *testing.T) {
	sessionID := uuid.New()
	stub := &kycServiceStub{
		verifyDetailsFn: func(_ context.Context, _ uuid.UUID, gotSession uuid.UUID, declared *entities.DeclaredDetails) (*entities.VerificationSession, error) {
			assert.Equal(t, sessionID, gotSession)
			assert.Equal(t, "Ravi", declared.FirstName)
			assert.Equal(t, "Pune", declared.District)
			return &entities.VerificationSession{ID: sessionID, Status: entities.SessionDetailsVerified}, nil
		},
	}
	r := newKycRouter(stub, uuid.New())

	rec := serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/verify-details", gin.H{
		"session_id": sessionID.String(),
		"first_name": "Ravi",
		"last_name":  "Kumar",
		"dob":        "1990-01-01",
		"gender":     "M",
		"district":   "Pune",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nextFaceLiveness, decodeBody(t, rec)["next"])

	rec = serve(r, jsonRequest(t, http.MethodPost, "/kyc/aadhaar/verify-details", gin.H{
		"session_id": sessionID.String(),
		"first_name": "Ravi",
		"dob":        "01/01/1990",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKycHandler_VerifyDetails_Mismatch(t *testing.T) {
	stub := &kycServiceStub{
		verifyDetailsFn: func(context.Context, uuid.UUID, uuid.UUID, *entities.DeclaredDetails) (*entities.VerificationSession, error) {
			e := domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeDetailsMismatch, "Details do not match Aadhaar. Please verify and try again.", domainerrors.ErrDetailsMismatch)
			return nil, e.WithDetail("mismatches", map[string]bool{"name": true})
		},
	}
	rec := serve(newKycRouter(stub, uuid.New()), jsonRequest(t, http.MethodPost, "/kyc/aadhaar/verify-details", gin.H{
		"session_id": uuid.NewString(),
		"first_name": "Someone",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "DETAILS_MISMATCH", body["code"])
	assert.Equal(t, true, body["details"].(map[string]interface{})["mismatches"].(map[string]interface{})["name"])
}

func TestKycHandler_Liveness(t *testing.T) {
	sessionID := uuid.New()
	selfie := bytes.Repeat([]byte{0xff}, 64)
	live := true
	stub := &kycServiceStub{
		livenessFn: func(_ context.Context, _ uuid.UUID, gotSession uuid.UUID, got []byte) (*entities.LivenessResult, error) {
			assert.Equal(t, sessionID, gotSession)
			assert.Equal(t, selfie, got)
			return &entities.LivenessResult{Live: live, Confidence: 0.93, Attempts: 1}, nil
		},
	}
	r := newKycRouter(stub, uuid.New())

	rec := serve(r, multipartRequest(t, "/kyc/face/liveness", map[string]string{"session_id": sessionID.String()}, selfie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nextFaceMatch, decodeBody(t, rec)["next"])

	live = false
	rec = serve(r, multipartRequest(t, "/kyc/face/liveness", map[string]string{"session_id": sessionID.String()}, selfie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nextRetry, decodeBody(t, rec)["next"])

	rec = serve(r, multipartRequest(t, "/kyc/face/liveness", map[string]string{}, selfie))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKycHandler_Liveness_MissingSelfiePassesNil(t *testing.T) {
	stub := &kycServiceStub{
		livenessFn: func(_ context.Context, _ uuid.UUID, _ uuid.UUID, got []byte) (*entities.LivenessResult, error) {
			assert.Nil(t, got)
			return nil, domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidInput, "selfie file required", domainerrors.ErrSelfieRequired)
		},
	}
	rec := serve(newKycRouter(stub, uuid.New()), multipartRequest(t, "/kyc/face/liveness", map[string]string{"session_id": uuid.NewString()}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKycHandler_Liveness_OversizedSelfie(t *testing.T) {
	stub := &kycServiceStub{}
	big := make([]byte, maxSelfieBytes+1)
	rec := serve(newKycRouter(stub, uuid.New()), multipartRequest(t, "/kyc/face/liveness", map[string]string{"session_id": uuid.NewString()}, big))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKycHandler_FaceMatch(t *testing.T) {
	tests := []struct {
		name     string
		result   *entities.FaceMatchResult
		verified bool
		next     string
	}{
		{"completed", &entities.FaceMatchResult{Matched: true, Confidence: 0.91, Threshold: 0.6, Attempts: 1, Status: entities.SessionCompleted}, true, nextDone},
		{"retry", &entities.FaceMatchResult{Matched: false, Confidence: 0.2, Threshold: 0.6, Attempts: 1, Status: entities.SessionDetailsVerified}, false, nextRetry},
		{"exhausted", &entities.FaceMatchResult{Matched: false, Confidence: 0.2, Threshold: 0.6, Attempts: 3, Status: entities.SessionFailed}, false, nextRestart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &kycServiceStub{
				faceMatchFn: func(context.Context, uuid.UUID, uuid.UUID, []byte) (*entities.FaceMatchResult, error) {
					return tt.result, nil
				},
			}
			rec := serve(newKycRouter(stub, uuid.New()), multipartRequest(t, "/kyc/face/match", map[string]string{"session_id": uuid.NewString()}, []byte("jpeg")))
			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.verified, body["verified"])
			assert.Equal(t, tt.next, body["next"])
			assert.Equal(t, string(tt.result.Status), body["status"])
		})
	}
}

func TestKycHandler_FaceMatch_Conflict(t *testing.T) {
	stub := &kycServiceStub{
		faceMatchFn: func(context.Context, uuid.UUID, uuid.UUID, []byte) (*entities.FaceMatchResult, error) {
			return nil, domainerrors.Conflict("This ID is already used for verification")
		},
	}
	rec := serve(newKycRouter(stub, uuid.New()), multipartRequest(t, "/kyc/face/match", map[string]string{"session_id": uuid.NewString()}, []byte("jpeg")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestKycHandler_ResetAndStatus(t *testing.T) {
	userID := uuid.New()
	stub := &kycServiceStub{
		resetFn: func(_ context.Context, got uuid.UUID) error {
			assert.Equal(t, userID, got)
			return nil
		},
		statusFn: func(context.Context, uuid.UUID) (*entities.KYCStatusView, error) {
			return &entities.KYCStatusView{
				Profile: &entities.WorkerProfile{KYCStatus: entities.KYCFacePending},
				Sessions: map[entities.VerificationMethod]*entities.VerificationSession{
					entities.MethodAadhaar: {ID: uuid.New(), Status: entities.SessionDetailsVerified, IDPhoto: []byte("secret")},
				},
			}, nil
		},
	}
	r := newKycRouter(stub, userID)

	rec := serve(r, jsonRequest(t, http.MethodPost, "/kyc/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["reset"])

	rec = serve(r, jsonRequest(t, http.MethodGet, "/kyc/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "c2VjcmV0")
	sessions := decodeBody(t, rec)["sessions"].(map[string]interface{})
	assert.Equal(t, "DETAILS_VERIFIED", sessions["AADHAAR"].(map[string]interface{})["status"])
}

func TestKycHandler_ResetError(t *testing.T) {
	stub := &kycServiceStub{
		resetFn: func(context.Context, uuid.UUID) error { return assert.AnError },
	}
	rec := serve(newKycRouter(stub, uuid.New()), jsonRequest(t, http.MethodPost, "/kyc/reset", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
