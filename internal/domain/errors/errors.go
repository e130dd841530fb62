package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrRateLimited   = errors.New("rate limited")
	ErrVendorFailure = errors.New("verification vendor unavailable")
	ErrInternal      = errors.New("internal error")

	// KYC session
	ErrSessionExpired    = errors.New("kyc session expired")
	ErrRestartRequired   = errors.New("kyc session must be restarted")
	ErrInvalidTransition = errors.New("operation not allowed in current session status")
	ErrOTPExpired        = errors.New("otp expired")
	ErrDetailsMismatch   = errors.New("declared details do not match")
	ErrIDAlreadyVerified = errors.New("id already verified for another account")
	ErrIDPhotoMissing    = errors.New("id photo not available")

	// Attendance
	ErrOutsideTimeWindow = errors.New("outside attendance time window")
	ErrShiftLocked       = errors.New("shift is locked")
	ErrFaceVerification  = errors.New("face verification failed")
	ErrSelfieRequired    = errors.New("selfie required")
	ErrProfilePhotoEmpty = errors.New("profile photo not available")
)

// Error codes rendered to clients
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeInvalidInput      = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeRateLimited       = "RATE_LIMITED"
	CodeVendorUnavailable = "VENDOR_UNAVAILABLE"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeRestartRequired   = "RESTART_REQUIRED"
	CodeInvalidTransition = "INVALID_SESSION_STATUS"
	CodeOTPExpired        = "OTP_EXPIRED"
	CodeDetailsMismatch   = "DETAILS_MISMATCH"
	CodeOutsideTimeWindow = "OUTSIDE_TIME_WINDOW"
	CodeShiftLocked       = "SHIFT_LOCKED"
	CodeFaceVerification  = "FACE_VERIFICATION_FAILED"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a client-visible detail (e.g. retry_after)
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrBadRequest)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrConflict)
}

func RateLimited(message string, retryAfterSeconds int) *AppError {
	e := NewAppError(http.StatusTooManyRequests, CodeRateLimited, message, ErrRateLimited)
	if retryAfterSeconds > 0 {
		e.WithDetail("retry_after", retryAfterSeconds)
	}
	return e
}

func VendorUnavailable(message string, err error) *AppError {
	if err == nil {
		err = ErrVendorFailure
	}
	return NewAppError(http.StatusBadGateway, CodeVendorUnavailable, message, err)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

func InternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, message, nil)
}

// AsAppError extracts an AppError from the chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
