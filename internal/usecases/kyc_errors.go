package usecases

import (
	"fmt"
	"net/http"
	"strings"

	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
)

func sessionExpired() *domainerrors.AppError {
	return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeSessionExpired, "Session expired", domainerrors.ErrSessionExpired)
}

func restartRequired(message string) *domainerrors.AppError {
	return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeRestartRequired, message, domainerrors.ErrRestartRequired)
}

func invalidTransition(status entities.SessionStatus) *domainerrors.AppError {
	return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidTransition,
		fmt.Sprintf("Invalid state: %s", status), domainerrors.ErrInvalidTransition)
}

func otpExpired() *domainerrors.AppError {
	return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeOTPExpired, "OTP expired, please resend", domainerrors.ErrOTPExpired)
}

func faceVerificationFailed(message string, err error) *domainerrors.AppError {
	if err == nil {
		err = domainerrors.ErrFaceVerification
	} else {
		err = fmt.Errorf("%w: %w", domainerrors.ErrFaceVerification, err)
	}
	return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeFaceVerification, message, err)
}

// DetailsMismatchError lists the declared fields that disagree with the ID
// document. It unwraps to ErrDetailsMismatch.
type DetailsMismatchError struct {
	Fields         []string
	NameMatchScore float64
}

func (e *DetailsMismatchError) Error() string {
	return "details mismatch: " + strings.Join(e.Fields, ", ")
}

func (e *DetailsMismatchError) Unwrap() error {
	return domainerrors.ErrDetailsMismatch
}

func detailsMismatch(fields []string, score float64, method entities.VerificationMethod) *domainerrors.AppError {
	doc := "Aadhaar"
	if method == entities.MethodDL {
		doc = "Driving License"
	}
	mismatches := make(map[string]bool, len(fields))
	for _, f := range fields {
		mismatches[f] = true
	}
	e := domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeDetailsMismatch,
		fmt.Sprintf("Details do not match %s. Please verify and try again.", doc),
		&DetailsMismatchError{Fields: fields, NameMatchScore: score})
	return e.WithDetail("mismatches", mismatches).WithDetail("name_match_score", score)
}
