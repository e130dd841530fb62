package usecases

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/infrastructure/surepass"
)

func TestVendorFailure_Classification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		retryAfter int
		wantStatus int
		wantIs     error
	}{
		{"rate limited", &surepass.Error{Kind: surepass.KindRateLimited}, 60, http.StatusTooManyRequests, domainerrors.ErrRateLimited},
		{"bad request", &surepass.Error{Kind: surepass.KindBadRequest, Message: "Invalid OTP"}, 0, http.StatusBadRequest, domainerrors.ErrBadRequest},
		{"unauthorized", &surepass.Error{Kind: surepass.KindUnauthorized}, 0, http.StatusBadGateway, domainerrors.ErrVendorFailure},
		{"unavailable", &surepass.Error{Kind: surepass.KindUnavailable}, 0, http.StatusBadGateway, domainerrors.ErrVendorFailure},
		{"unknown", &surepass.Error{Kind: surepass.KindUnknown}, 0, http.StatusBadGateway, domainerrors.ErrVendorFailure},
		{"untyped", errors.New("boom"), 0, http.StatusBadGateway, domainerrors.ErrVendorFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vendorFailure(tt.err, tt.retryAfter)
			appErr, ok := domainerrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, appErr.Status)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestVendorFailure_RetryAfterAndMessage(t *testing.T) {
	err := vendorFailure(&surepass.Error{Kind: surepass.KindRateLimited}, 45)
	appErr, _ := domainerrors.AsAppError(err)
	assert.Equal(t, 45, appErr.Details["retry_after"])

	err = vendorFailure(&surepass.Error{Kind: surepass.KindBadRequest, Message: "Invalid OTP"}, 0)
	appErr, _ = domainerrors.AsAppError(err)
	assert.Equal(t, "Invalid OTP", appErr.Message)
}

func TestAfterCommit(t *testing.T) {
	assert.NoError(t, afterCommit(nil))

	cause := sessionExpired()
	wrapped := afterCommit(cause)
	var ce *committedError
	require.True(t, errors.As(wrapped, &ce))
	assert.Same(t, cause, ce.err)
	assert.Equal(t, cause.Error(), wrapped.Error())
}

func TestIsDigits(t *testing.T) {
	assert.True(t, isDigits("0123456789"))
	assert.False(t, isDigits(""))
	assert.False(t, isDigits("12 3"))
	assert.False(t, isDigits("١٢٣"))
}
