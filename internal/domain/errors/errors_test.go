package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Constructors(t *testing.T) {
	err := NewAppError(http.StatusBadRequest, CodeBadRequest, "bad", ErrBadRequest)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, CodeBadRequest, err.Code)
	assert.Equal(t, "bad", err.Message)
	assert.Equal(t, ErrBadRequest.Error(), err.Error())

	notFound := NotFound("missing")
	assert.Equal(t, http.StatusNotFound, notFound.Status)
	assert.Equal(t, CodeNotFound, notFound.Code)

	conflict := Conflict("exists")
	assert.Equal(t, http.StatusConflict, conflict.Status)
	assert.Equal(t, CodeConflict, conflict.Code)

	internal := InternalError(stderrors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, CodeInternalError, internal.Code)

	badReq := BadRequest("bad request")
	assert.Equal(t, http.StatusBadRequest, badReq.Status)
	assert.Equal(t, CodeInvalidInput, badReq.Code)

	unauth := Unauthorized("unauthorized")
	assert.Equal(t, http.StatusUnauthorized, unauth.Status)
	assert.Equal(t, CodeUnauthorized, unauth.Code)

	forbidden := Forbidden("forbidden")
	assert.Equal(t, http.StatusForbidden, forbidden.Status)
	assert.Equal(t, CodeForbidden, forbidden.Code)

	internalMsg := InternalServerError("boom")
	assert.Equal(t, http.StatusInternalServerError, internalMsg.Status)
	assert.Equal(t, "boom", internalMsg.Message)
	assert.Equal(t, "boom", internalMsg.Error())
}

func TestRateLimited_RetryAfterDetail(t *testing.T) {
	err := RateLimited("slow down", 42)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
	assert.Equal(t, CodeRateLimited, err.Code)
	assert.Equal(t, 42, err.Details["retry_after"])
	assert.ErrorIs(t, err, ErrRateLimited)

	noWait := RateLimited("attempts exceeded", 0)
	assert.Nil(t, noWait.Details)
}

func TestVendorUnavailable_DefaultsCause(t *testing.T) {
	err := VendorUnavailable("vendor down", nil)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.ErrorIs(t, err, ErrVendorFailure)

	cause := stderrors.New("dial tcp: timeout")
	wrapped := VendorUnavailable("vendor down", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestAsAppError_UnwrapsChain(t *testing.T) {
	base := Conflict("taken")
	wrapped := fmt.Errorf("start: %w", base)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
	assert.ErrorIs(t, wrapped, ErrConflict)

	_, ok = AsAppError(stderrors.New("plain"))
	assert.False(t, ok)
}
