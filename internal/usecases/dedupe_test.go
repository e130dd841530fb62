package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/usecases"
)

func TestDedupeIndex_Hash(t *testing.T) {
	idx := usecases.NewDedupeIndex("secret-a", nil)

	h := idx.Hash("123412341234")
	assert.Len(t, h, 64)
	assert.Equal(t, h, idx.Hash("  123412341234\n"))
	assert.NotEqual(t, h, idx.Hash("123412341235"))
	assert.NotEqual(t, h, usecases.NewDedupeIndex("secret-b", nil).Hash("123412341234"))
	assert.NotContains(t, h, "123412341234")
}

func TestDedupeIndex_EnsureUnclaimed(t *testing.T) {
	records := new(MockRecordRepository)
	idx := usecases.NewDedupeIndex("secret", records)
	userID := uuid.New()

	records.On("VerifiedByOtherUser", context.Background(), "free", userID).Return(false, nil).Once()
	records.On("VerifiedByOtherUser", context.Background(), "taken", userID).Return(true, nil).Once()
	records.On("VerifiedByOtherUser", context.Background(), "broken", userID).Return(false, errors.New("db down")).Once()

	assert.NoError(t, idx.EnsureUnclaimed(context.Background(), "free", userID))

	err := idx.EnsureUnclaimed(context.Background(), "taken", userID)
	assert.ErrorIs(t, err, domainerrors.ErrIDAlreadyVerified)
	appErr, ok := domainerrors.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, domainerrors.CodeConflict, appErr.Code)

	err = idx.EnsureUnclaimed(context.Background(), "broken", userID)
	appErr, ok = domainerrors.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, domainerrors.CodeInternalError, appErr.Code)
	records.AssertExpectations(t)
}
