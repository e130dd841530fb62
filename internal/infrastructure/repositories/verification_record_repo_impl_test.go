package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
)

func TestVerificationRecordRepository_GetOrCreateIsStable(t *testing.T) {
	db := newTestDB(t)
	createKYCTables(t, db)
	repo := NewVerificationRecordRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.GetOrCreate(ctx, userID, entities.MethodAadhaar)
	require.NoError(t, err)
	require.False(t, first.Verified)

	second, err := repo.GetOrCreate(ctx, userID, entities.MethodAadhaar)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	other, err := repo.GetOrCreate(ctx, userID, entities.MethodDL)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestVerificationRecordRepository_SaveAndDedupe(t *testing.T) {
	db := newTestDB(t)
	createKYCTables(t, db)
	repo := NewVerificationRecordRepository(db)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	rec, err := repo.GetOrCreate(ctx, alice, entities.MethodAadhaar)
	require.NoError(t, err)
	rec.DedupeHash = "h1"
	rec.Verified = true
	rec.VerifiedAt = null.TimeFrom(time.Now())
	rec.FaceMatchPass = null.BoolFrom(true)
	rec.FaceMatchConfidence = null.Float64From(0.91)
	require.NoError(t, repo.Save(ctx, rec))

	taken, err := repo.VerifiedByOtherUser(ctx, "h1", bob)
	require.NoError(t, err)
	require.True(t, taken)

	own, err := repo.VerifiedByOtherUser(ctx, "h1", alice)
	require.NoError(t, err)
	require.False(t, own)

	// a second account verifying the same hash loses
	bobRec, err := repo.GetOrCreate(ctx, bob, entities.MethodAadhaar)
	require.NoError(t, err)
	bobRec.DedupeHash = "h1"
	bobRec.LivenessPass = null.BoolFrom(true)
	require.NoError(t, repo.Save(ctx, bobRec), "unverified copies of a hash are allowed")

	bobRec.Verified = true
	require.ErrorIs(t, repo.Save(ctx, bobRec), domainerrors.ErrAlreadyExists)

	reloaded, err := repo.GetOrCreate(ctx, alice, entities.MethodAadhaar)
	require.NoError(t, err)
	require.True(t, reloaded.Verified)
	require.InDelta(t, 0.91, reloaded.FaceMatchConfidence.Float64, 1e-9)
}

func TestVerificationRecordRepository_SaveMissing(t *testing.T) {
	db := newTestDB(t)
	createKYCTables(t, db)
	repo := NewVerificationRecordRepository(db)

	err := repo.Save(context.Background(), &entities.VerificationRecord{ID: uuid.New()})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
