package usecases

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/domain/repositories"
)

// DedupeIndex detects reuse of one government ID across accounts without
// storing the ID itself
type DedupeIndex struct {
	secret  []byte
	records repositories.VerificationRecordRepository
}

func NewDedupeIndex(secret string, records repositories.VerificationRecordRepository) *DedupeIndex {
	return &DedupeIndex{secret: []byte(secret), records: records}
}

// Hash returns hex(HMAC-SHA256(secret, trimmed idNumber))
func (d *DedupeIndex) Hash(idNumber string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(strings.TrimSpace(idNumber)))
	return hex.EncodeToString(mac.Sum(nil))
}

// EnsureUnclaimed fails with Conflict when hash is verified under another user
func (d *DedupeIndex) EnsureUnclaimed(ctx context.Context, hash string, userID uuid.UUID) error {
	taken, err := d.records.VerifiedByOtherUser(ctx, hash, userID)
	if err != nil {
		return domainerrors.InternalError(err)
	}
	if taken {
		return idAlreadyUsed()
	}
	return nil
}

func idAlreadyUsed() error {
	return domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeConflict, "This ID is already used for verification", domainerrors.ErrIDAlreadyVerified)
}
