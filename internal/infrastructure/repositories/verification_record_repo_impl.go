package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/infrastructure/models"
	"seqrview.backend/pkg/utils"
)

// VerificationRecordRepositoryImpl implements VerificationRecordRepository
type VerificationRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewVerificationRecordRepository(db *gorm.DB) *VerificationRecordRepositoryImpl {
	return &VerificationRecordRepositoryImpl{db: db}
}

func (r *VerificationRecordRepositoryImpl) GetOrCreate(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationRecord, error) {
	var m models.UserVerification
	err := forRead(ctx, r.db).Where("user_id = ? AND method = ?", userID, string(method)).First(&m).Error
	if err == nil {
		return r.toEntity(&m), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	m = models.UserVerification{
		ID:        utils.GenerateUUIDv7(),
		UserID:    userID,
		Method:    string(method),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := GetDB(ctx, r.db).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domainerrors.ErrConflict
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *VerificationRecordRepositoryImpl) Save(ctx context.Context, rec *entities.VerificationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	result := GetDB(ctx, r.db).Model(&models.UserVerification{}).Where("id = ?", rec.ID).Updates(map[string]interface{}{
		"dedupe_hash":           rec.DedupeHash,
		"verified":              rec.Verified,
		"verified_at":           utcPtr(rec.VerifiedAt),
		"name_match":            rec.NameMatch.Ptr(),
		"name_match_score":      rec.NameMatchScore.Ptr(),
		"dob_match":             rec.DOBMatch.Ptr(),
		"gender_match":          rec.GenderMatch.Ptr(),
		"liveness_pass":         rec.LivenessPass.Ptr(),
		"liveness_confidence":   rec.LivenessConfidence.Ptr(),
		"face_match_pass":       rec.FaceMatchPass.Ptr(),
		"face_match_confidence": rec.FaceMatchConfidence.Ptr(),
		"vendor_reference_id":   rec.VendorReferenceID.Ptr(),
		"vendor_uniqueness_id":  rec.VendorUniquenessID.Ptr(),
		"updated_at":            rec.UpdatedAt,
	})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *VerificationRecordRepositoryImpl) VerifiedByOtherUser(ctx context.Context, hash string, userID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&models.UserVerification{}).
		Where("dedupe_hash = ? AND verified = ? AND user_id <> ?", hash, true, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *VerificationRecordRepositoryImpl) toEntity(m *models.UserVerification) *entities.VerificationRecord {
	return &entities.VerificationRecord{
		ID:                  m.ID,
		UserID:              m.UserID,
		Method:              entities.VerificationMethod(m.Method),
		DedupeHash:          m.DedupeHash,
		Verified:            m.Verified,
		VerifiedAt:          null.TimeFromPtr(m.VerifiedAt),
		NameMatch:           null.BoolFromPtr(m.NameMatch),
		NameMatchScore:      null.Float64FromPtr(m.NameMatchScore),
		DOBMatch:            null.BoolFromPtr(m.DOBMatch),
		GenderMatch:         null.BoolFromPtr(m.GenderMatch),
		LivenessPass:        null.BoolFromPtr(m.LivenessPass),
		LivenessConfidence:  null.Float64FromPtr(m.LivenessConfidence),
		FaceMatchPass:       null.BoolFromPtr(m.FaceMatchPass),
		FaceMatchConfidence: null.Float64FromPtr(m.FaceMatchConfidence),
		VendorReferenceID:   null.StringFromPtr(m.VendorReferenceID),
		VendorUniquenessID:  null.StringFromPtr(m.VendorUniquenessID),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
