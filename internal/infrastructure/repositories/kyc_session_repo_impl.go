package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/infrastructure/models"
)

// PhotoSealer encrypts ID photos before they reach the database
type PhotoSealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// VerificationSessionRepositoryImpl implements VerificationSessionRepository
type VerificationSessionRepositoryImpl struct {
	db     *gorm.DB
	sealer PhotoSealer
}

func NewVerificationSessionRepository(db *gorm.DB, sealer PhotoSealer) *VerificationSessionRepositoryImpl {
	return &VerificationSessionRepositoryImpl{db: db, sealer: sealer}
}

func (r *VerificationSessionRepositoryImpl) Create(ctx context.Context, s *entities.VerificationSession) error {
	m, err := r.toModel(s)
	if err != nil {
		return err
	}
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *VerificationSessionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.VerificationSession, error) {
	return r.first(forRead(ctx, r.db).Where("id = ?", id))
}

func (r *VerificationSessionRepositoryImpl) GetActive(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationSession, error) {
	return r.first(forRead(ctx, r.db).
		Where("user_id = ? AND method = ? AND status IN ?", userID, string(method), statusStrings(entities.ActiveSessionStatuses)).
		Order("created_at DESC"))
}

func (r *VerificationSessionRepositoryImpl) GetLatest(ctx context.Context, userID uuid.UUID, method entities.VerificationMethod) (*entities.VerificationSession, error) {
	return r.first(forRead(ctx, r.db).
		Where("user_id = ? AND method = ?", userID, string(method)).
		Order("created_at DESC"))
}

func (r *VerificationSessionRepositoryImpl) ListResettable(ctx context.Context, userID uuid.UUID) ([]*entities.VerificationSession, error) {
	statuses := append(statusStrings(entities.ActiveSessionStatuses), string(entities.SessionFailed))
	var rows []models.KYCSession
	err := forRead(ctx, r.db).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*entities.VerificationSession, 0, len(rows))
	for i := range rows {
		s, err := r.toEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *VerificationSessionRepositoryImpl) Update(ctx context.Context, s *entities.VerificationSession) error {
	s.UpdatedAt = time.Now().UTC()
	m, err := r.toModel(s)
	if err != nil {
		return err
	}

	result := GetDB(ctx, r.db).Model(&models.KYCSession{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"status":               m.Status,
		"dedupe_hash":          m.DedupeHash,
		"vendor_client_id":     m.VendorClientID,
		"otp_attempts":         m.OTPAttempts,
		"liveness_attempts":    m.LivenessAttempts,
		"face_attempts":        m.FaceAttempts,
		"full_name":            m.FullName,
		"dob":                  m.DOB,
		"gender":               m.Gender,
		"ekyc_address_data":    m.AddressData,
		"name_match":           m.NameMatch,
		"name_match_score":     m.NameMatchScore,
		"dob_match":            m.DOBMatch,
		"gender_match":         m.GenderMatch,
		"id_photo":             m.IDPhoto,
		"vendor_reference_id":  m.VendorReferenceID,
		"vendor_uniqueness_id": m.VendorUniquenessID,
		"otp_sent_at":          m.OTPSentAt,
		"expires_at":           m.ExpiresAt,
		"cleared_at":           m.ClearedAt,
		"updated_at":           m.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *VerificationSessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Where("expires_at < ?", now.UTC()).Delete(&models.KYCSession{})
	return result.RowsAffected, result.Error
}

func (r *VerificationSessionRepositoryImpl) first(q *gorm.DB) (*entities.VerificationSession, error) {
	var m models.KYCSession
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m)
}

func (r *VerificationSessionRepositoryImpl) toModel(s *entities.VerificationSession) (*models.KYCSession, error) {
	sealed, err := r.sealer.Seal(s.IDPhoto)
	if err != nil {
		return nil, fmt.Errorf("seal id photo: %w", err)
	}

	var address datatypes.JSON
	if len(s.Address) > 0 {
		raw, err := json.Marshal(s.Address)
		if err != nil {
			return nil, err
		}
		address = datatypes.JSON(raw)
	}

	return &models.KYCSession{
		ID:                 s.ID,
		UserID:             s.UserID,
		Method:             string(s.Method),
		Status:             string(s.Status),
		DedupeHash:         s.DedupeHash,
		VendorClientID:     s.VendorClientID.Ptr(),
		OTPAttempts:        s.OTPAttempts,
		LivenessAttempts:   s.LivenessAttempts,
		FaceAttempts:       s.FaceAttempts,
		FullName:           s.FullName.Ptr(),
		DOB:                s.DOB.Ptr(),
		Gender:             s.Gender.Ptr(),
		AddressData:        address,
		NameMatch:          s.NameMatch.Ptr(),
		NameMatchScore:     s.NameMatchScore.Ptr(),
		DOBMatch:           s.DOBMatch.Ptr(),
		GenderMatch:        s.GenderMatch.Ptr(),
		IDPhoto:            sealed,
		VendorReferenceID:  s.VendorReferenceID.Ptr(),
		VendorUniquenessID: s.VendorUniquenessID.Ptr(),
		OTPSentAt:          utcPtr(s.OTPSentAt),
		ExpiresAt:          s.ExpiresAt.UTC(),
		ClearedAt:          utcPtr(s.ClearedAt),
		CreatedAt:          s.CreatedAt.UTC(),
		UpdatedAt:          s.UpdatedAt.UTC(),
	}, nil
}

func (r *VerificationSessionRepositoryImpl) toEntity(m *models.KYCSession) (*entities.VerificationSession, error) {
	photo, err := r.sealer.Open(m.IDPhoto)
	if err != nil {
		return nil, fmt.Errorf("open id photo: %w", err)
	}

	var address map[string]interface{}
	if len(m.AddressData) > 0 {
		if err := json.Unmarshal(m.AddressData, &address); err != nil {
			return nil, err
		}
	}

	return &entities.VerificationSession{
		ID:                 m.ID,
		UserID:             m.UserID,
		Method:             entities.VerificationMethod(m.Method),
		Status:             entities.SessionStatus(m.Status),
		DedupeHash:         m.DedupeHash,
		VendorClientID:     null.StringFromPtr(m.VendorClientID),
		OTPAttempts:        m.OTPAttempts,
		LivenessAttempts:   m.LivenessAttempts,
		FaceAttempts:       m.FaceAttempts,
		FullName:           null.StringFromPtr(m.FullName),
		DOB:                null.StringFromPtr(m.DOB),
		Gender:             null.StringFromPtr(m.Gender),
		Address:            address,
		NameMatch:          null.BoolFromPtr(m.NameMatch),
		NameMatchScore:     null.Float64FromPtr(m.NameMatchScore),
		DOBMatch:           null.BoolFromPtr(m.DOBMatch),
		GenderMatch:        null.BoolFromPtr(m.GenderMatch),
		IDPhoto:            photo,
		VendorReferenceID:  null.StringFromPtr(m.VendorReferenceID),
		VendorUniquenessID: null.StringFromPtr(m.VendorUniquenessID),
		OTPSentAt:          null.TimeFromPtr(m.OTPSentAt),
		ExpiresAt:          m.ExpiresAt,
		ClearedAt:          null.TimeFromPtr(m.ClearedAt),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}

func statusStrings(statuses []entities.SessionStatus) []string {
	out := make([]string, 0, len(statuses)+1)
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
