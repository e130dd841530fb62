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
)

// UserRepository implements user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var m models.User
	if err := forRead(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// UpdateNames overwrites the name parts
func (r *UserRepository) UpdateNames(ctx context.Context, id uuid.UUID, first, middle, last string) error {
	return r.update(ctx, id, map[string]interface{}{
		"first_name":  first,
		"middle_name": middle,
		"last_name":   last,
		"updated_at":  time.Now(),
	})
}

// UpdatePhoto overwrites the account photo
func (r *UserRepository) UpdatePhoto(ctx context.Context, id uuid.UUID, photo []byte) error {
	return r.update(ctx, id, map[string]interface{}{
		"photo":      photo,
		"updated_at": time.Now(),
	})
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := GetDB(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) toEntity(m *models.User) *entities.User {
	return &entities.User{
		ID:         m.ID,
		Username:   m.Username,
		FirstName:  m.FirstName,
		MiddleName: m.MiddleName,
		LastName:   m.LastName,
		Photo:      m.Photo,
		Role:       entities.UserRole(m.Role),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// WorkerProfileRepository implements operator profile operations
type WorkerProfileRepository struct {
	db *gorm.DB
}

// NewWorkerProfileRepository creates a new profile repository
func NewWorkerProfileRepository(db *gorm.DB) *WorkerProfileRepository {
	return &WorkerProfileRepository{db: db}
}

// GetByUserID gets the profile of a user
func (r *WorkerProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.WorkerProfile, error) {
	var m models.OperatorProfile
	if err := forRead(ctx, r.db).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Update writes every projected field of the profile
func (r *WorkerProfileRepository) Update(ctx context.Context, p *entities.WorkerProfile) error {
	p.UpdatedAt = time.Now()
	updates := map[string]interface{}{
		"profile_status":      string(p.ProfileStatus),
		"verification_method": string(p.VerificationMethod),
		"kyc_status":          string(p.KYCStatus),
		"kyc_fail_reason":     p.KYCFailReason.Ptr(),
		"kyc_verified_at":     p.KYCVerifiedAt.Ptr(),
		"dob":                 p.DOB.Ptr(),
		"gender":              p.Gender.Ptr(),
		"current_address":     p.CurrentAddress.Ptr(),
		"state":               p.State.Ptr(),
		"district":            p.District.Ptr(),
		"photo":               p.Photo,
		"updated_at":          p.UpdatedAt,
	}

	result := GetDB(ctx, r.db).Model(&models.OperatorProfile{}).Where("id = ?", p.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *WorkerProfileRepository) toEntity(m *models.OperatorProfile) *entities.WorkerProfile {
	return &entities.WorkerProfile{
		ID:                 m.ID,
		UserID:             m.UserID,
		ProfileStatus:      entities.ProfileStatus(m.ProfileStatus),
		VerificationMethod: entities.VerificationMethod(m.VerificationMethod),
		KYCStatus:          entities.ProfileKYCStatus(m.KYCStatus),
		KYCFailReason:      null.StringFromPtr(m.KYCFailReason),
		KYCVerifiedAt:      null.TimeFromPtr(m.KYCVerifiedAt),
		DOB:                null.StringFromPtr(m.DOB),
		Gender:             null.StringFromPtr(m.Gender),
		CurrentAddress:     null.StringFromPtr(m.CurrentAddress),
		State:              null.StringFromPtr(m.State),
		District:           null.StringFromPtr(m.District),
		Photo:              m.Photo,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
