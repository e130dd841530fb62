package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/infrastructure/models"
)

// AttendanceRepositoryImpl implements AttendanceRepository
type AttendanceRepositoryImpl struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) *AttendanceRepositoryImpl {
	return &AttendanceRepositoryImpl{db: db}
}

const dutySelect = `a.id AS assignment_id, a.operator_id, a.status,
	s.id AS shift_id, s.work_date, s.start_time, s.end_time,
	e.id AS exam_id, e.geofencing_enabled, e.selfie_required,
	ec.latitude AS ec_latitude, ec.longitude AS ec_longitude, ec.geofence_radius_meters AS ec_radius,
	cm.latitude AS cm_latitude, cm.longitude AS cm_longitude, cm.geofence_radius_meters AS cm_radius`

func (r *AttendanceRepositoryImpl) GetDutyContext(ctx context.Context, assignmentID uuid.UUID) (*entities.DutyContext, error) {
	var row models.DutyRow
	result := GetDB(ctx, r.db).Table("operator_assignments AS a").
		Select(dutySelect).
		Joins("JOIN shift_centers sc ON sc.id = a.shift_center_id").
		Joins("JOIN shifts s ON s.id = sc.shift_id").
		Joins("JOIN exams e ON e.id = s.exam_id").
		Joins("LEFT JOIN exam_centers ec ON ec.id = sc.exam_center_id").
		Joins("LEFT JOIN center_masters cm ON cm.id = ec.master_center_id").
		Where("a.id = ?", assignmentID).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.ErrNotFound
	}

	return &entities.DutyContext{
		AssignmentID:      row.AssignmentID,
		OperatorID:        row.OperatorID,
		Status:            entities.AssignmentStatus(row.Status),
		ShiftID:           row.ShiftID,
		WorkDate:          row.WorkDate,
		StartTime:         row.StartTime,
		EndTime:           row.EndTime,
		ExamID:            row.ExamID,
		GeofencingEnabled: row.GeofencingEnabled,
		SelfieRequired:    row.SelfieRequired,
		ExamCenter:        toCenter(row.EcLatitude, row.EcLongitude, row.EcRadius),
		MasterCenter:      toCenter(row.CmLatitude, row.CmLongitude, row.CmRadius),
	}, nil
}

func toCenter(lat, lng *float64, radius *int64) *entities.CenterLocation {
	if lat == nil && lng == nil && radius == nil {
		return nil
	}
	c := &entities.CenterLocation{
		Latitude:  null.Float64FromPtr(lat),
		Longitude: null.Float64FromPtr(lng),
	}
	if radius != nil {
		c.RadiusMeters = null.IntFrom(int(*radius))
	}
	return c
}

func (r *AttendanceRepositoryImpl) Create(ctx context.Context, e *entities.AttendanceEvent) error {
	m := &models.AttendanceLog{
		ID:                 e.ID,
		AssignmentID:       e.AssignmentID,
		ActivityType:       string(e.Activity),
		Timestamp:          e.Timestamp.UTC(),
		Latitude:           e.Latitude,
		Longitude:          e.Longitude,
		DistanceFromCenter: e.DistanceFromCenter,
		IsVerified:         e.Verified,
		SelfieRef:          e.SelfieRef.Ptr(),
		CreatedAt:          e.CreatedAt.UTC(),
	}
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *AttendanceRepositoryImpl) UpdateAssignmentStatus(ctx context.Context, assignmentID uuid.UUID, status entities.AssignmentStatus, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}
	if completedAt != nil {
		updates["completed_at"] = completedAt.UTC()
	}

	result := GetDB(ctx, r.db).Model(&models.OperatorAssignment{}).Where("id = ?", assignmentID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *AttendanceRepositoryImpl) List(ctx context.Context, operatorID *uuid.UUID, limit, offset int) ([]*entities.AttendanceEvent, int64, error) {
	scoped := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&models.AttendanceLog{})
		if operatorID != nil {
			q = q.Where("assignment_id IN (?)",
				GetDB(ctx, r.db).Model(&models.OperatorAssignment{}).Select("id").Where("operator_id = ?", *operatorID))
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := scoped().Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var ms []models.AttendanceLog
	if err := q.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	events := make([]*entities.AttendanceEvent, 0, len(ms))
	for i := range ms {
		m := &ms[i]
		events = append(events, &entities.AttendanceEvent{
			ID:                 m.ID,
			AssignmentID:       m.AssignmentID,
			Activity:           entities.ActivityType(m.ActivityType),
			Timestamp:          m.Timestamp,
			Latitude:           m.Latitude,
			Longitude:          m.Longitude,
			DistanceFromCenter: m.DistanceFromCenter,
			Verified:           m.IsVerified,
			SelfieRef:          null.StringFromPtr(m.SelfieRef),
			CreatedAt:          m.CreatedAt,
		})
	}
	return events, total, nil
}
