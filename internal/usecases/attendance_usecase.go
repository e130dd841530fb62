package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"seqrview.backend/internal/config"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/domain/repositories"
	"seqrview.backend/internal/infrastructure/metrics"
	"seqrview.backend/pkg/geo"
	"seqrview.backend/pkg/logger"
	"seqrview.backend/pkg/utils"
)

// AttendanceUsecase validates and records check-in and check-out punches
type AttendanceUsecase struct {
	uow           repositories.UnitOfWork
	attendance    repositories.AttendanceRepository
	profiles      repositories.WorkerProfileRepository
	gate          *FaceGate
	window        *TimeWindowPolicy
	events        EventEmitter
	metrics       *metrics.Metrics
	defaultRadius int
	now           func() time.Time
}

func NewAttendanceUsecase(
	uow repositories.UnitOfWork,
	attendance repositories.AttendanceRepository,
	profiles repositories.WorkerProfileRepository,
	gate *FaceGate,
	window *TimeWindowPolicy,
	events EventEmitter,
	m *metrics.Metrics,
	cfg config.VerificationConfig,
) *AttendanceUsecase {
	radius := cfg.DefaultGeofenceRadiusMeters
	if radius <= 0 {
		radius = 200
	}
	return &AttendanceUsecase{
		uow:           uow,
		attendance:    attendance,
		profiles:      profiles,
		gate:          gate,
		window:        window,
		events:        events,
		metrics:       m,
		defaultRadius: radius,
		now:           time.Now,
	}
}

// SetClock overrides the time source
func (u *AttendanceUsecase) SetClock(now func() time.Time) {
	u.now = now
}

// RecordEvent checks the punch against the center geofence, the shift window
// and, for a selfie-mandated check-in, the worker's face. Rejected punches
// are not stored.
func (u *AttendanceUsecase) RecordEvent(ctx context.Context, userID uuid.UUID, in entities.RecordAttendanceInput) (*entities.AttendanceEvent, error) {
	if !in.Activity.Valid() {
		return nil, domainerrors.BadRequest("activity_type must be CHECK_IN or CHECK_OUT")
	}
	if !validCoordinates(in.Latitude, in.Longitude) {
		return nil, domainerrors.BadRequest("latitude and longitude are out of range")
	}

	duty, err := u.attendance.GetDutyContext(ctx, in.AssignmentID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("Assignment not found")
		}
		return nil, domainerrors.InternalError(err)
	}
	if duty.OperatorID != userID {
		return nil, domainerrors.NotFound("Assignment not found")
	}

	center, radius := u.resolveCenter(duty)
	distance, inside := geo.Within(center, geo.Point{Lat: in.Latitude, Lng: in.Longitude}, radius)
	verified := inside || !duty.GeofencingEnabled

	now := u.now()
	if err := u.window.Check(ctx, duty, in.Activity, now); err != nil {
		return nil, err
	}

	var selfieRef null.String
	if in.Activity == entities.ActivityCheckIn && duty.SelfieRequired {
		ref, err := u.verifySelfie(ctx, userID, in.Selfie)
		if err != nil {
			return nil, err
		}
		selfieRef = null.StringFrom(ref)
	}

	event := &entities.AttendanceEvent{
		ID:                 utils.GenerateUUIDv7(),
		AssignmentID:       duty.AssignmentID,
		Activity:           in.Activity,
		Timestamp:          now,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		DistanceFromCenter: distance,
		Verified:           verified,
		SelfieRef:          selfieRef,
		CreatedAt:          now,
	}
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.attendance.Create(txCtx, event); err != nil {
			return domainerrors.InternalError(err)
		}
		if !verified {
			return nil
		}
		status, completedAt := entities.AssignmentCheckIn, (*time.Time)(nil)
		if in.Activity == entities.ActivityCheckOut {
			status, completedAt = entities.AssignmentCompleted, &now
		}
		if err := u.attendance.UpdateAssignmentStatus(txCtx, duty.AssignmentID, status, completedAt); err != nil {
			return domainerrors.InternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Attendance recorded",
		zap.String("assignment_id", duty.AssignmentID.String()),
		zap.String("activity", string(in.Activity)),
		zap.Int("distance_m", distance),
		zap.Bool("verified", verified),
	)
	u.metrics.IncAttendanceEvent(string(in.Activity), verified)
	if u.events != nil {
		u.events.Emit(ctx, entities.DomainEvent{
			Type:        entities.EventAttendanceRecorded,
			AggregateID: duty.AssignmentID,
			UserID:      userID,
			Payload: map[string]interface{}{
				"activity": string(in.Activity),
				"verified": verified,
				"shift_id": duty.ShiftID.String(),
			},
		})
	}
	return event, nil
}

// ListEvents pages attendance newest first. Staff see every operator.
func (u *AttendanceUsecase) ListEvents(ctx context.Context, userID uuid.UUID, isStaff bool, page, limit int) ([]*entities.AttendanceEvent, *utils.PaginationMeta, error) {
	params := utils.GetPaginationParams(page, limit)
	var operatorID *uuid.UUID
	if !isStaff {
		operatorID = &userID
	}
	events, total, err := u.attendance.List(ctx, operatorID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, nil, domainerrors.InternalError(err)
	}
	meta := utils.CalculateMeta(total, params.Page, params.Limit)
	return events, &meta, nil
}

// resolveCenter picks the exam center, then the master center. Without
// either the 0,0 placeholder is used, which fails any real geofence.
func (u *AttendanceUsecase) resolveCenter(duty *entities.DutyContext) (geo.Point, int) {
	for _, c := range []*entities.CenterLocation{duty.ExamCenter, duty.MasterCenter} {
		if !c.HasCoordinates() {
			continue
		}
		radius := u.defaultRadius
		if c.RadiusMeters.Valid && c.RadiusMeters.Int > 0 {
			radius = c.RadiusMeters.Int
		}
		return geo.Point{Lat: c.Latitude.Float64, Lng: c.Longitude.Float64}, radius
	}
	return geo.Point{}, u.defaultRadius
}

// verifySelfie runs liveness on selfie and matches it against the profile
// photo. It returns the reference stored on the event.
func (u *AttendanceUsecase) verifySelfie(ctx context.Context, userID uuid.UUID, selfie []byte) (string, error) {
	if len(selfie) == 0 {
		return "", selfieRequired()
	}

	live, err := u.gate.CheckLiveness(ctx, selfie)
	if err != nil {
		return "", u.gate.Describe(err)
	}
	if !live.Live {
		return "", faceVerificationFailed("Liveness check failed. Please retake the selfie.", nil)
	}

	p, err := u.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return "", domainerrors.InternalError(err)
	}
	if p == nil || len(p.Photo) == 0 {
		return "", domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeFaceVerification,
			"Profile photo not available. Complete KYC first.", domainerrors.ErrProfilePhotoEmpty)
	}

	match, err := u.gate.CheckMatch(ctx, selfie, p.Photo)
	if err != nil {
		return "", u.gate.Describe(err)
	}
	if !u.gate.MeetsThreshold(match) {
		return "", faceVerificationFailed("Face does not match the profile photo", nil).
			WithDetail("confidence", match.Confidence).
			WithDetail("threshold", u.gate.Threshold())
	}

	sum := sha256.Sum256(selfie)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
