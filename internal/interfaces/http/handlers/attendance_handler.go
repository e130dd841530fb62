package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/internal/interfaces/http/middleware"
	"seqrview.backend/internal/interfaces/http/response"
	"seqrview.backend/internal/usecases"
	"seqrview.backend/pkg/utils"
)

type attendanceService interface {
	RecordEvent(ctx context.Context, userID uuid.UUID, in entities.RecordAttendanceInput) (*entities.AttendanceEvent, error)
	ListEvents(ctx context.Context, userID uuid.UUID, isStaff bool, page, limit int) ([]*entities.AttendanceEvent, *utils.PaginationMeta, error)
}

// AttendanceHandler handles check-in and check-out endpoints
type AttendanceHandler struct {
	attendanceUsecase attendanceService
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendanceUsecase *usecases.AttendanceUsecase) *AttendanceHandler {
	return &AttendanceHandler{attendanceUsecase: attendanceUsecase}
}

type recordAttendanceRequest struct {
	AssignmentID string   `json:"assignment_id" form:"assignment_id" binding:"required,uuid"`
	ActivityType string   `json:"activity_type" form:"activity_type" binding:"required,oneof=CHECK_IN CHECK_OUT"`
	Latitude     *float64 `json:"latitude" form:"latitude" binding:"required"`
	Longitude    *float64 `json:"longitude" form:"longitude" binding:"required"`
}

// RecordEvent records a check-in or check-out. Accepts JSON, or multipart
// when a selfie is attached.
// POST /api/v1/attendance
func (h *AttendanceHandler) RecordEvent(c *gin.Context) {
	var req recordAttendanceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	selfie, err := readSelfie(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	event, err := h.attendanceUsecase.RecordEvent(c.Request.Context(), userID, entities.RecordAttendanceInput{
		AssignmentID: uuid.MustParse(req.AssignmentID),
		Activity:     entities.ActivityType(req.ActivityType),
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		Selfie:       selfie,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"event": event})
}

// ListEvents lists attendance events; operators see their own
// GET /api/v1/attendance
func (h *AttendanceHandler) ListEvents(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	events, meta, err := h.attendanceUsecase.ListEvents(c.Request.Context(), userID, middleware.IsStaff(c), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if events == nil {
		events = []*entities.AttendanceEvent{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"events":     events,
		"pagination": meta,
	})
}
