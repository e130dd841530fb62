package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ActivityType is the kind of attendance punch
type ActivityType string

const (
	ActivityCheckIn  ActivityType = "CHECK_IN"
	ActivityCheckOut ActivityType = "CHECK_OUT"
)

// Valid reports whether a is a known activity
func (a ActivityType) Valid() bool {
	return a == ActivityCheckIn || a == ActivityCheckOut
}

// AssignmentStatus is the lifecycle of an operator's duty assignment
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentCheckIn   AssignmentStatus = "CHECK_IN"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
	AssignmentNoShow    AssignmentStatus = "NO_SHOW"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

// AttendanceEvent is an accepted check-in or check-out. Never mutated.
type AttendanceEvent struct {
	ID                 uuid.UUID    `json:"id"`
	AssignmentID       uuid.UUID    `json:"assignmentId"`
	Activity           ActivityType `json:"activityType"`
	Timestamp          time.Time    `json:"timestamp"`
	Latitude           float64      `json:"latitude"`
	Longitude          float64      `json:"longitude"`
	DistanceFromCenter int          `json:"distanceFromCenter"`
	Verified           bool         `json:"isVerified"`
	SelfieRef          null.String  `json:"selfieRef,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// CenterLocation is a geofence source; zero coordinates mean unset
type CenterLocation struct {
	Latitude     null.Float64 `json:"latitude"`
	Longitude    null.Float64 `json:"longitude"`
	RadiusMeters null.Int     `json:"radiusMeters"`
}

// HasCoordinates reports whether both coordinates are set and non-zero
func (c *CenterLocation) HasCoordinates() bool {
	if c == nil || !c.Latitude.Valid || !c.Longitude.Valid {
		return false
	}
	return c.Latitude.Float64 != 0 && c.Longitude.Float64 != 0
}

// DutyContext is the read-only view of an assignment and the shift, exam and
// centers it belongs to. WorkDate, StartTime and EndTime are stored verbatim
// and parsed by the attendance gate.
type DutyContext struct {
	AssignmentID      uuid.UUID        `json:"assignmentId"`
	OperatorID        uuid.UUID        `json:"operatorId"`
	Status            AssignmentStatus `json:"status"`
	ShiftID           uuid.UUID        `json:"shiftId"`
	WorkDate          string           `json:"workDate"`
	StartTime         string           `json:"startTime"`
	EndTime           string           `json:"endTime"`
	ExamID            uuid.UUID        `json:"examId"`
	GeofencingEnabled bool             `json:"geofencingEnabled"`
	SelfieRequired    bool             `json:"selfieRequired"`
	ExamCenter        *CenterLocation  `json:"examCenter,omitempty"`
	MasterCenter      *CenterLocation  `json:"masterCenter,omitempty"`
}

// RecordAttendanceInput is a check-in or check-out request
type RecordAttendanceInput struct {
	AssignmentID uuid.UUID
	Activity     ActivityType
	Latitude     float64
	Longitude    float64
	Selfie       []byte
}
