package usecases

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"seqrview.backend/internal/config"
	"seqrview.backend/internal/domain/entities"
	domainerrors "seqrview.backend/internal/domain/errors"
	"seqrview.backend/pkg/logger"
)

var (
	dateLayouts = []string{"2006-01-02", time.RFC3339Nano}
	timeLayouts = []string{"15:04:05.999999999", "15:04"}
)

// ShiftWindow is a shift's start and end in the attendance timezone
type ShiftWindow struct {
	Start time.Time
	End   time.Time
}

// TimeWindowPolicy decides whether an attendance punch falls inside the
// shift's check-in or check-out window
type TimeWindowPolicy struct {
	loc           *time.Location
	checkInLead   time.Duration
	checkOutGrace time.Duration
	lockAfter     time.Duration
	failOpen      bool
}

func NewTimeWindowPolicy(cfg config.AttendanceConfig) (*TimeWindowPolicy, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load attendance timezone %q: %w", cfg.Timezone, err)
	}
	return &TimeWindowPolicy{
		loc:           loc,
		checkInLead:   cfg.CheckInLead,
		checkOutGrace: cfg.CheckOutGrace,
		lockAfter:     cfg.LockAfter,
		failOpen:      cfg.FailOpenOnBadShift,
	}, nil
}

// ParseShift combines the stored work date and clock times. An end time
// before the start time rolls over to the next day.
func (p *TimeWindowPolicy) ParseShift(workDate, startTime, endTime string) (ShiftWindow, error) {
	day, err := parseWorkDate(workDate)
	if err != nil {
		return ShiftWindow{}, err
	}
	sh, sm, ss, err := parseClock(startTime)
	if err != nil {
		return ShiftWindow{}, err
	}
	eh, em, es, err := parseClock(endTime)
	if err != nil {
		return ShiftWindow{}, err
	}

	y, mo, d := day.Date()
	start := time.Date(y, mo, d, sh, sm, ss, 0, p.loc)
	end := time.Date(y, mo, d, eh, em, es, 0, p.loc)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return ShiftWindow{Start: start, End: end}, nil
}

// Check rejects a punch outside its window or on a locked shift. A shift
// whose schedule cannot be parsed is let through when the policy fails open.
func (p *TimeWindowPolicy) Check(ctx context.Context, duty *entities.DutyContext, activity entities.ActivityType, now time.Time) error {
	w, err := p.ParseShift(duty.WorkDate, duty.StartTime, duty.EndTime)
	if err != nil {
		if p.failOpen {
			logger.Warn(ctx, "Shift schedule unparseable, skipping time window check",
				zap.String("assignment_id", duty.AssignmentID.String()),
				zap.String("shift_id", duty.ShiftID.String()),
				zap.Error(err),
			)
			return nil
		}
		return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeOutsideTimeWindow,
			"Shift schedule is unavailable", domainerrors.ErrOutsideTimeWindow)
	}

	now = now.In(p.loc)
	if p.lockAfter > 0 && now.After(w.End.Add(p.lockAfter)) {
		return domainerrors.NewAppError(http.StatusForbidden, domainerrors.CodeShiftLocked,
			"Shift is locked", domainerrors.ErrShiftLocked)
	}

	opens, closes := w.Start, w.End
	switch activity {
	case entities.ActivityCheckIn:
		opens = w.Start.Add(-p.checkInLead)
	case entities.ActivityCheckOut:
		closes = w.End.Add(p.checkOutGrace)
	}
	if now.Before(opens) || now.After(closes) {
		e := domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeOutsideTimeWindow,
			fmt.Sprintf("%s is allowed between %s and %s", activityLabel(activity), opens.Format("15:04"), closes.Format("15:04")),
			domainerrors.ErrOutsideTimeWindow)
		return e.WithDetail("opens_at", opens).WithDetail("closes_at", closes)
	}
	return nil
}

func parseWorkDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable work date %q", s)
}

func parseClock(s string) (int, int, int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	// some drivers scan TIME columns as a full timestamp
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Hour(), t.Minute(), t.Second(), nil
	}
	return 0, 0, 0, fmt.Errorf("unparseable shift time %q", s)
}

func activityLabel(a entities.ActivityType) string {
	if a == entities.ActivityCheckOut {
		return "Check-out"
	}
	return "Check-in"
}
