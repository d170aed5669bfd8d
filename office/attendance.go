package office

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attendance handles daily check-in/check-out.
//
// The work date is the calendar day of "now" in now's location. Uniqueness of
// (staff, work date) is enforced by the store, not by a read-then-write here.
type Attendance struct {
	store AttendanceStore
}

func NewAttendance(store AttendanceStore) *Attendance {
	return &Attendance{store: store}
}

// CheckIn creates today's record. A second call on the same day returns
// ErrAlreadyCheckedIn.
func (a *Attendance) CheckIn(ctx context.Context, staff StaffID, now time.Time) (AttendanceRecord, error) {
	if staff == "" {
		return AttendanceRecord{}, missing("staff_id")
	}
	rec := AttendanceRecord{
		ID:        uuid.NewString(),
		StaffID:   staff,
		WorkDate:  DayOf(now),
		CheckInAt: now,
	}
	if err := a.store.CreateAttendance(ctx, rec); err != nil {
		return AttendanceRecord{}, err
	}
	return rec, nil
}

// CheckOut records today's check-out time, at most once.
func (a *Attendance) CheckOut(ctx context.Context, staff StaffID, now time.Time) (AttendanceRecord, error) {
	if staff == "" {
		return AttendanceRecord{}, missing("staff_id")
	}
	rec, err := a.store.CloseAttendance(ctx, staff, DayOf(now), now)
	if err != nil {
		return AttendanceRecord{}, err
	}
	return *rec, nil
}

// Today returns today's record, or nil when the staff member hasn't checked in.
func (a *Attendance) Today(ctx context.Context, staff StaffID, now time.Time) (*AttendanceRecord, error) {
	rec, err := a.store.GetAttendance(ctx, staff, DayOf(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	return rec, nil
}

// Month lists every record of the month given as "YYYY-MM", or of the month
// containing now when month is empty. A malformed month yields no records.
func (a *Attendance) Month(ctx context.Context, month string, now time.Time) ([]AttendanceRecord, error) {
	w := MonthOf(now)
	if month != "" {
		parsed, ok := ParseMonth(month, now.Location())
		if !ok {
			return []AttendanceRecord{}, nil
		}
		w = parsed
	}
	recs, err := a.store.ListAttendance(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return recs, nil
}
