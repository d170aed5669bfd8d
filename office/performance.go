package office

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Performance records additive per-staff metrics.
type Performance struct {
	store PerformanceStore
	staff StaffStore
}

func NewPerformance(store PerformanceStore, staff StaffStore) *Performance {
	return &Performance{store: store, staff: staff}
}

// Record adds a performance entry for an existing staff member.
func (p *Performance) Record(ctx context.Context, staff StaffID, date time.Time, recordType string, value int) (PerformanceRecord, error) {
	recordType = strings.TrimSpace(recordType)
	switch {
	case staff == "":
		return PerformanceRecord{}, missing("staff_id")
	case recordType == "":
		return PerformanceRecord{}, missing("record_type")
	case date.IsZero():
		return PerformanceRecord{}, missing("date")
	}
	s, err := p.staff.GetStaff(ctx, staff)
	if err != nil {
		return PerformanceRecord{}, fmt.Errorf("failed to load staff: %w", err)
	}
	if s == nil {
		return PerformanceRecord{}, fmt.Errorf("staff %s: %w", staff, ErrNotFound)
	}

	rec := PerformanceRecord{
		ID:         uuid.NewString(),
		StaffID:    staff,
		Date:       DayOf(date),
		RecordType: recordType,
		Value:      value,
	}
	if err := p.store.AddPerformance(ctx, rec); err != nil {
		return PerformanceRecord{}, fmt.Errorf("failed to record performance: %w", err)
	}
	return rec, nil
}

// List returns records newest first; staff nil lists everyone's.
func (p *Performance) List(ctx context.Context, staff *StaffID) ([]PerformanceRecord, error) {
	recs, err := p.store.ListPerformance(ctx, staff)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}
	return recs, nil
}
