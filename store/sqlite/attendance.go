package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/backoffice/office"
)

// =============================================================================
// ATTENDANCE STORE (office.AttendanceStore interface)
// =============================================================================

const attendanceColumns = `a.id, a.staff_id, COALESCE(NULLIF(s.display_name, ''), s.username, ''),
	a.work_date, a.check_in_at, a.check_out_at, a.memo`

// CreateAttendance inserts the day's record. The unique index on
// (staff_id, work_date) rejects a second one.
func (s *Store) CreateAttendance(ctx context.Context, rec office.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, staff_id, work_date, check_in_at, check_out_at, memo)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StaffID, formatDay(rec.WorkDate), formatTS(rec.CheckInAt),
		tsArg(rec.CheckOutAt), rec.Memo,
	)
	if err != nil {
		if isAttendanceDayError(err) {
			return office.ErrAlreadyCheckedIn
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("staff %s: %w", rec.StaffID, office.ErrNotFound)
		}
		return fmt.Errorf("failed to create attendance: %w", err)
	}
	return nil
}

// GetAttendance returns the staff member's record for day.
func (s *Store) GetAttendance(ctx context.Context, staff office.StaffID, day time.Time) (*office.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getAttendance(ctx, s.db, staff, day)
}

func (s *Store) getAttendance(ctx context.Context, db execer, staff office.StaffID, day time.Time) (*office.AttendanceRecord, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records a LEFT JOIN staff s ON s.id = a.staff_id
		WHERE a.staff_id = ? AND a.work_date = ?`,
		staff, formatDay(day),
	)
	rec, err := s.scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CloseAttendance sets check_out_at once. The conditional UPDATE decides the
// race; the follow-up read only explains a zero-row result.
func (s *Store) CloseAttendance(ctx context.Context, staff office.StaffID, day, at time.Time) (*office.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed *office.AttendanceRecord
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE attendance_records
			SET check_out_at = ?
			WHERE staff_id = ? AND work_date = ? AND check_out_at IS NULL`,
			formatTS(at), staff, formatDay(day),
		)
		if err != nil {
			return fmt.Errorf("failed to close attendance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		rec, err := s.getAttendance(ctx, tx, staff, day)
		if err != nil {
			return err
		}
		switch {
		case rec == nil:
			return office.ErrNoCheckInFound
		case n == 0:
			return office.ErrAlreadyCheckedOut
		}
		closed = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// ListAttendance returns records whose work date falls in w, newest first.
func (s *Store) ListAttendance(ctx context.Context, w office.Window) ([]office.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records a LEFT JOIN staff s ON s.id = a.staff_id
		WHERE a.work_date >= ? AND a.work_date < ?
		ORDER BY a.work_date DESC, a.check_in_at DESC`,
		formatDay(w.From), formatDay(w.To),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	recs := []office.AttendanceRecord{}
	for rows.Next() {
		rec, err := s.scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CheckedInOn returns the staff ids with a record on day.
func (s *Store) CheckedInOn(ctx context.Context, day time.Time) (map[office.StaffID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT staff_id FROM attendance_records WHERE work_date = ?",
		formatDay(day),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	checked := make(map[office.StaffID]bool)
	for rows.Next() {
		var id office.StaffID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		checked[id] = true
	}
	return checked, rows.Err()
}

func (s *Store) scanAttendance(row scanner) (office.AttendanceRecord, error) {
	var (
		rec      office.AttendanceRecord
		workDate string
		checkIn  string
		checkOut sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.StaffID, &rec.StaffName, &workDate, &checkIn, &checkOut, &rec.Memo)
	if err != nil {
		if err == sql.ErrNoRows {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan attendance: %w", err)
	}
	rec.WorkDate = s.parseDay(workDate)
	rec.CheckInAt = parseTS(checkIn)
	if checkOut.Valid {
		t := parseTS(checkOut.String)
		rec.CheckOutAt = &t
	}
	return rec, nil
}

func tsArg(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullString(formatTS(*t))
}
