package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/backoffice/office"
)

// =============================================================================
// PERFORMANCE STORE (office.PerformanceStore interface)
// =============================================================================

// AddPerformance appends a performance record. Records are never updated.
func (s *Store) AddPerformance(ctx context.Context, rec office.PerformanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_records (id, staff_id, date, record_type, value)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.StaffID, formatDay(rec.Date), rec.RecordType, rec.Value,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("staff %s: %w", rec.StaffID, office.ErrNotFound)
		}
		return fmt.Errorf("failed to add performance record: %w", err)
	}
	return nil
}

// ListPerformance returns records newest date first.
func (s *Store) ListPerformance(ctx context.Context, staff *office.StaffID) ([]office.PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, staff_id, date, record_type, value FROM performance_records"
	var args []any
	if staff != nil {
		query += " WHERE staff_id = ?"
		args = append(args, *staff)
	}
	query += " ORDER BY date DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance records: %w", err)
	}
	defer rows.Close()

	recs := []office.PerformanceRecord{}
	for rows.Next() {
		var (
			rec  office.PerformanceRecord
			date string
		)
		if err := rows.Scan(&rec.ID, &rec.StaffID, &date, &rec.RecordType, &rec.Value); err != nil {
			return nil, fmt.Errorf("failed to scan performance record: %w", err)
		}
		rec.Date = s.parseDay(date)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// =============================================================================
// SETTING STORE (office.SettingStore interface)
// =============================================================================

// GetSetting retrieves a setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (*office.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v office.Setting
	err := s.db.QueryRowContext(ctx,
		"SELECT key, value FROM settings WHERE key = ?", key,
	).Scan(&v.Key, &v.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListSettings returns every setting ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]office.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []office.Setting{}
	for rows.Next() {
		var v office.Setting
		if err := rows.Scan(&v.Key, &v.Value); err != nil {
			return nil, err
		}
		settings = append(settings, v)
	}
	return settings, rows.Err()
}

// PutSetting creates or overwrites a setting.
func (s *Store) PutSetting(ctx context.Context, v office.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		v.Key, v.Value,
	)
	return err
}

// DeleteSetting removes a setting.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return affectedOrNotFound(res, fmt.Errorf("setting %q: %w", key, office.ErrNotFound))
}
