package sqlite

import (
	"context"
	"fmt"

	"github.com/warp/backoffice/office"
)

// =============================================================================
// REPORT STORE (office.ReportStore interface)
// =============================================================================

// successIn is the SQL form of office.SuccessStatuses.
var successIn = fmt.Sprintf("('%s', '%s')", office.StatusSuccess1, office.StatusSuccess2)

// OwnedStatusCounts groups owner's clients created inside created by status.
func (s *Store) OwnedStatusCounts(ctx context.Context, owner office.StaffID, created office.Window) (map[office.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM clients
		WHERE owner_id = ? AND created_at >= ? AND created_at < ?
		GROUP BY status`,
		owner, formatTS(created.From), formatTS(created.To),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count clients by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[office.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[office.Status(status)] = n
	}
	return counts, rows.Err()
}

// ClientTotals counts all clients, undistributed clients and contracts.
func (s *Store) ClientTotals(ctx context.Context) (office.ClientTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t office.ClientTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_distributed = FALSE THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN `+successIn+` THEN 1 ELSE 0 END), 0)
		FROM clients`,
	).Scan(&t.Total, &t.Undistributed, &t.Contracts)
	if err != nil {
		return office.ClientTotals{}, fmt.Errorf("failed to count clients: %w", err)
	}
	return t, nil
}

// CreatedCounts counts clients created inside created, and contracts among them.
func (s *Store) CreatedCounts(ctx context.Context, created office.Window) (office.CreatedCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c office.CreatedCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status IN `+successIn+` THEN 1 ELSE 0 END), 0)
		FROM clients
		WHERE created_at >= ? AND created_at < ?`,
		formatTS(created.From), formatTS(created.To),
	).Scan(&c.New, &c.Contracts)
	if err != nil {
		return office.CreatedCounts{}, fmt.Errorf("failed to count created clients: %w", err)
	}
	return c, nil
}

// TopAddresses returns addresses by client count descending, ties by address.
func (s *Store) TopAddresses(ctx context.Context, limit int) ([]office.AddressCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, COUNT(*) AS n
		FROM clients
		GROUP BY address
		ORDER BY n DESC, address ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rank addresses: %w", err)
	}
	defer rows.Close()

	top := []office.AddressCount{}
	for rows.Next() {
		var a office.AddressCount
		if err := rows.Scan(&a.Address, &a.Count); err != nil {
			return nil, err
		}
		top = append(top, a)
	}
	return top, rows.Err()
}

// SuccessCountsByOwner counts contracts per owner by updated_at.
func (s *Store) SuccessCountsByOwner(ctx context.Context, updated office.Window) (map[office.StaffID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, COUNT(*)
		FROM clients
		WHERE owner_id IS NOT NULL
		  AND status IN `+successIn+`
		  AND updated_at >= ? AND updated_at < ?
		GROUP BY owner_id`,
		formatTS(updated.From), formatTS(updated.To),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}
	defer rows.Close()

	counts := make(map[office.StaffID]int)
	for rows.Next() {
		var (
			id office.StaffID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// PerformanceTotals sums recordType values per account, zero included.
func (s *Store) PerformanceTotals(ctx context.Context, recordType string, limit int) ([]office.PerformanceTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + staffColumns + `, COALESCE(SUM(p.value), 0) AS total
		FROM staff s
		LEFT JOIN performance_records p ON p.staff_id = s.id AND p.record_type = ?
		GROUP BY s.id
		ORDER BY total DESC, s.username ASC`
	args := []any{recordType}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to total performance: %w", err)
	}
	defer rows.Close()

	totals := []office.PerformanceTotal{}
	for rows.Next() {
		var (
			t         office.PerformanceTotal
			createdAt string
			groups    string
		)
		err := rows.Scan(&t.Staff.ID, &t.Staff.Username, &t.Staff.DisplayName,
			&t.Staff.Active, &createdAt, &groups, &t.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance total: %w", err)
		}
		t.Staff.CreatedAt = parseTS(createdAt)
		t.Staff.Groups = splitGroups(groups)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
