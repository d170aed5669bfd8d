package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/warp/backoffice/office"
)

// =============================================================================
// STAFF STORE (office.StaffStore interface)
// =============================================================================

const staffColumns = `s.id, s.username, s.display_name, s.active, s.created_at,
	COALESCE((SELECT GROUP_CONCAT(g.group_name, ',') FROM staff_groups g WHERE g.staff_id = s.id), '')`

// SaveStaff inserts a new account with its groups.
func (s *Store) SaveStaff(ctx context.Context, st office.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO staff (id, username, display_name, active, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			st.ID, st.Username, st.DisplayName, st.Active, formatTS(st.CreatedAt),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("username %q: %w", st.Username, office.ErrConflict)
			}
			return fmt.Errorf("failed to save staff: %w", err)
		}
		return writeGroups(ctx, tx, st.ID, st.Groups)
	})
}

// UpdateStaff rewrites display name, active flag and groups.
func (s *Store) UpdateStaff(ctx context.Context, st office.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE staff SET display_name = ?, active = ? WHERE id = ?",
			st.DisplayName, st.Active, st.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update staff: %w", err)
		}
		if err := affectedOrNotFound(res, fmt.Errorf("staff %s: %w", st.ID, office.ErrNotFound)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM staff_groups WHERE staff_id = ?", st.ID); err != nil {
			return fmt.Errorf("failed to clear groups: %w", err)
		}
		return writeGroups(ctx, tx, st.ID, st.Groups)
	})
}

func writeGroups(ctx context.Context, tx *sql.Tx, id office.StaffID, groups []office.Group) error {
	for _, g := range groups {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO staff_groups (staff_id, group_name) VALUES (?, ?)",
			id, string(g),
		)
		if err != nil {
			return fmt.Errorf("failed to save group %s: %w", g, err)
		}
	}
	return nil
}

// GetStaff retrieves an account by ID.
func (s *Store) GetStaff(ctx context.Context, id office.StaffID) (*office.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getStaff(ctx, s.db, id)
}

func getStaff(ctx context.Context, db execer, id office.StaffID) (*office.Staff, error) {
	row := db.QueryRowContext(ctx, "SELECT "+staffColumns+" FROM staff s WHERE s.id = ?", id)
	st, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetStaffByUsername retrieves an account by username.
func (s *Store) GetStaffByUsername(ctx context.Context, username string) (*office.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+staffColumns+" FROM staff s WHERE s.username = ?", username)
	st, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStaff returns all accounts, newest first.
func (s *Store) ListStaff(ctx context.Context) ([]office.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryStaff(ctx, s.db,
		"SELECT "+staffColumns+" FROM staff s ORDER BY s.created_at DESC, s.id DESC",
	)
}

// ListStaffInGroup returns members of g ordered by creation.
func (s *Store) ListStaffInGroup(ctx context.Context, g office.Group) ([]office.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryStaff(ctx, s.db, `
		SELECT `+staffColumns+`
		FROM staff s
		WHERE EXISTS (SELECT 1 FROM staff_groups g WHERE g.staff_id = s.id AND g.group_name = ?)
		ORDER BY s.created_at ASC, s.id ASC`,
		string(g),
	)
}

// DeleteStaff removes an account. Owned clients lose their owner and go back
// to the undistributed pool; attendance and performance rows cascade.
func (s *Store) DeleteStaff(ctx context.Context, id office.StaffID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE clients
			SET owner_id = NULL, is_distributed = FALSE, distribution_date = NULL
			WHERE owner_id = ?`,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to release clients: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM staff WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete staff: %w", err)
		}
		return affectedOrNotFound(res, fmt.Errorf("staff %s: %w", id, office.ErrNotFound))
	})
}

func queryStaff(ctx context.Context, db execer, query string, args ...any) ([]office.Staff, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	staff := []office.Staff{}
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStaff(row scanner) (office.Staff, error) {
	var (
		st        office.Staff
		createdAt string
		groups    string
	)
	err := row.Scan(&st.ID, &st.Username, &st.DisplayName, &st.Active, &createdAt, &groups)
	if err != nil {
		if err == sql.ErrNoRows {
			return st, err
		}
		return st, fmt.Errorf("failed to scan staff: %w", err)
	}
	st.CreatedAt = parseTS(createdAt)
	st.Groups = splitGroups(groups)
	return st, nil
}

// splitGroups parses the GROUP_CONCAT column, sorted since SQLite doesn't
// order the aggregate.
func splitGroups(csv string) []office.Group {
	groups := []office.Group{}
	if csv == "" {
		return groups
	}
	for _, name := range strings.Split(csv, ",") {
		groups = append(groups, office.Group(name))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}
