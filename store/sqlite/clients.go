package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/warp/backoffice/office"
)

// =============================================================================
// CLIENT STORE (office.ClientStore interface)
// =============================================================================

const clientColumns = `id, owner_id, name, contact, address, note, employee_note, gender,
	birth_date, status, is_distributed, distribution_date, transmission_status,
	created_at, updated_at`

// CreateClients inserts all clients atomically.
func (s *Store) CreateClients(ctx context.Context, clients []office.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range clients {
			if err := s.insertClient(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insertClient(ctx context.Context, db execer, c office.Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID,
		ownerArg(c.Owner),
		c.Name, c.Contact, c.Address, c.Note, c.EmployeeNote, c.Gender, c.BirthDate,
		string(c.Status),
		c.IsDistributed,
		dayArg(c.DistributionDate),
		c.TransmissionStatus,
		formatTS(c.CreatedAt),
		formatTS(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("client %s: %w", c.ID, office.ErrConflict)
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("client %s owner: %w", c.ID, office.ErrNotFound)
		}
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

// GetClient retrieves a client by ID.
func (s *Store) GetClient(ctx context.Context, id office.ClientID) (*office.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id)
	c, err := s.scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateClient edits a client inside one transaction. owner_id,
// is_distributed and distribution_date belong to AssignClient and are not
// part of the UPDATE.
func (s *Store) UpdateClient(ctx context.Context, id office.ClientID, fn func(c *office.Client) error) (office.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated office.Client
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id)
		c, err := s.scanClient(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("client %s: %w", id, office.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE clients SET
				name = ?, contact = ?, address = ?, note = ?, employee_note = ?,
				gender = ?, birth_date = ?, status = ?, transmission_status = ?,
				updated_at = ?
			WHERE id = ?`,
			c.Name, c.Contact, c.Address, c.Note, c.EmployeeNote,
			c.Gender, c.BirthDate, string(c.Status), c.TransmissionStatus,
			formatTS(c.UpdatedAt),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		if err := affectedOrNotFound(res, fmt.Errorf("client %s: %w", id, office.ErrNotFound)); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return office.Client{}, err
	}
	return updated, nil
}

// DeleteClient removes a client.
func (s *Store) DeleteClient(ctx context.Context, id office.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return affectedOrNotFound(res, fmt.Errorf("client %s: %w", id, office.ErrNotFound))
}

// ListClients returns one page of matching clients, newest first, and the
// total number of matches.
func (s *Store) ListClients(ctx context.Context, q office.ClientQuery) ([]office.Client, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if q.Owner != nil {
		where = append(where, "owner_id = ?")
		args = append(args, *q.Owner)
	}
	if q.Created != nil {
		where = append(where, "created_at >= ? AND created_at < ?")
		args = append(args, formatTS(q.Created.From), formatTS(q.Created.To))
	}
	if q.UndistributedOnly {
		where = append(where, "is_distributed = FALSE")
	}
	if q.NameContains != "" {
		where = append(where, `name LIKE '%' || ? || '%' ESCAPE '\'`)
		args = append(args, escapeLike(q.NameContains))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	query := "SELECT " + clientColumns + " FROM clients" + clause + " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}
	clients, err := s.queryClients(ctx, s.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (s *Store) queryClients(ctx context.Context, db execer, query string, args ...any) ([]office.Client, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := []office.Client{}
	for rows.Next() {
		c, err := s.scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *Store) scanClient(row scanner) (office.Client, error) {
	var (
		c                office.Client
		owner            sql.NullString
		status           string
		distributionDate sql.NullString
		createdAt        string
		updatedAt        string
	)
	err := row.Scan(
		&c.ID, &owner, &c.Name, &c.Contact, &c.Address, &c.Note, &c.EmployeeNote,
		&c.Gender, &c.BirthDate, &status, &c.IsDistributed, &distributionDate,
		&c.TransmissionStatus, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return c, err
		}
		return c, fmt.Errorf("failed to scan client: %w", err)
	}

	if owner.Valid {
		id := office.StaffID(owner.String)
		c.Owner = &id
	}
	c.Status = office.Status(status)
	if distributionDate.Valid {
		d := s.parseDay(distributionDate.String)
		c.DistributionDate = &d
	}
	c.CreatedAt = parseTS(createdAt)
	c.UpdatedAt = parseTS(updatedAt)
	return c, nil
}

func ownerArg(owner *office.StaffID) sql.NullString {
	if owner == nil {
		return sql.NullString{}
	}
	return nullString(string(*owner))
}

func dayArg(day *time.Time) sql.NullString {
	if day == nil {
		return sql.NullString{}
	}
	return nullString(formatDay(*day))
}

// =============================================================================
// DISTRIBUTION STORE (office.DistributionStore interface)
// =============================================================================

// WithTx executes fn within a write transaction. BEGIN IMMEDIATE takes the
// database write lock up front, so overlapping distributions serialize.
func (s *Store) WithTx(ctx context.Context, fn func(tx office.DistributionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(&distributionTx{tx: sqlTx, parent: s})
	})
}

type distributionTx struct {
	tx     *sql.Tx
	parent *Store
}

func (d *distributionTx) StaffByIDs(ctx context.Context, ids []office.StaffID) ([]office.Staff, error) {
	byID := make(map[office.StaffID]office.Staff, len(ids))
	err := inChunks(ids, func(args []any) error {
		found, err := queryStaff(ctx, d.tx,
			"SELECT "+staffColumns+" FROM staff s WHERE s.id IN ("+placeholders(len(args))+")",
			args...,
		)
		if err != nil {
			return err
		}
		for _, st := range found {
			byID[st.ID] = st
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ordered := make([]office.Staff, 0, len(ids))
	for _, id := range ids {
		if st, ok := byID[id]; ok {
			ordered = append(ordered, st)
		}
	}
	return ordered, nil
}

func (d *distributionTx) ClientsByIDs(ctx context.Context, ids []office.ClientID) ([]office.Client, error) {
	clients := []office.Client{}
	seen := make(map[office.ClientID]bool, len(ids))
	err := inChunks(ids, func(args []any) error {
		found, err := d.parent.queryClients(ctx, d.tx,
			"SELECT "+clientColumns+" FROM clients WHERE id IN ("+placeholders(len(args))+")",
			args...,
		)
		if err != nil {
			return err
		}
		for _, c := range found {
			if !seen[c.ID] {
				seen[c.ID] = true
				clients = append(clients, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Same order as "ORDER BY created_at ASC, id ASC" across chunks
	slices.SortFunc(clients, func(a, b office.Client) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return clients, nil
}

func (d *distributionTx) AssignClient(ctx context.Context, id office.ClientID, owner office.StaffID, date, at time.Time) error {
	res, err := d.tx.ExecContext(ctx, `
		UPDATE clients
		SET owner_id = ?, is_distributed = TRUE, distribution_date = ?, updated_at = ?
		WHERE id = ?`,
		owner, formatDay(date), formatTS(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to assign client: %w", err)
	}
	return affectedOrNotFound(res, fmt.Errorf("client %s: %w", id, office.ErrNotFound))
}
