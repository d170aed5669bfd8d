/*
store.go - Persistence interfaces for the back office

PURPOSE:
  Defines the boundary between the domain services and the relational
  store. Each service depends only on the narrow interface it needs, so
  tests can substitute a fake for a single concern.

KEY INTERFACES:
  StaffStore:        Accounts and group membership
  ClientStore:       Client CRUD and listing
  DistributionStore: Transactional read-modify-write for distribution
  RuleStore:         Incentive tier table (list + full replace only)
  AttendanceStore:   One record per staff per day
  PerformanceStore:  Additive performance records
  ReportStore:       One explicit query per reporting view
  SettingStore:      Site key/value settings

TIME STORAGE:
  Instants are passed as time.Time; implementations store them in UTC.
  Calendar days (work date, distribution date) are passed as local midnight
  and stored as "YYYY-MM-DD" of that local day.

ATOMICITY:
  ReplaceRules and CreateClients are all-or-nothing. DistributionStore.WithTx
  runs the whole distribution in one write transaction: if fn returns an
  error, every assignment made inside it is rolled back.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store

SEE ALSO:
  - distribution.go: Uses DistributionStore
  - report.go: Uses ReportStore
*/
package office

import (
	"context"
	"time"
)

// =============================================================================
// STAFF
// =============================================================================

type StaffStore interface {
	// SaveStaff inserts a new account. Returns ErrConflict if the username is taken.
	SaveStaff(ctx context.Context, s Staff) error

	// UpdateStaff rewrites display name, active flag and group membership.
	// Returns ErrNotFound for unknown ids.
	UpdateStaff(ctx context.Context, s Staff) error

	// GetStaff returns nil, nil when the id is unknown.
	GetStaff(ctx context.Context, id StaffID) (*Staff, error)

	// ListStaff returns every account, newest first.
	ListStaff(ctx context.Context) ([]Staff, error)

	// ListStaffInGroup returns members of g ordered by creation.
	ListStaffInGroup(ctx context.Context, g Group) ([]Staff, error)

	// DeleteStaff removes the account. Owned clients keep existing with no owner.
	DeleteStaff(ctx context.Context, id StaffID) error
}

// =============================================================================
// CLIENTS
// =============================================================================

// ClientQuery filters ListClients. Every predicate is optional and they
// combine with AND:
//   - Owner: clients owned by this staff member
//   - Created: created_at inside the window
//   - UndistributedOnly: is_distributed = false
//   - NameContains: case-insensitive substring of the name
//
// Results are ordered newest first. Limit 0 returns every match.
type ClientQuery struct {
	Owner             *StaffID
	Created           *Window
	UndistributedOnly bool
	NameContains      string
	Offset            int
	Limit             int
}

type ClientStore interface {
	// CreateClients inserts all clients atomically.
	CreateClients(ctx context.Context, clients []Client) error

	// GetClient returns nil, nil when the id is unknown.
	GetClient(ctx context.Context, id ClientID) (*Client, error)

	// UpdateClient loads the client, passes it to fn and writes back the
	// detail columns, all in one transaction. Owner and distribution columns
	// are never written here. An error from fn aborts the update. Returns
	// ErrNotFound for unknown ids.
	UpdateClient(ctx context.Context, id ClientID, fn func(c *Client) error) (Client, error)

	// DeleteClient returns ErrNotFound for unknown ids.
	DeleteClient(ctx context.Context, id ClientID) error

	// ListClients returns one page of matches and the total match count.
	ListClients(ctx context.Context, q ClientQuery) ([]Client, int, error)
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

// DistributionTx is the view of the store inside a distribution transaction.
type DistributionTx interface {
	// StaffByIDs returns the known accounts among ids, in the order of ids.
	StaffByIDs(ctx context.Context, ids []StaffID) ([]Staff, error)

	// ClientsByIDs returns the known clients among ids in store order
	// (creation time, then id).
	ClientsByIDs(ctx context.Context, ids []ClientID) ([]Client, error)

	// AssignClient sets owner, is_distributed and distribution_date, and
	// stamps updated_at with at.
	AssignClient(ctx context.Context, id ClientID, owner StaffID, date, at time.Time) error
}

type DistributionStore interface {
	// WithTx executes fn within a write transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(tx DistributionTx) error) error
}

// =============================================================================
// INCENTIVE RULES
// =============================================================================

type RuleStore interface {
	// ListRules returns rules in declared order.
	ListRules(ctx context.Context) ([]IncentiveRule, error)

	// ReplaceRules atomically discards all rules and installs rules in the
	// given order.
	ReplaceRules(ctx context.Context, rules []IncentiveRule) error
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceStore interface {
	// CreateAttendance inserts the day's record. Returns ErrAlreadyCheckedIn if
	// a record for (staff, work date) exists; enforced by the store, so two
	// concurrent attempts can never both succeed.
	CreateAttendance(ctx context.Context, rec AttendanceRecord) error

	// GetAttendance returns nil, nil when there is no record for the day.
	GetAttendance(ctx context.Context, staff StaffID, day time.Time) (*AttendanceRecord, error)

	// CloseAttendance sets the check-out time once. Returns ErrNoCheckInFound
	// or ErrAlreadyCheckedOut.
	CloseAttendance(ctx context.Context, staff StaffID, day, at time.Time) (*AttendanceRecord, error)

	// ListAttendance returns records whose work date falls in w, newest first.
	ListAttendance(ctx context.Context, w Window) ([]AttendanceRecord, error)

	// CheckedInOn returns the set of staff with a record on day.
	CheckedInOn(ctx context.Context, day time.Time) (map[StaffID]bool, error)
}

// =============================================================================
// PERFORMANCE
// =============================================================================

type PerformanceStore interface {
	AddPerformance(ctx context.Context, rec PerformanceRecord) error

	// ListPerformance returns records newest date first; staff nil means all.
	ListPerformance(ctx context.Context, staff *StaffID) ([]PerformanceRecord, error)
}

// =============================================================================
// REPORTING - one explicit query per view
// =============================================================================

// ClientTotals are org-wide counts over every client.
type ClientTotals struct {
	Total         int
	Undistributed int
	Contracts     int // status in SuccessStatuses
}

// CreatedCounts are counts over clients created inside a window.
type CreatedCounts struct {
	New       int
	Contracts int // status in SuccessStatuses
}

type AddressCount struct {
	Address string
	Count   int
}

type PerformanceTotal struct {
	Staff Staff
	Total int
}

type ReportStore interface {
	// OwnedStatusCounts groups owner's clients created inside created by status.
	OwnedStatusCounts(ctx context.Context, owner StaffID, created Window) (map[Status]int, error)

	// ClientTotals counts all clients, undistributed clients and contracts.
	ClientTotals(ctx context.Context) (ClientTotals, error)

	// CreatedCounts counts clients created inside created, and contracts among them.
	CreatedCounts(ctx context.Context, created Window) (CreatedCounts, error)

	// TopAddresses returns addresses by client count descending, ties by address.
	TopAddresses(ctx context.Context, limit int) ([]AddressCount, error)

	// SuccessCountsByOwner counts contracts per owner whose updated_at falls
	// inside updated. Owners with no contracts are absent from the map.
	SuccessCountsByOwner(ctx context.Context, updated Window) (map[StaffID]int, error)

	// PerformanceTotals sums record values of recordType per account (zero for
	// accounts with none), descending, ties by username.
	PerformanceTotals(ctx context.Context, recordType string, limit int) ([]PerformanceTotal, error)

	// ListStaffInGroup returns members of g ordered by creation.
	ListStaffInGroup(ctx context.Context, g Group) ([]Staff, error)
}

// =============================================================================
// SETTINGS
// =============================================================================

type SettingStore interface {
	// GetSetting returns nil, nil when the key is unknown.
	GetSetting(ctx context.Context, key string) (*Setting, error)
	ListSettings(ctx context.Context) ([]Setting, error)
	PutSetting(ctx context.Context, s Setting) error
	// DeleteSetting returns ErrNotFound for unknown keys.
	DeleteSetting(ctx context.Context, key string) error
}
