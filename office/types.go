/*
Package office provides the core of the call-center back office.

PURPOSE:
  Holds the domain types and the handful of operations that carry real
  business logic: distributing client records to staff, evaluating incentive
  tiers, attendance check-in/out and the reporting views built on top of
  client ownership and status.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client: a customer record worked by staff
  - Staff: an account, with group membership (Admin, Staff)
  - Status: fixed lifecycle enumeration of a client
  - PerformanceRecord / AttendanceRecord: additive per-staff records

DESIGN PRINCIPLES:
  1. Explicit context: staff identity and "now" are parameters, never globals
  2. Stores are interfaces (store.go); store/sqlite is the production backend
  3. Every business-rule violation surfaces as a typed error (errors.go)

SEE ALSO:
  - distribution.go: Client distribution engine
  - incentive.go: Incentive tier evaluation
  - report.go: Reporting aggregator
  - store/sqlite/: Relational store implementation
*/
package office

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type StaffID string

// =============================================================================
// CLIENT STATUS
// =============================================================================

// Status is the lifecycle state of a client record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAbsent    Status = "ABSENT"
	StatusFailed    Status = "FAIL"
	StatusSuccess1  Status = "SUCCESS_1"
	StatusSuccess2  Status = "SUCCESS_2"
	StatusPromising Status = "PROMISING"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusPending, StatusAbsent, StatusFailed,
	StatusSuccess1, StatusSuccess2, StatusPromising,
}

// SuccessStatuses are the closed/won outcomes counted as contracts.
var SuccessStatuses = []Status{StatusSuccess1, StatusSuccess2}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) IsSuccess() bool {
	return s == StatusSuccess1 || s == StatusSuccess2
}

// =============================================================================
// GROUPS
// =============================================================================

// Group is a capability set used by the authorization layer.
type Group string

const (
	GroupAdmin Group = "Admin"
	GroupStaff Group = "Staff"
)

// KnownGroups are the only groups an account can be placed in.
var KnownGroups = []Group{GroupAdmin, GroupStaff}

func (g Group) Valid() bool {
	return g == GroupAdmin || g == GroupStaff
}

// =============================================================================
// ENTITIES
// =============================================================================

// Client is a customer record.
// Invariant: IsDistributed implies Owner != nil and DistributionDate != nil.
type Client struct {
	ID                 ClientID
	Owner              *StaffID // weak reference; survives staff deletion as nil
	Name               string
	Contact            string
	Address            string
	Note               string // admin note
	EmployeeNote       string // staff note (time, place)
	Gender             string // "M", "F" or empty
	BirthDate          string // YYYYMMDD or empty
	Status             Status
	IsDistributed      bool
	DistributionDate   *time.Time
	TransmissionStatus string // "Y" or "N"
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OwnedBy reports whether the client is currently owned by id.
func (c Client) OwnedBy(id StaffID) bool {
	return c.Owner != nil && *c.Owner == id
}

// Staff is an employee account.
type Staff struct {
	ID          StaffID
	Username    string
	DisplayName string
	Groups      []Group
	Active      bool
	CreatedAt   time.Time
}

// Name returns the display name, falling back to the username.
func (s Staff) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Username
}

func (s Staff) InGroup(g Group) bool {
	for _, have := range s.Groups {
		if have == g {
			return true
		}
	}
	return false
}

func (s Staff) IsAdmin() bool { return s.InGroup(GroupAdmin) }

// PerformanceRecord is an additive metric entry. Never mutated after creation.
type PerformanceRecord struct {
	ID         string
	StaffID    StaffID
	Date       time.Time
	RecordType string
	Value      int
}

// AttendanceRecord is one check-in/check-out pair per staff per calendar day.
type AttendanceRecord struct {
	ID         string
	StaffID    StaffID
	StaffName  string // filled by list queries
	WorkDate   time.Time
	CheckInAt  time.Time
	CheckOutAt *time.Time
	Memo       string
}

// CheckedOut reports whether the check-out time has been recorded.
func (a AttendanceRecord) CheckedOut() bool { return a.CheckOutAt != nil }

// Setting is a site-wide key/value configuration entry.
type Setting struct {
	Key   string
	Value string
}
