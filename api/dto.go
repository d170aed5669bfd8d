/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the office domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. decodeAndValidate
  rejects a body before it reaches the domain; the domain still checks
  its own invariants (rule conditions, status values).

SEE ALSO:
  - handlers.go: Uses these types
  - office/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/backoffice/office"
)

const dateLayout = "2006-01-02"

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// STAFF
// =============================================================================

// StaffDTO represents an account in API responses.
type StaffDTO struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Groups      []string `json:"groups"`
	Active      bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at"`
}

// RosterEntryDTO is a Staff-group member with today's attendance flag.
type RosterEntryDTO struct {
	StaffDTO
	CheckedIn bool `json:"checked_in"`
}

// RegisterRequest creates an inactive account.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,max=150"`
	DisplayName string `json:"display_name" validate:"max=150"`
}

// UpdateAccessRequest changes activation and group membership. Absent
// fields are left alone.
type UpdateAccessRequest struct {
	Active *bool    `json:"is_active"`
	Groups []string `json:"groups"`
}

func toStaffDTO(s office.Staff) StaffDTO {
	groups := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		groups[i] = string(g)
	}
	return StaffDTO{
		ID:          string(s.ID),
		Username:    s.Username,
		DisplayName: s.DisplayName,
		Groups:      groups,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// CLIENTS
// =============================================================================

// ClientDTO represents a client record in API responses.
type ClientDTO struct {
	ID                 string  `json:"id"`
	Owner              *string `json:"owner"`
	Name               string  `json:"name"`
	Contact            string  `json:"contact"`
	Address            string  `json:"address"`
	Note               string  `json:"note"`
	EmployeeNote       string  `json:"employee_note"`
	Gender             string  `json:"gender"`
	BirthDate          string  `json:"birth_date"`
	Status             string  `json:"status"`
	IsDistributed      bool    `json:"is_distributed"`
	DistributionDate   *string `json:"distribution_date"`
	TransmissionStatus string  `json:"transmission_status"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

// ClientPageDTO is one page of clients plus the total match count.
type ClientPageDTO struct {
	Count    int         `json:"count"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Results  []ClientDTO `json:"results"`
}

// CreateClientRequest is the admin form for a new client.
type CreateClientRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Contact      string `json:"contact" validate:"required,max=50"`
	Address      string `json:"address" validate:"max=255"`
	Note         string `json:"note"`
	EmployeeNote string `json:"employee_note"`
	Gender       string `json:"gender" validate:"omitempty,oneof=M F"`
	BirthDate    string `json:"birth_date" validate:"omitempty,len=8,numeric"`
}

// UpdateClientRequest patches a client. Absent fields are left alone.
type UpdateClientRequest struct {
	Name               *string `json:"name" validate:"omitempty,max=100"`
	Contact            *string `json:"contact" validate:"omitempty,max=50"`
	Address            *string `json:"address" validate:"omitempty,max=255"`
	Note               *string `json:"note"`
	EmployeeNote       *string `json:"employee_note"`
	Status             *string `json:"status"`
	TransmissionStatus *string `json:"transmission_status" validate:"omitempty,oneof=Y N"`
}

func (r UpdateClientRequest) patch() office.ClientPatch {
	p := office.ClientPatch{
		Name:               r.Name,
		Contact:            r.Contact,
		Address:            r.Address,
		Note:               r.Note,
		EmployeeNote:       r.EmployeeNote,
		TransmissionStatus: r.TransmissionStatus,
	}
	if r.Status != nil {
		s := office.Status(*r.Status)
		p.Status = &s
	}
	return p
}

func toClientDTO(c office.Client) ClientDTO {
	dto := ClientDTO{
		ID:                 string(c.ID),
		Name:               c.Name,
		Contact:            c.Contact,
		Address:            c.Address,
		Note:               c.Note,
		EmployeeNote:       c.EmployeeNote,
		Gender:             c.Gender,
		BirthDate:          c.BirthDate,
		Status:             string(c.Status),
		IsDistributed:      c.IsDistributed,
		TransmissionStatus: c.TransmissionStatus,
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          c.UpdatedAt.Format(time.RFC3339),
	}
	if c.Owner != nil {
		owner := string(*c.Owner)
		dto.Owner = &owner
	}
	if c.DistributionDate != nil {
		d := c.DistributionDate.Format(dateLayout)
		dto.DistributionDate = &d
	}
	return dto
}

// ImportResultDTO reports how many clients an upload created.
type ImportResultDTO struct {
	Created int `json:"created"`
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

// DistributeRequest assigns clients across staff.
type DistributeRequest struct {
	ClientIDs        []string `json:"client_ids" validate:"required,min=1,max=10000,dive,required"`
	StaffIDs         []string `json:"staff_ids" validate:"required,min=1,max=1000,dive,required"`
	DistributionDate string   `json:"distribution_date" validate:"required,datetime=2006-01-02"`
	Randomize        bool     `json:"randomize"`
}

// AssignmentDTO is one client handed to one staff member.
type AssignmentDTO struct {
	ClientID string `json:"client_id"`
	StaffID  string `json:"staff_id"`
}

// DistributionDTO summarizes a committed distribution.
type DistributionDTO struct {
	Distributed int             `json:"distributed"`
	StaffCount  int             `json:"staff_count"`
	Assignments []AssignmentDTO `json:"assignments"`
	Missing     []string        `json:"missing"`
}

func toDistributionDTO(r office.DistributionResult) DistributionDTO {
	dto := DistributionDTO{
		Distributed: r.Distributed,
		StaffCount:  r.StaffCount,
		Assignments: make([]AssignmentDTO, len(r.Assignments)),
		Missing:     make([]string, len(r.Missing)),
	}
	for i, a := range r.Assignments {
		dto.Assignments[i] = AssignmentDTO{ClientID: string(a.ClientID), StaffID: string(a.StaffID)}
	}
	for i, id := range r.Missing {
		dto.Missing[i] = string(id)
	}
	return dto
}

// =============================================================================
// INCENTIVES
// =============================================================================

// IncentiveRuleDTO is one tier. On write, Condition is "N", "A~B" or "A-B".
type IncentiveRuleDTO struct {
	ID        string `json:"id,omitempty"`
	Condition string `json:"case_count" validate:"required,max=20"`
	Reward    int64  `json:"reward_amount" validate:"gte=0"`
}

// BoardRowDTO is one line of the incentive board.
type BoardRowDTO struct {
	StaffID      string `json:"staff_id"`
	EmployeeName string `json:"employee_name"`
	SuccessCount int    `json:"success_count"`
	RewardAmount int64  `json:"reward_amount"`
}

func toRuleDTOs(rules []office.IncentiveRule) []IncentiveRuleDTO {
	out := make([]IncentiveRuleDTO, len(rules))
	for i, r := range rules {
		out[i] = IncentiveRuleDTO{ID: r.ID, Condition: r.Condition, Reward: r.Reward}
	}
	return out
}

// =============================================================================
// REPORTS
// =============================================================================

// SummaryDTO is a staff member's month at a glance.
type SummaryDTO struct {
	Total       int             `json:"total"`
	ByStatus    map[string]int  `json:"by_status"`
	SuccessRate decimal.Decimal `json:"success_rate"`
}

// StatisticsDTO is the org-wide dashboard.
type StatisticsDTO struct {
	Summary struct {
		TotalClients      int `json:"total_clients"`
		UnassignedClients int `json:"unassigned_clients"`
		TotalContracts    int `json:"total_contracts"`
	} `json:"summary"`
	MonthlyPerformance struct {
		NewClients int `json:"new_clients"`
		Contracts  int `json:"contracts"`
	} `json:"monthly_performance"`
	TopAddresses  []AddressCountDTO `json:"region_top"`
	ContractTrend []TrendPointDTO   `json:"monthly_contract_trend"`
}

type AddressCountDTO struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

type TrendPointDTO struct {
	Month     string `json:"month"`
	Contracts int    `json:"contracts"`
}

func toStatisticsDTO(s office.Statistics) StatisticsDTO {
	var dto StatisticsDTO
	dto.Summary.TotalClients = s.Totals.Total
	dto.Summary.UnassignedClients = s.Totals.Undistributed
	dto.Summary.TotalContracts = s.Totals.Contracts
	dto.MonthlyPerformance.NewClients = s.ThisMonth.New
	dto.MonthlyPerformance.Contracts = s.ThisMonth.Contracts
	dto.TopAddresses = make([]AddressCountDTO, len(s.TopAddresses))
	for i, a := range s.TopAddresses {
		dto.TopAddresses[i] = AddressCountDTO{Address: a.Address, Count: a.Count}
	}
	dto.ContractTrend = make([]TrendPointDTO, len(s.Trend))
	for i, p := range s.Trend {
		dto.ContractTrend[i] = TrendPointDTO{Month: p.Month, Contracts: p.Contracts}
	}
	return dto
}

// RankedEntryDTO is one position of the performance ranking.
type RankedEntryDTO struct {
	Rank             int    `json:"rank"`
	StaffID          string `json:"staff_id"`
	EmployeeUsername string `json:"employee_username"`
	EmployeeName     string `json:"employee_name"`
	TotalValue       int    `json:"total_value"`
}

// =============================================================================
// PERFORMANCE
// =============================================================================

// PerformanceDTO is one performance record.
type PerformanceDTO struct {
	ID         string `json:"id"`
	StaffID    string `json:"staff_id"`
	Date       string `json:"date"`
	RecordType string `json:"record_type"`
	Value      int    `json:"value"`
}

// RecordPerformanceRequest adds a record. StaffID defaults to the caller.
type RecordPerformanceRequest struct {
	StaffID    string `json:"staff_id"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	RecordType string `json:"record_type" validate:"required,max=50"`
	Value      int    `json:"value"`
}

func toPerformanceDTO(p office.PerformanceRecord) PerformanceDTO {
	return PerformanceDTO{
		ID:         p.ID,
		StaffID:    string(p.StaffID),
		Date:       p.Date.Format(dateLayout),
		RecordType: p.RecordType,
		Value:      p.Value,
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceDTO is one day of attendance.
type AttendanceDTO struct {
	ID           string  `json:"id"`
	StaffID      string  `json:"staff_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	WorkDate     string  `json:"work_date"`
	CheckInTime  string  `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time"`
	Memo         string  `json:"memo"`
}

func toAttendanceDTO(a office.AttendanceRecord, loc *time.Location) AttendanceDTO {
	dto := AttendanceDTO{
		ID:           a.ID,
		StaffID:      string(a.StaffID),
		EmployeeName: a.StaffName,
		WorkDate:     a.WorkDate.Format(dateLayout),
		CheckInTime:  a.CheckInAt.In(loc).Format(time.RFC3339),
		Memo:         a.Memo,
	}
	if a.CheckOutAt != nil {
		out := a.CheckOutAt.In(loc).Format(time.RFC3339)
		dto.CheckOutTime = &out
	}
	return dto
}

// =============================================================================
// SETTINGS
// =============================================================================

// SettingDTO is one site configuration entry.
type SettingDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PutSettingRequest sets the value of the key in the URL.
type PutSettingRequest struct {
	Value string `json:"value"`
}
