/*
scenarios.go - Demo data loaders

PURPOSE:
  Provides predefined office states for demos and front-end development.
  Each scenario wipes the database and seeds a consistent set of accounts,
  clients, incentive tiers, attendance and performance through the same
  services the API uses.

SCENARIOS:
  1. fresh-office: Three agents, a tier table and an undistributed batch
  2. busy-month:   Four months of history, contracts this month, attendance
                   and performance, so every dashboard has data

SAFETY:
  Mounted only when the server runs with enable_scenarios. Loading returns
  fresh tokens for the demo accounts because the caller's own account is
  wiped with everything else.

SEE ALSO:
  - handlers.go: Services used for seeding
  - store/sqlite/sqlite.go: Reset
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/office"
)

// ScenarioStore is what the loaders need beyond the services.
type ScenarioStore interface {
	Reset(ctx context.Context) error
	SaveStaff(ctx context.Context, s office.Staff) error
	ListClients(ctx context.Context, q office.ClientQuery) ([]office.Client, int, error)
}

// scenarioState tracks the loaded scenario.
type scenarioState struct {
	store   ScenarioStore
	mu      sync.Mutex
	current string
}

// WithScenarios mounts the demo loaders backed by store.
func WithScenarios(store ScenarioStore) HandlerOption {
	return func(h *Handler) {
		if store != nil {
			h.scenarios = &scenarioState{store: store}
		}
	}
}

// ScenarioDTO describes a loadable scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// DemoAccountDTO is a seeded account with a ready-to-use token.
type DemoAccountDTO struct {
	StaffDTO
	Token string `json:"token"`
}

// ScenarioLoadedDTO is the response of a successful load.
type ScenarioLoadedDTO struct {
	Scenario ScenarioDTO      `json:"scenario"`
	Accounts []DemoAccountDTO `json:"accounts"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-office",
		Name:        "Fresh Office",
		Description: "Three agents, a tier table and a batch of clients waiting for distribution",
	},
	{
		ID:          "busy-month",
		Name:        "Busy Month",
		Description: "Four months of clients, contracts this month, attendance and performance records",
	},
}

var demoStaff = []office.Staff{
	{ID: "demo-admin", Username: "admin", DisplayName: "Office Admin", Groups: []office.Group{office.GroupAdmin}},
	{ID: "demo-kim", Username: "kim", DisplayName: "Kim Minji", Groups: []office.Group{office.GroupStaff}},
	{ID: "demo-lee", Username: "lee", DisplayName: "Lee Junho", Groups: []office.Group{office.GroupStaff}},
	{ID: "demo-park", Username: "park", DisplayName: "Park Seoyeon", Groups: []office.Group{office.GroupStaff}},
}

var demoRules = []office.IncentiveRule{
	{Condition: "1~2", Reward: 50000},
	{Condition: "3~4", Reward: 150000},
	{Condition: "5", Reward: 300000},
}

var demoDistricts = []string{
	"Seoul Gangnam-gu", "Seoul Mapo-gu", "Seoul Songpa-gu",
	"Busan Haeundae-gu", "Incheon Yeonsu-gu", "Seoul Gangnam-gu",
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the loaded scenario, or null when none is.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarios.mu.Lock()
	current := h.scenarios.current
	h.scenarios.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario wipes the database and seeds the chosen scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var scenario *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			scenario = &scenarios[i]
		}
	}
	if scenario == nil {
		h.writeError(w, r, fmt.Errorf("scenario %q: %w", req.ScenarioID, office.ErrNotFound))
		return
	}

	h.scenarios.mu.Lock()
	defer h.scenarios.mu.Unlock()

	ctx := r.Context()
	if err := h.scenarios.store.Reset(ctx); err != nil {
		h.writeError(w, r, fmt.Errorf("failed to reset store: %w", err))
		return
	}
	h.scenarios.current = ""

	accounts, err := h.seedAccounts(ctx)
	if err == nil {
		switch scenario.ID {
		case "fresh-office":
			err = h.loadFreshOffice(ctx)
		case "busy-month":
			err = h.loadBusyMonth(ctx)
		}
	}
	if err != nil {
		h.writeError(w, r, fmt.Errorf("failed to load scenario %s: %w", scenario.ID, err))
		return
	}
	h.scenarios.current = scenario.ID

	h.log.Warn(ctx, "demo scenario loaded", logger.String("scenario", scenario.ID))
	writeJSON(w, http.StatusOK, ScenarioLoadedDTO{Scenario: *scenario, Accounts: accounts})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedAccounts creates the demo accounts and issues their tokens.
func (h *Handler) seedAccounts(ctx context.Context) ([]DemoAccountDTO, error) {
	now := h.clock()
	accounts := make([]DemoAccountDTO, 0, len(demoStaff))
	for i, s := range demoStaff {
		s.Active = true
		s.CreatedAt = now.AddDate(0, -6, 0).Add(time.Duration(i) * time.Minute)
		if err := h.scenarios.store.SaveStaff(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", s.Username, err)
		}
		token, err := h.tokens.Issue(s.ID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, DemoAccountDTO{StaffDTO: toStaffDTO(s), Token: token})
	}
	return accounts, nil
}

func agentIDs() []office.StaffID {
	var ids []office.StaffID
	for _, s := range demoStaff {
		if s.InGroup(office.GroupStaff) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// demoRows builds n import rows numbered from first.
func demoRows(first, n int) []office.ImportRow {
	rows := make([]office.ImportRow, n)
	for i := range rows {
		k := first + i
		rows[i] = office.ImportRow{
			Name:    fmt.Sprintf("Client %03d", k),
			Contact: fmt.Sprintf("010-%04d-%04d", 1000+k, 5000+k*7%1000),
			Address: demoDistricts[k%len(demoDistricts)],
			Note:    "demo",
		}
	}
	return rows
}

// loadFreshOffice: tiers plus one undistributed batch created today.
func (h *Handler) loadFreshOffice(ctx context.Context) error {
	if _, err := h.Rules.ReplaceAll(ctx, demoRules); err != nil {
		return err
	}
	if _, err := h.Clients.Import(ctx, demoRows(1, 24), h.clock()); err != nil {
		return err
	}
	_, err := h.Settings.Put(ctx, "office_name", "Demo Office")
	return err
}

// loadBusyMonth: a batch per trailing month distributed on its creation
// day, agents closing deals this month, attendance for past working days
// and a few performance records.
func (h *Handler) loadBusyMonth(ctx context.Context) error {
	now := h.clock()
	if _, err := h.Rules.ReplaceAll(ctx, demoRules); err != nil {
		return err
	}
	if _, err := h.Settings.Put(ctx, "office_name", "Demo Office"); err != nil {
		return err
	}

	agents := agentIDs()
	next := 1
	for _, month := range office.TrailingMonths(now, 4) {
		created := month.From.Add(9 * time.Hour)
		if created.After(now) {
			created = now
		}
		if _, err := h.Clients.Import(ctx, demoRows(next, 9), created); err != nil {
			return err
		}
		next += 9

		batch, _, err := h.scenarios.store.ListClients(ctx, office.ClientQuery{
			Created:           &month,
			UndistributedOnly: true,
		})
		if err != nil {
			return err
		}
		ids := make([]office.ClientID, len(batch))
		for i, c := range batch {
			ids[i] = c.ID
		}
		if _, err := h.Distributor.Distribute(ctx, office.DistributionRequest{
			ClientIDs: ids,
			StaffIDs:  agents,
			Date:      created,
		}); err != nil {
			return err
		}
	}

	// Outcomes this month: kim closes 5, lee 3, park 1.
	closes := map[office.StaffID]int{"demo-kim": 5, "demo-lee": 3, "demo-park": 1}
	for _, id := range agents {
		if err := h.closeDeals(ctx, id, closes[id], now); err != nil {
			return err
		}
	}

	if err := h.seedAttendance(ctx, agents, now); err != nil {
		return err
	}

	for i, id := range agents {
		for day := 1; day <= 3; day++ {
			date := now.AddDate(0, 0, -day)
			if _, err := h.Performance.Record(ctx, id, date, "calls", 40+10*i+day); err != nil {
				return err
			}
			if _, err := h.Performance.Record(ctx, id, date, "appointments", 2+i); err != nil {
				return err
			}
		}
	}
	return nil
}

// closeDeals marks up to wins of the agent's clients as contracts and gives
// the rest a non-contract outcome, acting as the agent.
func (h *Handler) closeDeals(ctx context.Context, id office.StaffID, wins int, now time.Time) error {
	agent, err := h.Directory.Get(ctx, id)
	if err != nil {
		return err
	}
	owned, _, err := h.scenarios.store.ListClients(ctx, office.ClientQuery{Owner: &id})
	if err != nil {
		return err
	}
	others := []office.Status{office.StatusPromising, office.StatusAbsent, office.StatusFailed}
	for i, c := range owned {
		status := others[i%len(others)]
		if i < wins {
			status = office.StatusSuccess1
			if i%2 == 1 {
				status = office.StatusSuccess2
			}
		}
		note := "call back after 6pm"
		if _, err := h.Clients.Update(ctx, agent, c.ID, office.ClientPatch{Status: &status, EmployeeNote: &note}, now); err != nil {
			return err
		}
	}
	return nil
}

// seedAttendance checks every agent in at 09:00 on past weekdays of this
// month, and out at 18:00. Today only the first two have checked in.
func (h *Handler) seedAttendance(ctx context.Context, agents []office.StaffID, now time.Time) error {
	today := office.DayOf(now)
	for day := office.MonthOf(now).From; day.Before(today); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, id := range agents {
			if _, err := h.Attendance.CheckIn(ctx, id, day.Add(9*time.Hour)); err != nil {
				return err
			}
			if _, err := h.Attendance.CheckOut(ctx, id, day.Add(18*time.Hour)); err != nil {
				return err
			}
		}
	}
	for _, id := range agents[:2] {
		if _, err := h.Attendance.CheckIn(ctx, id, now); err != nil {
			return err
		}
	}
	return nil
}
