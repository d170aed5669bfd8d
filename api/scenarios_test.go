package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/store/sqlite"
)

func newScenarioEnv(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := newTestEnvWith(t, func(s *sqlite.Store) []HandlerOption {
		return []HandlerOption{WithScenarios(s)}
	})
	return env, env.seedStaff("boss", "boss", office.GroupAdmin)
}

// loadScenario loads id and returns the demo tokens keyed by username.
func (e *testEnv) loadScenario(adminToken, id string) map[string]string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/scenarios/load", adminToken, LoadScenarioRequest{ScenarioID: id})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	loaded := decodeAs[ScenarioLoadedDTO](e.t, rec)
	require.Equal(e.t, id, loaded.Scenario.ID)
	tokens := make(map[string]string, len(loaded.Accounts))
	for _, a := range loaded.Accounts {
		tokens[a.Username] = a.Token
	}
	return tokens
}

func TestScenarios_NotMountedByDefault(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedStaff("boss", "boss", office.GroupAdmin)

	rec := env.do(http.MethodGet, "/api/scenarios", admin, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenarios_ListAndCurrent(t *testing.T) {
	env, admin := newScenarioEnv(t)

	rec := env.do(http.MethodGet, "/api/scenarios", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ScenarioDTO](t, rec), len(scenarios))

	// Nothing loaded yet
	rec = env.do(http.MethodGet, "/api/scenarios/current", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestScenarios_UnknownAndForbidden(t *testing.T) {
	env, admin := newScenarioEnv(t)
	staff := env.seedStaff("s-1", "kim", office.GroupStaff)

	rec := env.do(http.MethodPost, "/api/scenarios/load", admin, LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/scenarios/load", admin, LoadScenarioRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/scenarios/load", staff, LoadScenarioRequest{ScenarioID: "fresh-office"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScenario_FreshOffice(t *testing.T) {
	env, boss := newScenarioEnv(t)

	// GIVEN: the fresh office is loaded
	tokens := env.loadScenario(boss, "fresh-office")
	admin := tokens["admin"]
	require.NotEmpty(t, admin)

	// THEN: the caller's own account went with the reset
	rec := env.do(http.MethodGet, "/api/me", boss, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// AND: every client waits for distribution
	rec = env.do(http.MethodGet, "/api/clients?distributed=false", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeAs[ClientPageDTO](t, rec)
	assert.Equal(t, 24, page.Count)

	// AND: the tier table is installed
	rec = env.do(http.MethodGet, "/api/incentives", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]IncentiveRuleDTO](t, rec), 3)

	// AND: the three agents are on the roster
	rec = env.do(http.MethodGet, "/api/staff", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]RosterEntryDTO](t, rec), 3)

	rec = env.do(http.MethodGet, "/api/scenarios/current", admin, nil)
	assert.Equal(t, "fresh-office", decodeAs[ScenarioDTO](t, rec).ID)
}

func TestScenario_BusyMonth(t *testing.T) {
	env, boss := newScenarioEnv(t)

	// GIVEN: the busy month is loaded on Monday 2025-03-10
	tokens := env.loadScenario(boss, "busy-month")
	admin, kim := tokens["admin"], tokens["kim"]

	// THEN: four batches of nine, all distributed, nine contracts
	rec := env.do(http.MethodGet, "/api/statistics", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decodeAs[StatisticsDTO](t, rec)
	assert.Equal(t, 36, stats.Summary.TotalClients)
	assert.Equal(t, 0, stats.Summary.UnassignedClients)
	assert.Equal(t, 9, stats.Summary.TotalContracts)
	assert.Equal(t, 9, stats.MonthlyPerformance.NewClients)

	// AND: the board pays each tier
	rec = env.do(http.MethodGet, "/api/incentives/board", kim, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rewards := map[string]int64{}
	for _, row := range decodeAs[[]BoardRowDTO](t, rec) {
		rewards[row.StaffID] = row.RewardAmount
	}
	assert.Equal(t, map[string]int64{"demo-kim": 300000, "demo-lee": 150000, "demo-park": 50000}, rewards)

	// AND: five past weekdays for three agents plus two check-ins today
	rec = env.do(http.MethodGet, "/api/attendance", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]AttendanceDTO](t, rec), 17)

	rec = env.do(http.MethodGet, "/api/attendance/today", kim, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-10", decodeAs[AttendanceDTO](t, rec).WorkDate)

	// AND: the call ranking follows the seeded totals
	rec = env.do(http.MethodGet, "/api/performance/ranking?type=calls", kim, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranking := decodeAs[[]RankedEntryDTO](t, rec)
	require.Len(t, ranking, 3)
	assert.Equal(t, "park", ranking[0].EmployeeUsername)
	assert.Equal(t, 186, ranking[0].TotalValue)
	assert.Equal(t, "kim", ranking[2].EmployeeUsername)
	assert.Equal(t, 126, ranking[2].TotalValue)
}

func TestScenario_ReloadReplacesData(t *testing.T) {
	env, boss := newScenarioEnv(t)

	tokens := env.loadScenario(boss, "busy-month")
	tokens = env.loadScenario(tokens["admin"], "fresh-office")

	rec := env.do(http.MethodGet, "/api/clients", tokens["admin"], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, decodeAs[ClientPageDTO](t, rec).Count)
}
