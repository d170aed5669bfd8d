package office_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var seoul = time.FixedZone("KST", 9*60*60)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:", sqlite.WithLocation(seoul))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedStaff(t *testing.T, store *sqlite.Store, id, username string, groups ...office.Group) office.Staff {
	t.Helper()
	s := office.Staff{
		ID:        office.StaffID(id),
		Username:  username,
		Groups:    groups,
		Active:    true,
		CreatedAt: time.Date(2025, time.January, 1, 0, 0, 0, 0, seoul),
	}
	require.NoError(t, store.SaveStaff(context.Background(), s))
	return s
}

// =============================================================================
// RULE BOOK
// =============================================================================

func TestRuleBook_ReplaceAll_NormalizesAndOrders(t *testing.T) {
	store := newTestStore(t)
	book := office.NewRuleBook(store)
	ctx := context.Background()

	saved, err := book.ReplaceAll(ctx, []office.IncentiveRule{
		{Condition: "1-2", Reward: 1000},
		{Condition: " 3~4 ", Reward: 2000},
		{Condition: "5", Reward: 3000},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, r := range saved {
		assert.NotEmpty(t, r.ID)
	}

	rules, err := book.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "1~2", rules[0].Condition)
	assert.Equal(t, "3~4", rules[1].Condition)
	assert.Equal(t, "5", rules[2].Condition)

	reward, err := book.Reward(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), reward)
}

func TestRuleBook_InvalidRuleLeavesTableUnchanged(t *testing.T) {
	// GIVEN: A live tier table
	// WHEN: A replacement with one negative reward is submitted
	// THEN: ValidationError naming that rule; the live table is untouched

	store := newTestStore(t)
	book := office.NewRuleBook(store)
	ctx := context.Background()

	before, err := book.ReplaceAll(ctx, []office.IncentiveRule{{Condition: "3", Reward: 5000}})
	require.NoError(t, err)

	_, err = book.ReplaceAll(ctx, []office.IncentiveRule{
		{Condition: "1", Reward: 100},
		{Condition: "2", Reward: -5},
	})
	require.ErrorIs(t, err, office.ErrValidation)
	var ve *office.RuleValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Index)

	_, err = book.ReplaceAll(ctx, []office.IncentiveRule{{Condition: "many", Reward: 1}})
	assert.ErrorIs(t, err, office.ErrValidation)

	after, err := book.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRuleBook_ReplaceWithEmptyClearsTable(t *testing.T) {
	store := newTestStore(t)
	book := office.NewRuleBook(store)
	ctx := context.Background()

	_, err := book.ReplaceAll(ctx, []office.IncentiveRule{{Condition: "1", Reward: 1}})
	require.NoError(t, err)
	_, err = book.ReplaceAll(ctx, nil)
	require.NoError(t, err)

	rules, err := book.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendance_CheckInTwice(t *testing.T) {
	store := newTestStore(t)
	seedStaff(t, store, "s-1", "kim", office.GroupStaff)
	att := office.NewAttendance(store)
	ctx := context.Background()
	morning := time.Date(2025, time.March, 10, 9, 0, 0, 0, seoul)

	rec, err := att.CheckIn(ctx, "s-1", morning)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, seoul), rec.WorkDate)
	assert.False(t, rec.CheckedOut())

	_, err = att.CheckIn(ctx, "s-1", morning.Add(time.Hour))
	assert.ErrorIs(t, err, office.ErrAlreadyCheckedIn)

	// The next calendar day is a new record
	_, err = att.CheckIn(ctx, "s-1", morning.AddDate(0, 0, 1))
	assert.NoError(t, err)
}

func TestAttendance_CheckOutLifecycle(t *testing.T) {
	store := newTestStore(t)
	seedStaff(t, store, "s-1", "kim", office.GroupStaff)
	att := office.NewAttendance(store)
	ctx := context.Background()
	morning := time.Date(2025, time.March, 10, 9, 0, 0, 0, seoul)
	evening := morning.Add(9 * time.Hour)

	_, err := att.CheckOut(ctx, "s-1", evening)
	assert.ErrorIs(t, err, office.ErrNoCheckInFound)

	_, err = att.CheckIn(ctx, "s-1", morning)
	require.NoError(t, err)

	rec, err := att.CheckOut(ctx, "s-1", evening)
	require.NoError(t, err)
	require.True(t, rec.CheckedOut())
	assert.True(t, rec.CheckOutAt.Equal(evening))

	_, err = att.CheckOut(ctx, "s-1", evening.Add(time.Minute))
	assert.ErrorIs(t, err, office.ErrAlreadyCheckedOut)

	today, err := att.Today(ctx, "s-1", evening)
	require.NoError(t, err)
	require.NotNil(t, today)
	assert.True(t, today.CheckOutAt.Equal(evening))

	none, err := att.Today(ctx, "s-1", evening.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAttendance_Month(t *testing.T) {
	store := newTestStore(t)
	seedStaff(t, store, "s-1", "kim", office.GroupStaff)
	att := office.NewAttendance(store)
	ctx := context.Background()
	now := time.Date(2025, time.March, 20, 9, 0, 0, 0, seoul)

	_, err := att.CheckIn(ctx, "s-1", now)
	require.NoError(t, err)
	_, err = att.CheckIn(ctx, "s-1", now.AddDate(0, -1, 0))
	require.NoError(t, err)

	current, err := att.Month(ctx, "", now)
	require.NoError(t, err)
	assert.Len(t, current, 1)

	feb, err := att.Month(ctx, "2025-02", now)
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "kim", feb[0].StaffName)

	bad, err := att.Month(ctx, "February", now)
	require.NoError(t, err)
	assert.Empty(t, bad)
}

// =============================================================================
// STAFF DIRECTORY
// =============================================================================

func TestDirectory_RegisterAndActivate(t *testing.T) {
	store := newTestStore(t)
	dir := office.NewDirectory(store, store)
	ctx := context.Background()
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, seoul)

	s, err := dir.Register(ctx, " choi ", "Choi", now)
	require.NoError(t, err)
	assert.False(t, s.Active)
	assert.Empty(t, s.Groups)

	_, err = dir.Register(ctx, "choi", "", now)
	assert.ErrorIs(t, err, office.ErrConflict)

	_, err = dir.Register(ctx, "  ", "", now)
	assert.ErrorIs(t, err, office.ErrInvalidRequest)

	active := true
	updated, err := dir.UpdateAccess(ctx, s.ID, office.AccessChange{
		Active: &active,
		Groups: []string{"Staff", "Wizards", "Staff"},
	})
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, []office.Group{office.GroupStaff}, updated.Groups)

	_, err = dir.UpdateAccess(ctx, "ghost", office.AccessChange{Active: &active})
	assert.ErrorIs(t, err, office.ErrNotFound)
}

func TestDirectory_RosterPutsCheckedInFirst(t *testing.T) {
	store := newTestStore(t)
	seedStaff(t, store, "s-1", "ahn", office.GroupStaff)
	seedStaff(t, store, "s-2", "bae", office.GroupStaff)
	seedStaff(t, store, "s-3", "cho", office.GroupStaff)
	seedStaff(t, store, "boss", "admin", office.GroupAdmin)
	ctx := context.Background()
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, seoul)

	_, err := office.NewAttendance(store).CheckIn(ctx, "s-3", now)
	require.NoError(t, err)

	roster, err := office.NewDirectory(store, store).Roster(ctx, now)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, office.StaffID("s-3"), roster[0].Staff.ID)
	assert.True(t, roster[0].CheckedIn)
	assert.Equal(t, office.StaffID("s-1"), roster[1].Staff.ID)
	assert.False(t, roster[1].CheckedIn)
	assert.Equal(t, office.StaffID("s-2"), roster[2].Staff.ID)
}

// =============================================================================
// PERFORMANCE & SETTINGS
// =============================================================================

func TestPerformance_Record(t *testing.T) {
	store := newTestStore(t)
	seedStaff(t, store, "s-1", "kim", office.GroupStaff)
	perf := office.NewPerformance(store, store)
	ctx := context.Background()
	day := time.Date(2025, time.March, 10, 15, 0, 0, 0, seoul)

	rec, err := perf.Record(ctx, "s-1", day, "calls", 12)
	require.NoError(t, err)
	assert.Equal(t, office.DayOf(day), rec.Date)

	_, err = perf.Record(ctx, "s-1", day, " ", 1)
	assert.ErrorIs(t, err, office.ErrInvalidRequest)

	_, err = perf.Record(ctx, "ghost", day, "calls", 1)
	assert.ErrorIs(t, err, office.ErrNotFound)

	id := office.StaffID("s-1")
	recs, err := perf.List(ctx, &id)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 12, recs[0].Value)
}

func TestSettings_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	settings := office.NewSettings(store)
	ctx := context.Background()

	_, err := settings.Put(ctx, "", "x")
	assert.ErrorIs(t, err, office.ErrInvalidRequest)

	_, err = settings.Put(ctx, "notice", "hello")
	require.NoError(t, err)

	got, err := settings.Get(ctx, "notice")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Value)

	require.NoError(t, settings.Delete(ctx, "notice"))
	_, err = settings.Get(ctx, "notice")
	assert.ErrorIs(t, err, office.ErrNotFound)
}
