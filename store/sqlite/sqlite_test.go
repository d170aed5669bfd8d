package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/backoffice/office"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	march1  = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	march10 = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *Store {
	store, err := New(":memory:", WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedStaff(t *testing.T, s *Store, id, username string, groups ...office.Group) office.Staff {
	t.Helper()
	st := office.Staff{
		ID:        office.StaffID(id),
		Username:  username,
		Groups:    groups,
		Active:    true,
		CreatedAt: march1,
	}
	require.NoError(t, s.SaveStaff(context.Background(), st))
	return st
}

func seedClient(t *testing.T, s *Store, id string, created time.Time, mutate ...func(*office.Client)) office.Client {
	t.Helper()
	c := office.Client{
		ID:                 office.ClientID(id),
		Name:               "client " + id,
		Contact:            "010-0000-" + id,
		Status:             office.StatusPending,
		TransmissionStatus: office.TransmissionNotSent,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, m := range mutate {
		m(&c)
	}
	require.NoError(t, s.CreateClients(context.Background(), []office.Client{c}))
	return c
}

func ownedBy(id string) func(*office.Client) {
	return func(c *office.Client) {
		owner := office.StaffID(id)
		c.Owner = &owner
		c.IsDistributed = true
		day := office.DayOf(c.CreatedAt)
		c.DistributionDate = &day
	}
}

func withStatus(st office.Status) func(*office.Client) {
	return func(c *office.Client) { c.Status = st }
}

// =============================================================================
// STAFF
// =============================================================================

func TestStaff_SaveAndGet_WithGroups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedStaff(t, s, "s-1", "kim", office.GroupStaff, office.GroupAdmin)

	got, err := s.GetStaff(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kim", got.Username)
	assert.Equal(t, []office.Group{office.GroupAdmin, office.GroupStaff}, got.Groups)
	assert.True(t, got.CreatedAt.Equal(march1))

	missing, err := s.GetStaff(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStaff_DuplicateUsername_Conflict(t *testing.T) {
	s := newTestStore(t)
	seedStaff(t, s, "s-1", "kim")

	err := s.SaveStaff(context.Background(), office.Staff{ID: "s-2", Username: "kim", CreatedAt: march1})
	assert.ErrorIs(t, err, office.ErrConflict)
}

func TestStaff_UpdateReplacesGroups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	st := seedStaff(t, s, "s-1", "kim", office.GroupAdmin)

	st.Groups = []office.Group{office.GroupStaff}
	st.Active = false
	require.NoError(t, s.UpdateStaff(ctx, st))

	got, err := s.GetStaff(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []office.Group{office.GroupStaff}, got.Groups)
	assert.False(t, got.Active)

	err = s.UpdateStaff(ctx, office.Staff{ID: "ghost"})
	assert.ErrorIs(t, err, office.ErrNotFound)
}

func TestStaff_DeleteReleasesClients(t *testing.T) {
	// GIVEN: A staff member owning a distributed client, with attendance
	// WHEN: The account is deleted
	// THEN: The client survives unowned and undistributed; attendance is gone

	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedClient(t, s, "c-1", march10, ownedBy("s-1"))
	require.NoError(t, s.CreateAttendance(ctx, office.AttendanceRecord{
		ID: "a-1", StaffID: "s-1", WorkDate: office.DayOf(march10), CheckInAt: march10,
	}))

	require.NoError(t, s.DeleteStaff(ctx, "s-1"))

	c, err := s.GetClient(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Nil(t, c.Owner)
	assert.False(t, c.IsDistributed)
	assert.Nil(t, c.DistributionDate)

	rec, err := s.GetAttendance(ctx, "s-1", march10)
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.ErrorIs(t, s.DeleteStaff(ctx, "s-1"), office.ErrNotFound)
}

// =============================================================================
// CLIENTS
// =============================================================================

func TestClients_ListFiltersAndPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)

	for i := 1; i <= 5; i++ {
		seedClient(t, s, fmt.Sprintf("%d", i), march1.AddDate(0, 0, i))
	}
	seedClient(t, s, "6", march1.AddDate(0, 0, 6), ownedBy("s-1"))
	seedClient(t, s, "7", march1.AddDate(0, 0, 7), func(c *office.Client) { c.Name = "100%_match" })

	// Paged, newest first
	page, total, err := s.ListClients(ctx, office.ClientQuery{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, page, 3)
	assert.Equal(t, office.ClientID("7"), page[0].ID)
	assert.Equal(t, office.ClientID("5"), page[2].ID)

	// Owner filter
	owner := office.StaffID("s-1")
	owned, total, err := s.ListClients(ctx, office.ClientQuery{Owner: &owner})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, office.ClientID("6"), owned[0].ID)

	// Undistributed + created window [Mar 2, Mar 4)
	w := office.Window{From: march1.AddDate(0, 0, 2), To: march1.AddDate(0, 0, 4)}
	ranged, total, err := s.ListClients(ctx, office.ClientQuery{Created: &w, UndistributedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, ranged, 2)

	// LIKE wildcards are matched literally
	found, total, err := s.ListClients(ctx, office.ClientQuery{NameContains: "0%_m"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, office.ClientID("7"), found[0].ID)
}

func TestClients_CreateBatchIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []office.Client{
		{ID: "c-1", Name: "a", Contact: "1", Status: office.StatusPending, CreatedAt: march1, UpdatedAt: march1},
		{ID: "c-1", Name: "b", Contact: "2", Status: office.StatusPending, CreatedAt: march1, UpdatedAt: march1},
	}
	err := s.CreateClients(ctx, batch)
	assert.Error(t, err)

	_, total, err := s.ListClients(ctx, office.ClientQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, total, "a failed batch leaves nothing behind")
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

func TestDistribution_FailureRollsBackEveryAssignment(t *testing.T) {
	// GIVEN: Three undistributed clients, and the store refuses to touch c-3
	// WHEN: All three are distributed
	// THEN: The call fails and c-1, c-2 keep their original owner and flag

	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedStaff(t, s, "s-2", "lee", office.GroupStaff)
	for i := 1; i <= 3; i++ {
		seedClient(t, s, fmt.Sprintf("c-%d", i), march1.Add(time.Duration(i)*time.Minute))
	}

	_, err := s.db.Exec(`
		CREATE TRIGGER refuse_c3 BEFORE UPDATE OF owner_id ON clients
		WHEN NEW.id = 'c-3'
		BEGIN SELECT RAISE(ABORT, 'refused'); END`)
	require.NoError(t, err)

	d := office.NewDistributor(s)
	_, err = d.Distribute(ctx, office.DistributionRequest{
		ClientIDs: []office.ClientID{"c-1", "c-2", "c-3"},
		StaffIDs:  []office.StaffID{"s-1", "s-2"},
		Date:      march10,
	})
	require.Error(t, err)

	for i := 1; i <= 3; i++ {
		c, err := s.GetClient(ctx, office.ClientID(fmt.Sprintf("c-%d", i)))
		require.NoError(t, err)
		assert.Nil(t, c.Owner, "client c-%d", i)
		assert.False(t, c.IsDistributed, "client c-%d", i)
		assert.Nil(t, c.DistributionDate, "client c-%d", i)
	}
}

func TestDistribution_AssignsInStoreOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedStaff(t, s, "s-2", "lee", office.GroupStaff)
	seedStaff(t, s, "boss", "park", office.GroupAdmin)
	for i := 1; i <= 5; i++ {
		seedClient(t, s, fmt.Sprintf("c-%d", i), march1.Add(time.Duration(i)*time.Minute))
	}
	at := march10.Add(time.Hour)

	d := office.NewDistributor(s, office.WithClock(func() time.Time { return at }))
	res, err := d.Distribute(ctx, office.DistributionRequest{
		// Request order of clients does not matter; store order does
		ClientIDs: []office.ClientID{"c-5", "c-1", "c-3", "c-2", "c-4", "c-404"},
		StaffIDs:  []office.StaffID{"s-2", "boss", "s-1"},
		Date:      march10,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Distributed)
	assert.Equal(t, 2, res.StaffCount)
	assert.Equal(t, []office.ClientID{"c-404"}, res.Missing)

	want := map[office.ClientID]office.StaffID{
		"c-1": "s-2", "c-2": "s-1", "c-3": "s-2", "c-4": "s-1", "c-5": "s-2",
	}
	for id, owner := range want {
		c, err := s.GetClient(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, c.Owner)
		assert.Equal(t, owner, *c.Owner, "client %s", id)
		assert.True(t, c.IsDistributed)
		require.NotNil(t, c.DistributionDate)
		assert.Equal(t, "2025-03-10", c.DistributionDate.Format("2006-01-02"))
		assert.True(t, c.UpdatedAt.Equal(at))
	}
}

func TestDistribution_LargeBatchSpansSeveralQueries(t *testing.T) {
	// GIVEN: More clients than fit in one IN list
	// WHEN: All of them are distributed to two agents
	// THEN: Every client is assigned, alternating in creation order

	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedStaff(t, s, "s-2", "lee", office.GroupStaff)

	const n = 1200
	batch := make([]office.Client, n)
	ids := make([]office.ClientID, n)
	for i := range batch {
		at := march1.Add(time.Duration(i) * time.Second)
		batch[i] = office.Client{
			ID:        office.ClientID(fmt.Sprintf("c-%04d", i)),
			Name:               "client",
			Contact:            "010",
			Status:             office.StatusPending,
			TransmissionStatus: office.TransmissionNotSent,
			CreatedAt:          at,
			UpdatedAt:          at,
		}
		// Newest first, so store order has to be rebuilt across chunks
		ids[n-1-i] = batch[i].ID
	}
	require.NoError(t, s.CreateClients(ctx, batch))

	var got []office.Client
	require.NoError(t, s.WithTx(ctx, func(tx office.DistributionTx) error {
		var err error
		got, err = tx.ClientsByIDs(ctx, ids)
		return err
	}))
	require.Len(t, got, n)
	for i, c := range got {
		require.Equal(t, batch[i].ID, c.ID)
	}

	res, err := office.NewDistributor(s).Distribute(ctx, office.DistributionRequest{
		ClientIDs: ids,
		StaffIDs:  []office.StaffID{"s-1", "s-2"},
		Date:      march10,
	})
	require.NoError(t, err)
	assert.Equal(t, n, res.Distributed)
	assert.Empty(t, res.Missing)

	for _, i := range []int{0, 1, 499, 500, 501, 1199} {
		c, err := s.GetClient(ctx, batch[i].ID)
		require.NoError(t, err)
		require.NotNil(t, c.Owner)
		want := office.StaffID("s-1")
		if i%2 == 1 {
			want = "s-2"
		}
		assert.Equal(t, want, *c.Owner, "client %s", c.ID)
	}
}

func TestClients_UpdateWritesDetailsOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedClient(t, s, "c-1", march1, ownedBy("s-1"))

	// The callback cannot move the client
	updated, err := s.UpdateClient(ctx, "c-1", func(c *office.Client) error {
		c.Status = office.StatusSuccess1
		c.Owner = nil
		c.IsDistributed = false
		c.DistributionDate = nil
		c.UpdatedAt = march10
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, office.StatusSuccess1, updated.Status)

	c, err := s.GetClient(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, office.StatusSuccess1, c.Status)
	require.NotNil(t, c.Owner)
	assert.Equal(t, office.StaffID("s-1"), *c.Owner)
	assert.True(t, c.IsDistributed)
	assert.NotNil(t, c.DistributionDate)
	assert.True(t, c.UpdatedAt.Equal(march10))

	// A failing callback writes nothing
	refused := errors.New("refused")
	_, err = s.UpdateClient(ctx, "c-1", func(c *office.Client) error {
		c.Status = office.StatusFailed
		return refused
	})
	assert.ErrorIs(t, err, refused)
	c, err = s.GetClient(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, office.StatusSuccess1, c.Status)

	_, err = s.UpdateClient(ctx, "c-404", func(*office.Client) error { return nil })
	assert.ErrorIs(t, err, office.ErrNotFound)
}

// =============================================================================
// INCENTIVE RULES
// =============================================================================

func TestRules_ReplaceKeepsDeclaredOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rules := []office.IncentiveRule{
		{ID: "r-1", Condition: "5", Reward: 10000},
		{ID: "r-2", Condition: "1~2", Reward: 3000},
		{ID: "r-3", Condition: "3~4", Reward: 5000},
	}
	require.NoError(t, s.ReplaceRules(ctx, rules))

	got, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}

func TestRules_FailedReplaceLeavesTableUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before := []office.IncentiveRule{{ID: "r-1", Condition: "5", Reward: 10000}}
	require.NoError(t, s.ReplaceRules(ctx, before))

	// Duplicate primary key fails on the second insert
	err := s.ReplaceRules(ctx, []office.IncentiveRule{
		{ID: "x", Condition: "1", Reward: 1},
		{ID: "x", Condition: "2", Reward: 2},
	})
	require.Error(t, err)

	got, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, got)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendance_ConcurrentCheckIn_ExactlyOneWins(t *testing.T) {
	// GIVEN: One staff member
	// WHEN: Ten check-ins for the same day race
	// THEN: Exactly one succeeds, the rest fail with ErrAlreadyCheckedIn

	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)

	const attempts = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
		other    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateAttendance(ctx, office.AttendanceRecord{
				ID:        fmt.Sprintf("a-%d", i),
				StaffID:   "s-1",
				WorkDate:  office.DayOf(march10),
				CheckInAt: march10,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, office.ErrAlreadyCheckedIn):
				dups++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, dups)
}

func TestAttendance_CheckOutStates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	day := office.DayOf(march10)
	out := march10.Add(8 * time.Hour)

	_, err := s.CloseAttendance(ctx, "s-1", day, out)
	assert.ErrorIs(t, err, office.ErrNoCheckInFound)

	require.NoError(t, s.CreateAttendance(ctx, office.AttendanceRecord{
		ID: "a-1", StaffID: "s-1", WorkDate: day, CheckInAt: march10,
	}))

	rec, err := s.CloseAttendance(ctx, "s-1", day, out)
	require.NoError(t, err)
	require.NotNil(t, rec.CheckOutAt)
	assert.True(t, rec.CheckOutAt.Equal(out))
	assert.Equal(t, "kim", rec.StaffName)

	_, err = s.CloseAttendance(ctx, "s-1", day, out.Add(time.Hour))
	assert.ErrorIs(t, err, office.ErrAlreadyCheckedOut)

	again, err := s.GetAttendance(ctx, "s-1", day)
	require.NoError(t, err)
	assert.True(t, again.CheckOutAt.Equal(out), "first check-out time is kept")
}

func TestAttendance_ListMonthAndCheckedIn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedStaff(t, s, "s-2", "lee", office.GroupStaff)

	for i, at := range []time.Time{march10, march10.AddDate(0, 0, 1), march10.AddDate(0, 1, 0)} {
		require.NoError(t, s.CreateAttendance(ctx, office.AttendanceRecord{
			ID: fmt.Sprintf("a-%d", i), StaffID: "s-1", WorkDate: office.DayOf(at), CheckInAt: at,
		}))
	}

	recs, err := s.ListAttendance(ctx, office.MonthOf(march10))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2025-03-11", recs[0].WorkDate.Format("2006-01-02"))

	checked, err := s.CheckedInOn(ctx, office.DayOf(march10))
	require.NoError(t, err)
	assert.True(t, checked["s-1"])
	assert.False(t, checked["s-2"])
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReports_CountsAndRankings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedStaff(t, s, "s-2", "lee", office.GroupStaff)

	seedClient(t, s, "1", march10, ownedBy("s-1"), withStatus(office.StatusSuccess1),
		func(c *office.Client) { c.Address = "Seoul" })
	seedClient(t, s, "2", march10, ownedBy("s-1"), withStatus(office.StatusSuccess2),
		func(c *office.Client) { c.Address = "Seoul" })
	seedClient(t, s, "3", march10, ownedBy("s-1"), withStatus(office.StatusFailed),
		func(c *office.Client) { c.Address = "Busan" })
	seedClient(t, s, "4", march10.AddDate(0, -1, 0), ownedBy("s-2"), withStatus(office.StatusSuccess1),
		func(c *office.Client) { c.Address = "Busan" })
	seedClient(t, s, "5", march10, func(c *office.Client) { c.Address = "Daegu" })

	byStatus, err := s.OwnedStatusCounts(ctx, "s-1", office.MonthOf(march10))
	require.NoError(t, err)
	assert.Equal(t, map[office.Status]int{
		office.StatusSuccess1: 1, office.StatusSuccess2: 1, office.StatusFailed: 1,
	}, byStatus)

	totals, err := s.ClientTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, office.ClientTotals{Total: 5, Undistributed: 1, Contracts: 3}, totals)

	month, err := s.CreatedCounts(ctx, office.MonthOf(march10))
	require.NoError(t, err)
	assert.Equal(t, office.CreatedCounts{New: 4, Contracts: 2}, month)

	top, err := s.TopAddresses(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []office.AddressCount{{Address: "Busan", Count: 2}, {Address: "Seoul", Count: 2}}, top)

	wins, err := s.SuccessCountsByOwner(ctx, office.MonthOf(march10))
	require.NoError(t, err)
	assert.Equal(t, map[office.StaffID]int{"s-1": 2}, wins)
}

func TestReports_PerformanceTotalsIncludeZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedStaff(t, s, "s-1", "kim", office.GroupStaff)
	seedStaff(t, s, "s-2", "lee", office.GroupStaff)
	seedStaff(t, s, "s-3", "ahn", office.GroupStaff)

	add := func(id, staff, typ string, v int) {
		require.NoError(t, s.AddPerformance(ctx, office.PerformanceRecord{
			ID: id, StaffID: office.StaffID(staff), Date: march10, RecordType: typ, Value: v,
		}))
	}
	add("p-1", "s-2", "calls", 5)
	add("p-2", "s-2", "calls", 4)
	add("p-3", "s-1", "calls", 9)
	add("p-4", "s-3", "visits", 100)

	totals, err := s.PerformanceTotals(ctx, "calls", 3)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	// Tie at 9 broken by username; ahn has no calls and still ranks
	assert.Equal(t, "kim", totals[0].Staff.Username)
	assert.Equal(t, "lee", totals[1].Staff.Username)
	assert.Equal(t, 9, totals[1].Total)
	assert.Equal(t, "ahn", totals[2].Staff.Username)
	assert.Equal(t, 0, totals[2].Total)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_PutOverwritesAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, office.Setting{Key: "site_name", Value: "A"}))
	require.NoError(t, s.PutSetting(ctx, office.Setting{Key: "site_name", Value: "B"}))

	got, err := s.GetSetting(ctx, "site_name")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Value)

	require.NoError(t, s.DeleteSetting(ctx, "site_name"))
	assert.ErrorIs(t, s.DeleteSetting(ctx, "site_name"), office.ErrNotFound)

	list, err := s.ListSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
