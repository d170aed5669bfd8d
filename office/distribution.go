/*
distribution.go - Assigning client records to staff

PURPOSE:
  The Distribution Engine hands a batch of client records to a set of
  staff members, round-robin, optionally over a shuffled staff order.

ALGORITHM:
  1. Dedupe client and staff ids, keeping first occurrence
  2. Resolve staff in request order, keep only members of the Staff group
  3. If randomize, permute the staff list (uniform permutation, injectable)
  4. Load the target clients in store order (creation time, then id)
  5. Client i goes to staff i mod len(staff)

ATOMICITY:
  Steps 2-5 run inside one DistributionStore.WithTx call. A failure on any
  assignment rolls back every assignment already applied by the call, and
  concurrent distributions over overlapping clients can't interleave.

FAIRNESS:
  Each staff member receives either floor(n/k) or ceil(n/k) clients.

SEE ALSO:
  - store.go: DistributionStore / DistributionTx
  - store/sqlite: WithTx takes the write lock up front
*/
package office

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DistributionRequest asks for clients to be assigned across staff.
type DistributionRequest struct {
	ClientIDs []ClientID
	StaffIDs  []StaffID
	Date      time.Time // calendar day recorded as distribution_date
	Randomize bool
}

// Assignment records which staff member received a client.
type Assignment struct {
	ClientID ClientID
	StaffID  StaffID
}

// DistributionResult summarizes a completed distribution.
type DistributionResult struct {
	Distributed int
	StaffCount  int
	Assignments []Assignment
	Missing     []ClientID // requested ids that matched no client
}

// Permuter returns a permutation of [0, n).
type Permuter func(n int) []int

// Distributor is the Distribution Engine.
type Distributor struct {
	store DistributionStore
	perm  Permuter
	now   func() time.Time
}

// DistributorOption configures a Distributor.
type DistributorOption func(*Distributor)

// WithPermuter replaces the shuffle used when Randomize is set.
func WithPermuter(p Permuter) DistributorOption {
	return func(d *Distributor) {
		if p != nil {
			d.perm = p
		}
	}
}

// WithClock sets the clock used to stamp updated_at.
func WithClock(now func() time.Time) DistributorOption {
	return func(d *Distributor) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDistributor(store DistributionStore, opts ...DistributorOption) *Distributor {
	d := &Distributor{
		store: store,
		perm:  rand.Perm,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Distribute assigns every requested client to an eligible staff member.
func (d *Distributor) Distribute(ctx context.Context, req DistributionRequest) (DistributionResult, error) {
	clientIDs := dedupe(req.ClientIDs)
	staffIDs := dedupe(req.StaffIDs)
	switch {
	case len(clientIDs) == 0:
		return DistributionResult{}, missing("client_ids")
	case len(staffIDs) == 0:
		return DistributionResult{}, missing("staff_ids")
	case req.Date.IsZero():
		return DistributionResult{}, missing("distribution_date")
	}

	date := DayOf(req.Date)
	var result DistributionResult

	err := d.store.WithTx(ctx, func(tx DistributionTx) error {
		resolved, err := tx.StaffByIDs(ctx, staffIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve staff: %w", err)
		}
		staff := make([]Staff, 0, len(resolved))
		for _, s := range resolved {
			if s.InGroup(GroupStaff) {
				staff = append(staff, s)
			}
		}
		if len(staff) == 0 {
			return ErrNoEligibleStaff
		}
		if req.Randomize {
			staff = d.shuffle(staff)
		}

		clients, err := tx.ClientsByIDs(ctx, clientIDs)
		if err != nil {
			return fmt.Errorf("failed to load clients: %w", err)
		}

		at := d.now()
		assignments := make([]Assignment, len(clients))
		for i, c := range clients {
			owner := staff[i%len(staff)].ID
			if err := tx.AssignClient(ctx, c.ID, owner, date, at); err != nil {
				return fmt.Errorf("failed to assign client %s: %w", c.ID, err)
			}
			assignments[i] = Assignment{ClientID: c.ID, StaffID: owner}
		}

		result = DistributionResult{
			Distributed: len(clients),
			StaffCount:  len(staff),
			Assignments: assignments,
			Missing:     missingClients(clientIDs, clients),
		}
		return nil
	})
	if err != nil {
		return DistributionResult{}, err
	}
	return result, nil
}

func (d *Distributor) shuffle(staff []Staff) []Staff {
	order := d.perm(len(staff))
	shuffled := make([]Staff, len(staff))
	for i, j := range order {
		shuffled[i] = staff[j]
	}
	return shuffled
}

func dedupe[T comparable](ids []T) []T {
	var zero T
	seen := make(map[T]bool, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if id == zero || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingClients(requested []ClientID, found []Client) []ClientID {
	have := make(map[ClientID]bool, len(found))
	for _, c := range found {
		have[c.ID] = true
	}
	var out []ClientID
	for _, id := range requested {
		if !have[id] {
			out = append(out, id)
		}
	}
	return out
}
