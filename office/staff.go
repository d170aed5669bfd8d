package office

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Directory manages staff accounts and group membership.
type Directory struct {
	store      StaffStore
	attendance AttendanceStore
}

func NewDirectory(store StaffStore, attendance AttendanceStore) *Directory {
	return &Directory{store: store, attendance: attendance}
}

// Register creates an inactive account with no groups; an admin activates it.
func (d *Directory) Register(ctx context.Context, username, displayName string, now time.Time) (Staff, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Staff{}, missing("username")
	}
	s := Staff{
		ID:          StaffID(uuid.NewString()),
		Username:    username,
		DisplayName: strings.TrimSpace(displayName),
		Groups:      []Group{},
		Active:      false,
		CreatedAt:   now,
	}
	if err := d.store.SaveStaff(ctx, s); err != nil {
		return Staff{}, err
	}
	return s, nil
}

// Get returns the account or ErrNotFound.
func (d *Directory) Get(ctx context.Context, id StaffID) (Staff, error) {
	s, err := d.store.GetStaff(ctx, id)
	if err != nil {
		return Staff{}, fmt.Errorf("failed to load staff: %w", err)
	}
	if s == nil {
		return Staff{}, fmt.Errorf("staff %s: %w", id, ErrNotFound)
	}
	return *s, nil
}

// Accounts lists every account, newest first.
func (d *Directory) Accounts(ctx context.Context) ([]Staff, error) {
	staff, err := d.store.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return staff, nil
}

// StaffStatus is a Staff-group member with today's check-in flag.
type StaffStatus struct {
	Staff     Staff
	CheckedIn bool
}

// Roster lists Staff-group members, checked-in first, then by name.
func (d *Directory) Roster(ctx context.Context, now time.Time) ([]StaffStatus, error) {
	staff, err := d.store.ListStaffInGroup(ctx, GroupStaff)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	checked, err := d.attendance.CheckedInOn(ctx, DayOf(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	roster := make([]StaffStatus, len(staff))
	for i, s := range staff {
		roster[i] = StaffStatus{Staff: s, CheckedIn: checked[s.ID]}
	}
	sort.SliceStable(roster, func(i, j int) bool {
		if roster[i].CheckedIn != roster[j].CheckedIn {
			return roster[i].CheckedIn
		}
		return roster[i].Staff.Name() < roster[j].Staff.Name()
	})
	return roster, nil
}

// AccessChange updates activation and/or group membership. Groups replaces
// the whole membership when non-nil; unknown group names are ignored.
type AccessChange struct {
	Active *bool
	Groups []string
}

// UpdateAccess applies change to the account.
func (d *Directory) UpdateAccess(ctx context.Context, id StaffID, change AccessChange) (Staff, error) {
	s, err := d.Get(ctx, id)
	if err != nil {
		return Staff{}, err
	}
	if change.Active != nil {
		s.Active = *change.Active
	}
	if change.Groups != nil {
		groups := make([]Group, 0, len(change.Groups))
		for _, name := range change.Groups {
			g := Group(name)
			if g.Valid() && !containsGroup(groups, g) {
				groups = append(groups, g)
			}
		}
		s.Groups = groups
	}
	if err := d.store.UpdateStaff(ctx, s); err != nil {
		return Staff{}, fmt.Errorf("failed to update access: %w", err)
	}
	return s, nil
}

// Delete removes the account; its clients stay, unowned.
func (d *Directory) Delete(ctx context.Context, id StaffID) error {
	return d.store.DeleteStaff(ctx, id)
}

func containsGroup(groups []Group, g Group) bool {
	for _, have := range groups {
		if have == g {
			return true
		}
	}
	return false
}
