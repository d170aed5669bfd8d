package office

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transmission flags.
const (
	TransmissionSent    = "Y"
	TransmissionNotSent = "N"
)

// DefaultPageSize is the client list page size.
const DefaultPageSize = 50

// ClientInput is the data an admin supplies for a new client.
type ClientInput struct {
	Name         string
	Contact      string
	Address      string
	Note         string
	EmployeeNote string
	Gender       string
	BirthDate    string
}

// ClientPatch changes selected fields; nil leaves a field alone.
// Name, Contact, Address and Note are admin-only.
type ClientPatch struct {
	Name               *string
	Contact            *string
	Address            *string
	Note               *string
	EmployeeNote       *string
	Status             *Status
	TransmissionStatus *string
}

func (p ClientPatch) touchesAdminFields() bool {
	return p.Name != nil || p.Contact != nil || p.Address != nil || p.Note != nil
}

// ClientFilter is the caller-facing list filter. From/To are inclusive
// calendar days on created_at; both must be set for the range to apply.
type ClientFilter struct {
	From              *time.Time
	To                *time.Time
	UndistributedOnly bool
	Search            string
	Page              int // 1-based; 0 means 1
}

// ClientPage is one page of a client listing.
type ClientPage struct {
	Clients  []Client
	Total    int
	Page     int
	PageSize int
}

// Clients manages client records with per-viewer visibility: admins see
// everything, staff see only the clients they own.
type Clients struct {
	store    ClientStore
	staff    StaffStore
	pageSize int
}

func NewClients(store ClientStore, staff StaffStore, pageSize int) *Clients {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Clients{store: store, staff: staff, pageSize: pageSize}
}

// Create registers a new pending, undistributed client.
func (s *Clients) Create(ctx context.Context, in ClientInput, now time.Time) (Client, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Client{}, missing("name")
	}
	if strings.TrimSpace(in.Contact) == "" {
		return Client{}, missing("contact")
	}
	if in.Gender != "" && in.Gender != "M" && in.Gender != "F" {
		return Client{}, &FieldError{Field: "gender", Reason: "must be M or F"}
	}
	c := Client{
		ID:                 ClientID(uuid.NewString()),
		Name:               strings.TrimSpace(in.Name),
		Contact:            strings.TrimSpace(in.Contact),
		Address:            strings.TrimSpace(in.Address),
		Note:               in.Note,
		EmployeeNote:       in.EmployeeNote,
		Gender:             in.Gender,
		BirthDate:          in.BirthDate,
		Status:             StatusPending,
		TransmissionStatus: TransmissionNotSent,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateClients(ctx, []Client{c}); err != nil {
		return Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

// Import creates one client per usable row in a single transaction and
// returns how many were created. Rows without a contact are skipped.
func (s *Clients) Import(ctx context.Context, rows []ImportRow, now time.Time) (int, error) {
	clients := make([]Client, 0, len(rows))
	for _, row := range rows {
		if c, ok := ClientFromRow(row, now); ok {
			clients = append(clients, c)
		}
	}
	if len(clients) == 0 {
		return 0, nil
	}
	if err := s.store.CreateClients(ctx, clients); err != nil {
		return 0, fmt.Errorf("failed to import clients: %w", err)
	}
	return len(clients), nil
}

// Get returns a client visible to viewer.
func (s *Clients) Get(ctx context.Context, viewer Staff, id ClientID) (Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return Client{}, fmt.Errorf("failed to load client: %w", err)
	}
	if c == nil || !canSee(viewer, *c) {
		return Client{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return *c, nil
}

// List returns one page of clients visible to viewer, newest first.
func (s *Clients) List(ctx context.Context, viewer Staff, f ClientFilter) (ClientPage, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	q := s.query(viewer, f)
	q.Offset = (page - 1) * s.pageSize
	q.Limit = s.pageSize

	clients, total, err := s.store.ListClients(ctx, q)
	if err != nil {
		return ClientPage{}, fmt.Errorf("failed to list clients: %w", err)
	}
	if clients == nil {
		clients = []Client{}
	}
	return ClientPage{Clients: clients, Total: total, Page: page, PageSize: s.pageSize}, nil
}

// Update applies patch on behalf of viewer and stamps updated_at. The
// visibility check and the write see the same row, so a client
// redistributed in between is no longer the viewer's to edit.
func (s *Clients) Update(ctx context.Context, viewer Staff, id ClientID, p ClientPatch, now time.Time) (Client, error) {
	if p.touchesAdminFields() && !viewer.IsAdmin() {
		return Client{}, fmt.Errorf("only admins may edit client details: %w", ErrForbidden)
	}
	if p.Status != nil && !p.Status.Valid() {
		return Client{}, &FieldError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *p.Status)}
	}
	if p.TransmissionStatus != nil && *p.TransmissionStatus != TransmissionSent && *p.TransmissionStatus != TransmissionNotSent {
		return Client{}, &FieldError{Field: "transmission_status", Reason: "must be Y or N"}
	}

	c, err := s.store.UpdateClient(ctx, id, func(c *Client) error {
		if !canSee(viewer, *c) {
			return fmt.Errorf("client %s: %w", id, ErrNotFound)
		}
		apply(&c.Name, p.Name)
		apply(&c.Contact, p.Contact)
		apply(&c.Address, p.Address)
		apply(&c.Note, p.Note)
		apply(&c.EmployeeNote, p.EmployeeNote)
		apply(&c.TransmissionStatus, p.TransmissionStatus)
		if p.Status != nil {
			c.Status = *p.Status
		}
		if strings.TrimSpace(c.Name) == "" {
			return missing("name")
		}
		if strings.TrimSpace(c.Contact) == "" {
			return missing("contact")
		}
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Client{}, fmt.Errorf("failed to update client: %w", err)
	}
	return c, nil
}

// Delete removes a client.
func (s *Clients) Delete(ctx context.Context, id ClientID) error {
	return s.store.DeleteClient(ctx, id)
}

// Export flattens every client matching f (ignoring paging), newest first.
func (s *Clients) Export(ctx context.Context, f ClientFilter, labels Labels, loc *time.Location) ([]ExportRow, error) {
	q := s.query(Staff{Groups: []Group{GroupAdmin}}, f)
	clients, _, err := s.store.ListClients(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	owners := make(map[StaffID]*Staff)
	rows := make([]ExportRow, len(clients))
	for i, c := range clients {
		var owner *Staff
		if c.Owner != nil {
			cached, ok := owners[*c.Owner]
			if !ok {
				cached, err = s.staff.GetStaff(ctx, *c.Owner)
				if err != nil {
					return nil, fmt.Errorf("failed to load consultant: %w", err)
				}
				owners[*c.Owner] = cached
			}
			owner = cached
		}
		rows[i] = ExportRowOf(c, owner, labels, loc)
	}
	return rows, nil
}

func (s *Clients) query(viewer Staff, f ClientFilter) ClientQuery {
	q := ClientQuery{
		UndistributedOnly: f.UndistributedOnly,
		NameContains:      strings.TrimSpace(f.Search),
	}
	if f.From != nil && f.To != nil {
		w := DayRange(*f.From, *f.To)
		q.Created = &w
	}
	if !viewer.IsAdmin() {
		id := viewer.ID
		q.Owner = &id
	}
	return q
}

func canSee(viewer Staff, c Client) bool {
	return viewer.IsAdmin() || c.OwnedBy(viewer.ID)
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
