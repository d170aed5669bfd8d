package office

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SPREADSHEET ROWS - flat mapping used by bulk import/export
// =============================================================================

// ImportRow is one data row of an upload: name, contact, address, note.
type ImportRow struct {
	Name    string
	Contact string
	Address string
	Note    string
}

// ExportRow is one data row of a download.
type ExportRow struct {
	Name        string
	Contact     string
	Address     string
	Consultant  string
	CreatedAt   string // "2006-01-02 15:04" in the export location
	StatusLabel string
	Note        string
}

// ExportHeaderKeys name the export columns, in order. Encoders translate them.
var ExportHeaderKeys = []string{"name", "contact", "address", "consultant", "created_at", "status", "note"}

// Labels localizes the human-readable parts of an export.
type Labels interface {
	Status(s Status) string
	Unassigned() string
}

// ClientFromRow builds a new pending client from an upload row. Rows without
// a contact are rejected (ok == false).
func ClientFromRow(row ImportRow, now time.Time) (Client, bool) {
	contact := strings.TrimSpace(row.Contact)
	if contact == "" {
		return Client{}, false
	}
	return Client{
		ID:                 ClientID(uuid.NewString()),
		Name:               strings.TrimSpace(row.Name),
		Contact:            contact,
		Address:            strings.TrimSpace(row.Address),
		Note:               strings.TrimSpace(row.Note),
		Status:             StatusPending,
		TransmissionStatus: TransmissionNotSent,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, true
}

// ExportRowOf flattens a client. owner is nil for unassigned clients.
func ExportRowOf(c Client, owner *Staff, labels Labels, loc *time.Location) ExportRow {
	consultant := labels.Unassigned()
	if owner != nil {
		consultant = owner.Name()
	}
	if loc == nil {
		loc = time.UTC
	}
	return ExportRow{
		Name:        c.Name,
		Contact:     c.Contact,
		Address:     c.Address,
		Consultant:  consultant,
		CreatedAt:   c.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		StatusLabel: labels.Status(c.Status),
		Note:        c.Note,
	}
}
