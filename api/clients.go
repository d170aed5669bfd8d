package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/sheet"
)

// maxUploadBytes bounds a spreadsheet upload.
const maxUploadBytes = 16 << 20

// =============================================================================
// CLIENT RECORDS
// =============================================================================

// ListClients returns one page of clients visible to the caller.
// GET /api/clients?start_date=&end_date=&distributed=false&search=&page=
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	filter, err := h.clientFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.Clients.List(r.Context(), currentStaff(r), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dto := ClientPageDTO{
		Count:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  make([]ClientDTO, len(page.Clients)),
	}
	for i, c := range page.Clients {
		dto.Results[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateClient registers a new client.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.Clients.Create(r.Context(), office.ClientInput{
		Name:         req.Name,
		Contact:      req.Contact,
		Address:      req.Address,
		Note:         req.Note,
		EmployeeNote: req.EmployeeNote,
		Gender:       req.Gender,
		BirthDate:    req.BirthDate,
	}, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(c))
}

// GetClient returns a client the caller may see.
// GET /api/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Clients.Get(r.Context(), currentStaff(r), office.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c))
}

// UpdateClient patches a client. Staff may only touch status, their note
// and the transmission flag of their own clients.
// PUT /api/clients/{id}
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req UpdateClientRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.Clients.Update(r.Context(), currentStaff(r), office.ClientID(chi.URLParam(r, "id")), req.patch(), h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c))
}

// DeleteClient removes a client.
// DELETE /api/clients/{id}
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Clients.Delete(r.Context(), office.ClientID(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(r.Context(), "client deleted", logger.String("client_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SPREADSHEETS
// =============================================================================

// ImportClients creates clients from the first sheet of an uploaded
// workbook (multipart field "excel_file").
// POST /api/clients/import
func (h *Handler) ImportClients(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("excel_file")
	if err != nil {
		h.writeError(w, r, &office.FieldError{Field: "excel_file", Reason: "is required"})
		return
	}
	defer file.Close()

	rows, err := sheet.Decode(file)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%v: %w", err, office.ErrInvalidRequest))
		return
	}
	n, err := h.Clients.Import(r.Context(), rows, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordImport(n)
	h.log.Info(r.Context(), "clients imported", logger.Int("rows", len(rows)), logger.Int("created", n))
	writeJSON(w, http.StatusCreated, ImportResultDTO{Created: n})
}

// ExportClients downloads clients as a workbook, newest first.
// GET /api/clients/export?start_date=&end_date=
func (h *Handler) ExportClients(w http.ResponseWriter, r *http.Request) {
	filter, err := h.clientFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.Clients.Export(r.Context(), filter, h.labels, h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name := fmt.Sprintf("clients_%s.xlsx", h.clock().Format("20060102"))
	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := sheet.Encode(w, rows, h.labels); err != nil {
		h.log.Error(r.Context(), "failed to write workbook", logger.Error(err))
	}
}

// clientFilter reads the listing query. A date range applies only when
// both ends parse; that matches how the front end clears its pickers.
func (h *Handler) clientFilter(r *http.Request) (office.ClientFilter, error) {
	q := r.URL.Query()
	f := office.ClientFilter{
		UndistributedOnly: q.Get("distributed") == "false",
		Search:            q.Get("search"),
	}

	from, errFrom := time.ParseInLocation(dateLayout, q.Get("start_date"), h.loc)
	to, errTo := time.ParseInLocation(dateLayout, q.Get("end_date"), h.loc)
	if errFrom == nil && errTo == nil {
		f.From, f.To = &from, &to
	}

	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			return office.ClientFilter{}, &office.FieldError{Field: "page", Reason: "must be a positive integer"}
		}
		f.Page = page
	}
	return f, nil
}
