package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/office"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

// CheckIn opens today's attendance record for the caller.
// POST /api/attendance/check-in
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	staff := currentStaff(r)
	rec, err := h.Attendance.CheckIn(r.Context(), staff.ID, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordCheckIn()
	h.log.Info(r.Context(), "checked in",
		logger.String("staff_id", string(staff.ID)),
		logger.String("work_date", rec.WorkDate.Format(dateLayout)),
	)
	writeJSON(w, http.StatusCreated, toAttendanceDTO(rec, h.loc))
}

// CheckOut closes today's attendance record for the caller.
// PUT /api/attendance/check-out
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	staff := currentStaff(r)
	rec, err := h.Attendance.CheckOut(r.Context(), staff.ID, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordCheckOut()
	h.log.Info(r.Context(), "checked out",
		logger.String("staff_id", string(staff.ID)),
		logger.String("work_date", rec.WorkDate.Format(dateLayout)),
	)
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec, h.loc))
}

// TodayAttendance returns the caller's record for today, or {} when there
// is none.
// GET /api/attendance/today
func (h *Handler) TodayAttendance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Attendance.Today(r.Context(), currentStaff(r).ID, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec, h.loc))
}

// ListAttendance returns every record of ?month=YYYY-MM (default: this month).
// GET /api/attendance
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Attendance.Month(r.Context(), r.URL.Query().Get("month"), h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]AttendanceDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toAttendanceDTO(rec, h.loc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STAFF AND ACCOUNTS
// =============================================================================

// Register creates an inactive account without groups. An admin activates it.
// POST /api/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	s, err := h.Directory.Register(r.Context(), req.Username, req.DisplayName, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(r.Context(), "account registered", logger.String("staff_id", string(s.ID)), logger.String("username", s.Username))
	writeJSON(w, http.StatusCreated, toStaffDTO(s))
}

// Me returns the authenticated account.
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStaffDTO(currentStaff(r)))
}

// Roster lists Staff-group members with today's check-in flag.
// GET /api/staff
func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Directory.Roster(r.Context(), h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]RosterEntryDTO, len(roster))
	for i, s := range roster {
		dtos[i] = RosterEntryDTO{StaffDTO: toStaffDTO(s.Staff), CheckedIn: s.CheckedIn}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAccounts returns every account, newest first.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Directory.Accounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]StaffDTO, len(accounts))
	for i, s := range accounts {
		dtos[i] = toStaffDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns one account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	s, err := h.Directory.Get(r.Context(), office.StaffID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStaffDTO(s))
}

// UpdateAccount changes activation and group membership.
// PUT /api/accounts/{id}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccessRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := office.StaffID(chi.URLParam(r, "id"))
	s, err := h.Directory.UpdateAccess(r.Context(), id, office.AccessChange{Active: req.Active, Groups: req.Groups})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(r.Context(), "account access updated",
		logger.String("staff_id", string(s.ID)),
		logger.Bool("active", s.Active),
		logger.Any("groups", s.Groups),
	)
	writeJSON(w, http.StatusOK, toStaffDTO(s))
}

// DeleteAccount removes an account. Its clients return to the pool.
// DELETE /api/accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Directory.Delete(r.Context(), office.StaffID(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info(r.Context(), "account deleted", logger.String("staff_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS
// =============================================================================

// ListSettings returns every setting ordered by key.
// GET /api/settings
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]SettingDTO, len(settings))
	for i, s := range settings {
		dtos[i] = SettingDTO{Key: s.Key, Value: s.Value}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSetting returns one setting.
// GET /api/settings/{key}
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingDTO{Key: s.Key, Value: s.Value})
}

// PutSetting creates or overwrites a setting.
// PUT /api/settings/{key}
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req PutSettingRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.Settings.Put(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingDTO{Key: s.Key, Value: s.Value})
}

// DeleteSetting removes a setting.
// DELETE /api/settings/{key}
func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
