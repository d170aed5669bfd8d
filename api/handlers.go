/*
handlers.go - HTTP API handlers for the back office

PURPOSE:
  Exposes the office services via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the domain services.

ENDPOINTS:
  Distribution and incentives:
    POST   /api/distributions          Assign clients to staff (admin)
    GET    /api/incentives             Current tier table
    PUT    /api/incentives             Replace the tier table (admin)
                                       Array order matters: when tiers
                                       overlap, the LAST match pays
    GET    /api/incentives/board       This month's board

  Reports:
    GET    /api/summary/me             Caller's month at a glance
    GET    /api/statistics             Org dashboard (admin)
    GET    /api/performance/ranking    Top accounts by record type

  Performance:
    GET    /api/performance            Records (admins may filter by staff)
    POST   /api/performance            Add a record

  Clients, attendance, staff and settings: see clients.go and people.go.
  Demo data loaders: see scenarios.go.

ARCHITECTURE:
  Handler holds the services plus the clock and time zone that define
  "today". Identity comes from the authenticate middleware (auth.go).

ERROR HANDLING:
  Every error goes through writeError, which maps office.Kind to a status:
  - 400: invalid_request, validation_error, no_eligible_staff,
         already_checked_in, already_checked_out
  - 401: unauthorized
  - 403: forbidden
  - 404: not_found, no_check_in_found
  - 409: conflict
  - 500: anything else (message hidden, logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/metrics"
	"github.com/warp/backoffice/office"
	"github.com/warp/backoffice/sheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Services are the domain services behind the API.
type Services struct {
	Clients     *office.Clients
	Directory   *office.Directory
	Distributor *office.Distributor
	Rules       *office.RuleBook
	Attendance  *office.Attendance
	Performance *office.Performance
	Reporter    *office.Reporter
	Settings    *office.Settings
}

// Store is every persistence port the services need. *sqlite.Store
// satisfies it.
type Store interface {
	office.StaffStore
	office.ClientStore
	office.DistributionStore
	office.RuleStore
	office.AttendanceStore
	office.PerformanceStore
	office.ReportStore
	office.SettingStore
}

// Limits size the listings and reports.
type Limits struct {
	PageSize     int
	TopAddresses int
	TrendMonths  int
	Ranking      int
}

// NewServices wires every service to store.
func NewServices(store Store, limits Limits, opts ...office.DistributorOption) Services {
	return Services{
		Clients:     office.NewClients(store, store, limits.PageSize),
		Directory:   office.NewDirectory(store, store),
		Distributor: office.NewDistributor(store, opts...),
		Rules:       office.NewRuleBook(store),
		Attendance:  office.NewAttendance(store),
		Performance: office.NewPerformance(store, store),
		Reporter: office.NewReporter(store, store,
			office.WithTopAddresses(limits.TopAddresses),
			office.WithTrendMonths(limits.TrendMonths),
			office.WithRankingSize(limits.Ranking),
		),
		Settings: office.NewSettings(store),
	}
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Services

	tokens   *Tokens
	log      logger.Logger
	metrics  *metrics.Manager
	labels   *sheet.Labels
	loc      *time.Location
	now      func() time.Time
	origins  []string
	health   func(context.Context) error
	validate *validator.Validate

	scenarios *scenarioState // nil unless WithScenarios
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

func WithLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func WithMetrics(m *metrics.Manager) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithLocation sets the zone that defines calendar days and months.
func WithLocation(loc *time.Location) HandlerOption {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithLabels sets the spreadsheet export language.
func WithLabels(l *sheet.Labels) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.labels = l
		}
	}
}

func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		if len(origins) > 0 {
			h.origins = origins
		}
	}
}

// WithHealthCheck sets the probe behind /healthz, typically the store's Ping.
func WithHealthCheck(check func(context.Context) error) HandlerOption {
	return func(h *Handler) {
		h.health = check
	}
}

// NewHandler creates a handler over svc authenticating with tokens.
func NewHandler(svc Services, tokens *Tokens, opts ...HandlerOption) *Handler {
	h := &Handler{
		Services: svc,
		tokens:   tokens,
		log:      logger.Nop(),
		metrics:  metrics.NewManager(),
		labels:   sheet.NewLabels("ko"),
		loc:      time.Local,
		now:      time.Now,
		origins:  []string{"http://localhost:5173", "http://localhost:8080"},
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// clock returns the current time in the office time zone.
func (h *Handler) clock() time.Time {
	return h.now().In(h.loc)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether the store answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.log.Error(r.Context(), "health check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// DISTRIBUTION
// =============================================================================

// Distribute assigns clients round-robin across staff.
// POST /api/distributions
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req DistributeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := time.ParseInLocation(dateLayout, req.DistributionDate, h.loc)
	if err != nil {
		h.writeError(w, r, &office.FieldError{Field: "distribution_date", Reason: "must be YYYY-MM-DD"})
		return
	}

	dreq := office.DistributionRequest{
		ClientIDs: make([]office.ClientID, len(req.ClientIDs)),
		StaffIDs:  make([]office.StaffID, len(req.StaffIDs)),
		Date:      date,
		Randomize: req.Randomize,
	}
	for i, id := range req.ClientIDs {
		dreq.ClientIDs[i] = office.ClientID(id)
	}
	for i, id := range req.StaffIDs {
		dreq.StaffIDs[i] = office.StaffID(id)
	}

	result, err := h.Distributor.Distribute(r.Context(), dreq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordDistribution(result.Distributed)
	h.log.Info(r.Context(), "clients distributed",
		logger.Int("clients", result.Distributed),
		logger.Int("staff", result.StaffCount),
		logger.Int("missing", len(result.Missing)),
		logger.Bool("randomize", req.Randomize),
		logger.String("by", string(currentStaff(r).ID)),
	)
	writeJSON(w, http.StatusOK, toDistributionDTO(result))
}

// =============================================================================
// INCENTIVES
// =============================================================================

// ListIncentives returns the tier table in declared order, which is the
// order the board evaluates it in.
// GET /api/incentives
func (h *Handler) ListIncentives(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Rules.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTOs(rules))
}

// ReplaceIncentives swaps the whole tier table. The body is a JSON array
// whose order is kept: the board takes the last rule matching a count, so
// a later overlapping tier overrides an earlier one.
// PUT /api/incentives
func (h *Handler) ReplaceIncentives(w http.ResponseWriter, r *http.Request) {
	var req []IncentiveRuleDTO
	if !h.decode(w, r, &req) {
		return
	}
	rules := make([]office.IncentiveRule, len(req))
	for i, dto := range req {
		rules[i] = office.IncentiveRule{Condition: dto.Condition, Reward: dto.Reward}
	}

	saved, err := h.Rules.ReplaceAll(r.Context(), rules)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordRuleReplacement()
	h.log.Info(r.Context(), "incentive rules replaced", logger.Int("rules", len(saved)))
	writeJSON(w, http.StatusOK, toRuleDTOs(saved))
}

// IncentiveBoard evaluates this month's contracts against the tiers.
// GET /api/incentives/board
func (h *Handler) IncentiveBoard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Reporter.IncentiveBoard(r.Context(), h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]BoardRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = BoardRowDTO{
			StaffID:      string(row.StaffID),
			EmployeeName: row.Name,
			SuccessCount: row.SuccessCount,
			RewardAmount: row.Reward,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORTS
// =============================================================================

// MySummary returns the caller's clients this month by status.
// GET /api/summary/me
func (h *Handler) MySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reporter.MySummary(r.Context(), currentStaff(r).ID, h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dto := SummaryDTO{
		Total:       summary.Total,
		ByStatus:    make(map[string]int, len(summary.ByStatus)),
		SuccessRate: summary.SuccessRate,
	}
	for s, n := range summary.ByStatus {
		dto.ByStatus[string(s)] = n
	}
	writeJSON(w, http.StatusOK, dto)
}

// Statistics returns the org dashboard.
// GET /api/statistics
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reporter.Statistics(r.Context(), h.clock())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatisticsDTO(stats))
}

// Ranking returns the top accounts by summed value of ?type=.
// GET /api/performance/ranking
func (h *Handler) Ranking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.Reporter.Ranking(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]RankedEntryDTO, len(ranking))
	for i, e := range ranking {
		dtos[i] = RankedEntryDTO{
			Rank:             e.Rank,
			StaffID:          string(e.StaffID),
			EmployeeUsername: e.Username,
			EmployeeName:     e.Name,
			TotalValue:       e.Total,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PERFORMANCE
// =============================================================================

// ListPerformance returns records newest first. Staff see their own;
// admins see everyone's or ?staff_id='s.
// GET /api/performance
func (h *Handler) ListPerformance(w http.ResponseWriter, r *http.Request) {
	caller := currentStaff(r)
	var filter *office.StaffID
	if !caller.IsAdmin() {
		filter = &caller.ID
	} else if id := r.URL.Query().Get("staff_id"); id != "" {
		sid := office.StaffID(id)
		filter = &sid
	}

	records, err := h.Performance.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]PerformanceDTO, len(records))
	for i, p := range records {
		dtos[i] = toPerformanceDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPerformance adds a record for the caller, or for staff_id when the
// caller is an admin.
// POST /api/performance
func (h *Handler) RecordPerformance(w http.ResponseWriter, r *http.Request) {
	var req RecordPerformanceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	caller := currentStaff(r)
	staff := caller.ID
	if req.StaffID != "" && office.StaffID(req.StaffID) != caller.ID {
		if !caller.IsAdmin() {
			h.writeError(w, r, fmt.Errorf("recording for another account: %w", office.ErrForbidden))
			return
		}
		staff = office.StaffID(req.StaffID)
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, h.loc)
	if err != nil {
		h.writeError(w, r, &office.FieldError{Field: "date", Reason: "must be YYYY-MM-DD"})
		return
	}

	rec, err := h.Performance.Record(r.Context(), staff, date, req.RecordType, req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPerformanceDTO(rec))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusOf maps an error kind to an HTTP status.
func statusOf(kind string) int {
	switch kind {
	case "invalid_request", "validation_error", "no_eligible_staff",
		"already_checked_in", "already_checked_out":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "not_found", "no_check_in_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := office.Kind(err)
	status := statusOf(kind)
	resp := ErrorResponse{Error: err.Error(), Code: kind}

	var ruleErr *office.RuleValidationError
	var fieldErr *office.FieldError
	switch {
	case errors.As(err, &ruleErr):
		resp.Details = map[string]any{"index": ruleErr.Index, "case_count": ruleErr.Condition, "reason": ruleErr.Reason}
	case errors.As(err, &fieldErr):
		resp.Details = map[string]string{"field": fieldErr.Field, "reason": fieldErr.Reason}
	}

	if status == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, fmt.Errorf("malformed JSON body: %v: %w", err, office.ErrInvalidRequest))
		return false
	}
	return true
}

// decodeAndValidate decodes the JSON body into dst and runs its validate tags.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !h.decode(w, r, dst) {
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			h.writeError(w, r, &office.FieldError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed %q check", fe.Tag()),
			})
			return false
		}
		h.writeError(w, r, fmt.Errorf("%v: %w", err, office.ErrInvalidRequest))
		return false
	}
	return true
}
