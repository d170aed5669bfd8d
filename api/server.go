/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. observe:    Structured request log line + Prometheus counters
  4. CORS:       Cross-origin requests for the front end
  5. authenticate (under /api, except /api/register): bearer JWT -> active account
  6. requireGroup(Admin) on admin-only routes

ROUTE GROUPS:
  /healthz              Liveness + store ping
  /metrics              Prometheus scrape
  /api/register         Self-service sign-up (inactive until approved)
  /api/*                Authenticated API
  /api/scenarios/*      Demo data loaders, only when WithScenarios is set

BACKGROUND WORK:
  StatsScheduler (scheduler.go) is the only goroutine outside request
  handling. It belongs to this process, not to the office core, and only
  reads through the services.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification and group checks
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/backoffice/logger"
	"github.com/warp/backoffice/office"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			admin := h.requireGroup(office.GroupAdmin)

			r.Get("/me", h.Me)

			// Distribution and incentives
			r.With(admin).Post("/distributions", h.Distribute)
			r.Route("/incentives", func(r chi.Router) {
				r.Get("/", h.ListIncentives)
				r.With(admin).Put("/", h.ReplaceIncentives)
				r.Get("/board", h.IncentiveBoard)
			})

			// Reports
			r.Get("/summary/me", h.MySummary)
			r.With(admin).Get("/statistics", h.Statistics)

			// Performance
			r.Route("/performance", func(r chi.Router) {
				r.Get("/", h.ListPerformance)
				r.Post("/", h.RecordPerformance)
				r.Get("/ranking", h.Ranking)
			})

			// Attendance
			r.Route("/attendance", func(r chi.Router) {
				r.With(admin).Get("/", h.ListAttendance)
				r.Get("/today", h.TodayAttendance)
				r.Post("/check-in", h.CheckIn)
				r.Put("/check-out", h.CheckOut)
			})

			// Clients
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.ListClients)
				r.With(admin).Post("/", h.CreateClient)
				r.With(admin).Post("/import", h.ImportClients)
				r.With(admin).Get("/export", h.ExportClients)
				r.Get("/{id}", h.GetClient)
				r.Put("/{id}", h.UpdateClient)
				r.With(admin).Delete("/{id}", h.DeleteClient)
			})

			// Staff directory (admin)
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/staff", h.Roster)
				r.Route("/accounts", func(r chi.Router) {
					r.Get("/", h.ListAccounts)
					r.Get("/{id}", h.GetAccount)
					r.Put("/{id}", h.UpdateAccount)
					r.Delete("/{id}", h.DeleteAccount)
				})
				r.Route("/settings", func(r chi.Router) {
					r.Get("/", h.ListSettings)
					r.Get("/{key}", h.GetSetting)
					r.Put("/{key}", h.PutSetting)
					r.Delete("/{key}", h.DeleteSetting)
				})

				// Demo data (development only)
				if h.scenarios != nil {
					r.Route("/scenarios", func(r chi.Router) {
						r.Get("/", h.ListScenarios)
						r.Get("/current", h.GetCurrentScenario)
						r.Post("/load", h.LoadScenario)
					})
				}
			})
		})
	})

	return r
}

// observe logs one line per request and feeds the HTTP metrics, labelled by
// route pattern so ids don't explode cardinality.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		h.metrics.RecordHTTPRequest(route, r.Method, status, elapsed)
		h.log.Info(r.Context(), "request",
			logger.String("method", r.Method),
			logger.String("route", route),
			logger.Int("status", status),
			logger.Any("duration", elapsed),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
