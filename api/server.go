/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. RealIP:       Client address from proxy headers
  3. Logger:       Structured request logging (zap)
  4. Recoverer:    Panic recovery (500 instead of crash)
  5. CORS:         Cross-origin requests for frontend
  6. Authenticate: Bearer token -> AuthContext

ROUTE GROUPS:
  /api/reports/*          Employee reports
  /api/weeks/*            Week snapshot
  /api/sales-persons/*    Sales persons and contracts
  /api/extra-hours        Extra-hours entries
  /api/custom-extra-hours Custom categories
  /api/slots, /bookings   Shift plan
  /api/carryover/*        Year-end carryover
  /api/billing-periods/*  Billing snapshots and custom reports
  /api/templates          Text templates
  /api/scenarios/*        Demo scenarios
  /api/auth/token         Token issuing (development only)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token validation
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures cross-cutting concerns of the router.
type RouterOptions struct {
	CORSOrigins []string

	// DevTokens mounts POST /api/auth/token, which signs arbitrary identities.
	DevTokens bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if h.Tokens != nil {
		r.Use(h.Tokens.Authenticate(h.log))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.GetReports)
			r.Get("/{salesPersonID}", h.GetEmployeeReport)
		})
		r.Get("/weeks/{year}/{week}", h.GetWeekReport)

		// Sales person routes
		r.Route("/sales-persons", func(r chi.Router) {
			r.Get("/", h.ListSalesPersons)
			r.Post("/", h.CreateSalesPerson)
			r.Get("/{id}/work-details", h.ListWorkDetails)
			r.Post("/{id}/work-details", h.CreateWorkDetails)
		})

		// Extra hours routes
		r.Post("/extra-hours", h.CreateExtraHours)
		r.Post("/custom-extra-hours", h.CreateCustomExtraHours)

		// Shift plan routes
		r.Post("/slots", h.CreateSlot)
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.CreateBooking)
			r.Delete("/{id}", h.DeleteBooking)
		})

		// Billing routes
		r.Route("/carryover", func(r chi.Router) {
			r.Put("/", h.SetCarryover)
			r.Get("/{salesPersonID}/{year}", h.GetCarryover)
			r.Post("/{year}/update", h.UpdateCarryover)
		})

		r.Route("/billing-periods", func(r chi.Router) {
			r.Get("/", h.ListBillingPeriods)
			r.Post("/", h.CreateBillingPeriod)
			r.Post("/clear", h.ClearBillingPeriods)
			r.Get("/{id}", h.GetBillingPeriod)
			r.Delete("/{id}", h.DeleteBillingPeriod)
			r.Post("/{id}/reports/{templateID}", h.RenderCustomReport)
		})
		r.Post("/templates", h.CreateTextTemplate)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		if opts.DevTokens && h.Tokens != nil {
			r.Post("/auth/token", h.IssueToken)
		}
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
