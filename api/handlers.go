/*
handlers.go - HTTP API handlers for the work-hours engine

PURPOSE:
  Exposes reports, engine inputs and billing periods via REST. Handles
  HTTP request/response and JSON serialization, and delegates to the
  accounting and billing packages.

ENDPOINTS:
  Reports:
    GET    /api/reports?year=&until_week=            Short reports, paid employees (HR)
    GET    /api/reports/{salesPersonID}              Employee report (?year=&until_week= or ?from=&to=)
    GET    /api/weeks/{year}/{week}                  Week snapshot (HR)

  Inputs:
    GET    /api/sales-persons                        List sales persons
    POST   /api/sales-persons                        Create sales person (HR)
    GET    /api/sales-persons/{id}/work-details      Contracts of a sales person
    POST   /api/sales-persons/{id}/work-details      Add contract (HR)
    POST   /api/extra-hours                          Record extra hours
    POST   /api/custom-extra-hours                   Define custom category (HR)
    POST   /api/slots                                Create shift slot
    POST   /api/bookings                             Book sales person into slot
    DELETE /api/bookings/{id}                        Remove booking

  Billing (HR):
    GET    /api/billing-periods                      Overview
    POST   /api/billing-periods                      Close period up to end_date
    GET    /api/billing-periods/{id}                 Period with values
    DELETE /api/billing-periods/{id}                 Soft delete
    POST   /api/billing-periods/clear                Soft delete all
    POST   /api/billing-periods/{id}/reports/{templateID}  Render custom report
    POST   /api/templates                            Store text template

REQUEST FLOW:
  1. Parse path/query parameters and decode + validate the body
  2. Open one store transaction
  3. Build the engine components against the transaction
  4. Call the engine with the caller's AuthContext
  5. Serialize response, or map the error kind to a status

ERROR HANDLING:
  - 400: Validation errors, invalid input, calculation errors from bad weeks
  - 401: Bad bearer token (auth middleware)
  - 403: Caller lacks the privilege
  - 404: Entity not found
  - 409: Duplicate booking
  - 500: Storage and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
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
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
	"github.com/warp/workhours-engine/calendar"
	"github.com/warp/workhours-engine/store"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  store.TxStore
	Authz  accounting.Authorizer
	Tokens *TokenService

	now      func() time.Time
	base     *zap.Logger
	log      *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a handler over the given store. tokens may be nil when
// the token endpoint is not mounted.
func NewHandler(st store.TxStore, tokens *TokenService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:    st,
		Authz:    accounting.PrivilegeAuthorizer{},
		Tokens:   tokens,
		now:      time.Now,
		base:     log,
		log:      log.Named("api"),
		validate: newValidator(),
	}
}

// WithClock replaces the clock used for created/deleted timestamps.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) reporter(tx store.Tx) *accounting.Reporter {
	return accounting.NewReporter(tx, h.Authz, h.base)
}

func (h *Handler) carryoverUpdater(tx store.Tx) *accounting.CarryoverUpdater {
	return accounting.NewCarryoverUpdater(tx, h.reporter(tx), h.Authz, h.base).WithClock(h.now)
}

func (h *Handler) snapshotter(tx store.Tx) *billing.Snapshotter {
	return billing.NewSnapshotter(tx, h.reporter(tx), h.Authz, h.base).WithClock(h.now)
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetReports returns the short reports of all paid employees.
func (h *Handler) GetReports(w http.ResponseWriter, r *http.Request) {
	year, untilWeek, err := yearAndWeekQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var reports []accounting.ShortEmployeeReport
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		reports, err = h.reporter(tx).ReportsForAllEmployees(ctx, AuthFrom(ctx), year, untilWeek)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if reports == nil {
		reports = []accounting.ShortEmployeeReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// GetEmployeeReport returns the detailed report of one sales person, either
// for ?from=&to= or for ?year=&until_week=.
func (h *Handler) GetEmployeeReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "salesPersonID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	ranged := q.Get("from") != "" || q.Get("to") != ""
	var from, to calendar.Date
	var year, untilWeek int
	if ranged {
		if from, err = dateQuery(r, "from"); err == nil {
			to, err = dateQuery(r, "to")
		}
	} else {
		year, untilWeek, err = yearAndWeekQuery(r)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var report *accounting.EmployeeReport
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		if ranged {
			report, err = h.reporter(tx).ReportForEmployeeRange(ctx, AuthFrom(ctx), id, from, to)
		} else {
			report, err = h.reporter(tx).ReportForEmployee(ctx, AuthFrom(ctx), id, year, untilWeek)
		}
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetWeekReport returns the cross-employee snapshot of one ISO week.
func (h *Handler) GetWeekReport(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	week, err := intParam(chi.URLParam(r, "week"), "week")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if week < 1 || week > calendar.WeeksInYear(year) {
		h.fail(w, r, &accounting.InputError{Field: "week", Reason: fmt.Sprintf("%d has no week %d", year, week)})
		return
	}

	ctx := r.Context()
	var reports []accounting.ShortEmployeeReport
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		reports, err = h.reporter(tx).WeekReport(ctx, AuthFrom(ctx), year, week)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if reports == nil {
		reports = []accounting.ShortEmployeeReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// =============================================================================
// SALES PERSON & CONTRACT ENDPOINTS
// =============================================================================

// ListSalesPersons returns every sales person. The paid flag is only shown
// to HR.
func (h *Handler) ListSalesPersons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	auth := AuthFrom(ctx)
	if auth.UserID == "" && !auth.Full {
		h.fail(w, r, accounting.ErrForbidden)
		return
	}

	var persons []accounting.SalesPerson
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		all, err := tx.AllSalesPersons(ctx)
		if err != nil {
			return accounting.WrapStorage("load sales persons", err)
		}
		hr, err := h.Authz.IsHR(ctx, auth)
		if err != nil {
			return err
		}
		for _, p := range all {
			if !hr {
				p = p.WithoutPaidFlag()
			}
			persons = append(persons, p)
		}
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if persons == nil {
		persons = []accounting.SalesPerson{}
	}
	writeJSON(w, http.StatusOK, persons)
}

// CreateSalesPerson adds a sales person.
func (h *Handler) CreateSalesPerson(w http.ResponseWriter, r *http.Request) {
	var req CreateSalesPersonRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	sp := req.toSalesPerson()
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := accounting.RequireHR(ctx, h.Authz, AuthFrom(ctx)); err != nil {
			return err
		}
		return accounting.WrapStorage("save sales person", tx.SaveSalesPerson(ctx, sp))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("sales person created", zap.Stringer("sales_person", sp.ID))
	writeJSON(w, http.StatusCreated, sp)
}

// ListWorkDetails returns the contracts of a sales person.
func (h *Handler) ListWorkDetails(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var contracts []accounting.WorkDetails
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := accounting.RequireHROrSelf(ctx, h.Authz, AuthFrom(ctx), id); err != nil {
			return err
		}
		if err := requireSalesPerson(ctx, tx, id); err != nil {
			return err
		}
		contracts, err = tx.FindWorkDetailsBySalesPerson(ctx, id)
		return accounting.WrapStorage("load work details", err)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if contracts == nil {
		contracts = []accounting.WorkDetails{}
	}
	writeJSON(w, http.StatusOK, contracts)
}

// CreateWorkDetails adds a contract to a sales person.
func (h *Handler) CreateWorkDetails(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreateWorkDetailsRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	wd, err := req.toWorkDetails(id, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := accounting.RequireHR(ctx, h.Authz, AuthFrom(ctx)); err != nil {
			return err
		}
		if err := requireSalesPerson(ctx, tx, id); err != nil {
			return err
		}
		return accounting.WrapStorage("save work details", tx.SaveWorkDetails(ctx, wd))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

// =============================================================================
// EXTRA HOURS ENDPOINTS
// =============================================================================

// CreateExtraHours records an extra-hours entry. HR or the sales person.
func (h *Handler) CreateExtraHours(w http.ResponseWriter, r *http.Request) {
	var req CreateExtraHoursRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Amount.IsNegative() {
		h.fail(w, r, &accounting.InputError{Field: "amount", Reason: "must not be negative"})
		return
	}
	kind, err := accounting.ParseCategoryKind(req.Category)
	if err != nil {
		h.fail(w, r, &accounting.InputError{Field: "category", Reason: err.Error()})
		return
	}

	ctx := r.Context()
	now := h.now()
	eh := accounting.ExtraHours{
		ID:            uuid.New(),
		SalesPersonID: req.SalesPersonID,
		Amount:        req.Amount,
		Category:      accounting.ExtraHoursCategory{Kind: kind},
		Description:   req.Description,
		DateTime:      req.DateTime.UTC(),
		Created:       now,
		Version:       uuid.New(),
	}
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := accounting.RequireHROrSelf(ctx, h.Authz, AuthFrom(ctx), req.SalesPersonID); err != nil {
			return err
		}
		if err := requireSalesPerson(ctx, tx, req.SalesPersonID); err != nil {
			return err
		}
		if kind == accounting.KindCustom {
			def, err := tx.FindCustomExtraHours(ctx, *req.CustomExtraHoursID)
			if err != nil {
				return accounting.WrapStorage("load custom extra hours", err)
			}
			if def == nil {
				return &accounting.NotFoundError{Entity: "custom extra hours", ID: *req.CustomExtraHoursID}
			}
			eh.Category = accounting.CustomCategory(*def)
		}
		return accounting.WrapStorage("save extra hours", tx.SaveExtraHours(ctx, eh))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, eh)
}

// CreateCustomExtraHours defines a custom extra-hours category.
func (h *Handler) CreateCustomExtraHours(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomExtraHoursRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	def := req.toDefinition(h.now())
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := accounting.RequireHR(ctx, h.Authz, AuthFrom(ctx)); err != nil {
			return err
		}
		return accounting.WrapStorage("save custom extra hours", tx.SaveCustomExtraHours(ctx, def))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// =============================================================================
// SHIFT PLAN ENDPOINTS
// =============================================================================

// CreateSlot adds a weekly slot. HR or shift planner.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	slot, err := req.toSlot()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := h.requireShiftplanner(r); err != nil {
			return err
		}
		return accounting.WrapStorage("save slot", tx.SaveSlot(ctx, slot))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// CreateBooking books a sales person into a slot for one week.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.CalendarWeek > calendar.WeeksInYear(req.Year) {
		h.fail(w, r, &accounting.InputError{Field: "calendar_week", Reason: fmt.Sprintf("%d has no week %d", req.Year, req.CalendarWeek)})
		return
	}

	ctx := r.Context()
	b := accounting.Booking{
		ID:            uuid.New(),
		SalesPersonID: req.SalesPersonID,
		SlotID:        req.SlotID,
		CalendarWeek:  req.CalendarWeek,
		Year:          req.Year,
		Created:       h.now(),
		Version:       uuid.New(),
	}
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := h.requireShiftplanner(r); err != nil {
			return err
		}
		if err := requireSalesPerson(ctx, tx, req.SalesPersonID); err != nil {
			return err
		}
		slot, err := tx.FindSlot(ctx, req.SlotID)
		if err != nil {
			return accounting.WrapStorage("load slot", err)
		}
		if slot == nil {
			return &accounting.NotFoundError{Entity: "slot", ID: req.SlotID}
		}
		return accounting.WrapStorage("save booking", tx.SaveBooking(ctx, b))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// DeleteBooking soft-deletes a booking.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := h.requireShiftplanner(r); err != nil {
			return err
		}
		return accounting.WrapStorage("delete booking", tx.DeleteBooking(ctx, id, h.now()))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CARRYOVER ENDPOINTS
// =============================================================================

// GetCarryover returns the carryover recorded for one sales person and year.
func (h *Handler) GetCarryover(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "salesPersonID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	year, err := intParam(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var c *accounting.Carryover
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		c, err = h.carryoverUpdater(tx).Carryover(ctx, AuthFrom(ctx), id, year)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if c == nil {
		h.fail(w, r, &accounting.NotFoundError{Entity: "carryover", ID: id})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SetCarryover stores a manually corrected carryover.
func (h *Handler) SetCarryover(w http.ResponseWriter, r *http.Request) {
	var req SetCarryoverRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var c *accounting.Carryover
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = h.carryoverUpdater(tx).SetCarryover(ctx, AuthFrom(ctx), req.toCarryover())
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCarryover recomputes the carryover of a closed year for every paid
// sales person.
func (h *Handler) UpdateCarryover(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(chi.URLParam(r, "year"), "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var updated []accounting.Carryover
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		updated, err = h.carryoverUpdater(tx).UpdateCarryoverAllEmployees(ctx, AuthFrom(ctx), year)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if updated == nil {
		updated = []accounting.Carryover{}
	}
	writeJSON(w, http.StatusOK, updated)
}

// =============================================================================
// BILLING ENDPOINTS
// =============================================================================

// ListBillingPeriods returns the overview of non-deleted periods.
func (h *Handler) ListBillingPeriods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var periods []billing.BillingPeriod
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		periods, err = h.snapshotter(tx).Overview(ctx, AuthFrom(ctx))
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if periods == nil {
		periods = []billing.BillingPeriod{}
	}
	writeJSON(w, http.StatusOK, periods)
}

// CreateBillingPeriod closes the next period up to end_date.
func (h *Handler) CreateBillingPeriod(w http.ResponseWriter, r *http.Request) {
	var req CreateBillingPeriodRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		h.fail(w, r, &accounting.InputError{Field: "end_date", Reason: err.Error()})
		return
	}

	ctx := r.Context()
	var bp *billing.BillingPeriod
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		bp, err = h.snapshotter(tx).CreateBillingPeriod(ctx, AuthFrom(ctx), end)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bp)
}

// GetBillingPeriod returns one period with its values.
func (h *Handler) GetBillingPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var bp *billing.BillingPeriod
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		bp, err = h.snapshotter(tx).BillingPeriod(ctx, AuthFrom(ctx), id)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

// DeleteBillingPeriod soft-deletes one period.
func (h *Handler) DeleteBillingPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		return h.snapshotter(tx).DeleteBillingPeriod(ctx, AuthFrom(ctx), id)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearBillingPeriods soft-deletes every period.
func (h *Handler) ClearBillingPeriods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		return h.snapshotter(tx).ClearAll(ctx, AuthFrom(ctx))
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenderCustomReport renders a billing period through a stored template.
func (h *Handler) RenderCustomReport(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	templateID, err := uuidParam(r, "templateID")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var text string
	err = h.Store.WithTx(ctx, func(tx store.Tx) error {
		text, err = h.snapshotter(tx).CustomReport(ctx, AuthFrom(ctx), templateID, periodID)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CustomReportResponse{BillingPeriodID: periodID, TemplateID: templateID, Text: text})
}

// CreateTextTemplate stores a text template for custom reports.
func (h *Handler) CreateTextTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTextTemplateRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	var saved *billing.TextTemplate
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		saved, err = h.snapshotter(tx).SaveTemplate(ctx, AuthFrom(ctx), billing.TextTemplate{
			Name:         req.Name,
			TemplateType: req.TemplateType,
			Body:         req.Body,
		})
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// IssueToken signs a token for the requested identity. Only mounted in
// development.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	token, expires, err := h.Tokens.Issue(accounting.AuthContext{
		UserID:        req.UserID,
		SalesPersonID: req.SalesPersonID,
		Privileges:    req.Privileges,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expires})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) requireShiftplanner(r *http.Request) error {
	auth := AuthFrom(r.Context())
	hr, err := h.Authz.IsHR(r.Context(), auth)
	if err != nil {
		return err
	}
	if hr || auth.HasPrivilege(accounting.PrivilegeShiftplanner) {
		return nil
	}
	return accounting.ErrForbidden
}

func requireSalesPerson(ctx context.Context, tx store.Tx, id uuid.UUID) error {
	sp, err := tx.FindSalesPerson(ctx, id)
	if err != nil {
		return accounting.WrapStorage("load sales person", err)
	}
	if sp == nil {
		return &accounting.NotFoundError{Entity: "sales person", ID: id}
	}
	return nil
}

func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &accounting.InputError{Field: "body", Reason: err.Error()}
	}
	return h.validate.Struct(dst)
}

func yearAndWeekQuery(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	year, err := intParam(q.Get("year"), "year")
	if err != nil {
		return 0, 0, err
	}
	if year < 1970 || year > 9999 {
		return 0, 0, &accounting.InputError{Field: "year", Reason: "out of range"}
	}
	untilWeek := calendar.WeeksInYear(year)
	if s := q.Get("until_week"); s != "" {
		if untilWeek, err = intParam(s, "until_week"); err != nil {
			return 0, 0, err
		}
	}
	if untilWeek < 1 {
		return 0, 0, &accounting.InputError{Field: "until_week", Reason: "must be at least 1"}
	}
	return year, untilWeek, nil
}

func dateQuery(r *http.Request, name string) (calendar.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return calendar.Date{}, &accounting.InputError{Field: name, Reason: "is required"}
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return calendar.Date{}, &accounting.InputError{Field: name, Reason: err.Error()}
	}
	return d, nil
}

func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, &accounting.InputError{Field: name, Reason: "is required"}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &accounting.InputError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &accounting.InputError{Field: name, Reason: "must be a uuid"}
	}
	return id, nil
}

// fieldError is one failed validation rule.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// statusFor maps an error kind to the HTTP status and public message.
func statusFor(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "Validation failed"
	case accounting.IsForbidden(err):
		return http.StatusForbidden, "Forbidden"
	case accounting.IsNotFound(err):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, accounting.ErrDuplicateBooking):
		return http.StatusConflict, "Sales person is already booked into this slot"
	case accounting.IsCalculation(err):
		return http.StatusInternalServerError, "Calculation failed"
	case accounting.IsClientError(err):
		return http.StatusBadRequest, "Invalid input"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", fields...)
		writeError(w, status, message, nil)
		return
	}
	h.log.Warn("request failed", fields...)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		writeJSON(w, status, ErrorResponse{Error: message, Code: "validation", Details: details})
		return
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
