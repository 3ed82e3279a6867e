// Waitlist HTTP handlers.
//
// This file exposes REST endpoints for waitlist resources:
//   - POST   /waitlist/join           (join a queue)
//   - GET    /waitlist/my-entries     (list own entries, paginated)
//   - DELETE /waitlist/{id}           (cancel an entry)
//   - POST   /waitlist/{id}/respond   (accept/decline a slot offer)
//   - GET    /waitlist/salons/{salonId} (owner overview)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (including sentinel errors) into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/http/middleware"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
	"github.com/tbourn/go-waitlist-backend/internal/services"
	"github.com/tbourn/go-waitlist-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// WaitlistService defines queue lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type WaitlistService interface {
	// Join runs the join protocol and returns the entry with its queue position.
	Join(ctx context.Context, customerID string, req services.JoinRequest) (*domain.WaitlistEntry, int, error)
	// Cancel closes the customer's own waiting or notified entry.
	Cancel(ctx context.Context, customerID, entryID string) error
	// ListMine returns a page of the customer's entries and the total count.
	ListMine(ctx context.Context, customerID string, page, pageSize int) ([]services.EntrySummary, int64, error)
	// Overview returns the salon's waitlist aggregates for its owner.
	Overview(ctx context.Context, requesterID, salonID string) (*services.SalonOverview, error)
}

// ResponseService defines offer-response operations (accept/decline).
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ResponseService interface {
	// Respond processes a customer's response to an outstanding slot offer.
	Respond(ctx context.Context, customerID, entryID, response string) (*services.RespondResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for waitlist entries and offer responses.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	wlSvc   WaitlistService
	respSvc ResponseService

	// IdempotencyTTL bounds how long a stored respond outcome can be replayed.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(wlSvc WaitlistService, respSvc ResponseService) *Handlers {
	return &Handlers{wlSvc: wlSvc, respSvc: respSvc, IdempotencyTTL: 24 * time.Hour}
}

// customerID extracts the authenticated customer id from Gin context (set by
// upstream middleware). If absent, it falls back to "X-Customer-ID" header
// (tests use it), and finally to "demo-customer". It never touches c.Request
// if it's nil.
func customerID(c *gin.Context) string {
	if v, ok := c.Get("customerID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Customer-ID")); h != "" {
			return h
		}
	}
	return "demo-customer"
}

//
// DTOs
//

// JoinWaitlistRequest is the JSON payload for joining a waitlist.
type JoinWaitlistRequest struct {
	// SalonID identifies the salon whose queue is joined.
	SalonID string `json:"salon_id" binding:"required" example:"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"`
	// ServiceID identifies the requested service at that salon.
	ServiceID string `json:"service_id" binding:"required" example:"c56a4180-65aa-42ec-a945-5fd21dec0538"`
	// StaffID optionally pins the request to one staff member.
	StaffID *string `json:"staff_id,omitempty" example:"16fd2706-8baf-433b-82eb-8c7fada847da"`
	// RequestedDate is the preferred date, formatted YYYY-MM-DD.
	RequestedDate string `json:"requested_date" binding:"required" example:"2026-09-15"`
	// WindowStart is the earliest acceptable start time, formatted HH:MM.
	WindowStart string `json:"window_start" binding:"required" example:"10:00"`
	// WindowEnd is the latest acceptable start time, formatted HH:MM.
	WindowEnd string `json:"window_end" binding:"required" example:"14:00"`
	// FlexibilityDays widens matching to nearby dates (0 = exact date only).
	FlexibilityDays int `json:"flexibility_days" binding:"min=0,max=7" example:"1"`
}

// RespondRequest is the JSON payload for answering a slot offer.
type RespondRequest struct {
	// Response is "accepted" or "declined".
	Response string `json:"response" binding:"required,oneof=accepted declined" example:"accepted"`
}

// JoinWaitlistResponse wraps the created entry with its queue position.
type JoinWaitlistResponse struct {
	Entry    domain.WaitlistEntry `json:"entry"`
	Position int                  `json:"position"`
}

// SlotsAvailableResponse is returned when the join is redirected because free
// slots already satisfy the request.
type SlotsAvailableResponse struct {
	RequestID      string            `json:"request_id,omitempty"`
	Code           string            `json:"code" example:"slots_available"`
	Message        string            `json:"message"`
	AvailableSlots []domain.TimeSlot `json:"available_slots"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListEntriesResponse wraps a page of entries and pagination information.
type ListEntriesResponse struct {
	Entries    []services.EntrySummary `json:"entries"`
	Pagination Pagination              `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failFromService maps service sentinel errors onto HTTP statuses and stable
// error codes. Unknown errors become 500s.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPastDate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "requested date is in the past")
	case errors.Is(err, services.ErrInvalidWindow):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid time window")
	case errors.Is(err, services.ErrInvalidResponse):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `response must be "accepted" or "declined"`)
	case errors.Is(err, services.ErrSalonNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "salon not found")
	case errors.Is(err, services.ErrServiceNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "service not found at this salon")
	case errors.Is(err, services.ErrStaffNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "staff member not found at this salon")
	case errors.Is(err, services.ErrCustomerNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "customer not found")
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "waitlist entry not found")
	case errors.Is(err, services.ErrSlotNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "time slot not found")
	case errors.Is(err, services.ErrNotEntryOwner), errors.Is(err, services.ErrNotSalonOwner):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed")
	case errors.Is(err, services.ErrDuplicateEntry):
		fail(c, http.StatusConflict, ErrCodeConflict, "an active waitlist entry already exists for this request")
	case errors.Is(err, services.ErrTooManyEntries):
		fail(c, http.StatusConflict, ErrCodeConflict, "too many active entries for this date")
	case errors.Is(err, services.ErrEntryNotNotified):
		fail(c, http.StatusConflict, ErrCodeConflict, "entry has no pending slot offer")
	case errors.Is(err, services.ErrEntryTerminal):
		fail(c, http.StatusConflict, ErrCodeConflict, "entry is already closed")
	case errors.Is(err, services.ErrDeadlinePassed):
		fail(c, http.StatusConflict, ErrCodeDeadlinePassed, "response deadline has passed; the slot was released")
	case errors.Is(err, services.ErrSlotTaken):
		fail(c, http.StatusConflict, ErrCodeSlotTaken, "the offered slot was booked by someone else")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// JoinWaitlist godoc
// @ID          joinWaitlist
// @Summary     Join a salon's waitlist
// @Description Creates a waiting entry for the current customer, or redirects to booking with 422 when free slots already match the request.
// @Tags        Waitlist
// @Accept      json
// @Produce     json
//
// @Param       X-Customer-ID  header  string  false "Customer ID (demo header)"  example(cust123)
// @Param       body           body    handlers.JoinWaitlistRequest  true  "Join payload"
//
// @Success     201  {object}  handlers.JoinWaitlistResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown salon/service/staff"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate entry or per-date cap reached"
// @Failure     422  {object}  handlers.SlotsAvailableResponse  "Free slots already satisfy the request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /waitlist/join [post]
func (h *Handlers) JoinWaitlist(c *gin.Context) {
	var req JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	entry, pos, err := h.wlSvc.Join(c.Request.Context(), customerID(c), services.JoinRequest{
		SalonID:         req.SalonID,
		ServiceID:       req.ServiceID,
		StaffID:         req.StaffID,
		RequestedDate:   req.RequestedDate,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		FlexibilityDays: req.FlexibilityDays,
	})
	if err != nil {
		if sa, isSA := services.AsSlotsAvailable(err); isSA {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, SlotsAvailableResponse{
				RequestID:      c.Writer.Header().Get("X-Request-ID"),
				Code:           ErrCodeSlotsAvailable,
				Message:        "free slots already match this request; book directly instead",
				AvailableSlots: sa.Slots,
			})
			return
		}
		failFromService(c, err)
		return
	}
	ok(c, http.StatusCreated, JoinWaitlistResponse{Entry: *entry, Position: pos})
}

// ListMyEntries godoc
// @ID          listMyEntries
// @Summary     List my waitlist entries (paginated)
// @Description Returns a page of the current customer's entries, newest first, enriched with names and live queue positions.
// @Tags        Waitlist
// @Produce     json
//
// @Param       X-Customer-ID  header  string  false "Customer ID (demo header)"  example(cust123)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListEntriesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /waitlist/my-entries [get]
func (h *Handlers) ListMyEntries(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.wlSvc.ListMine(c.Request.Context(), customerID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListEntriesResponse{
		Entries: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// CancelEntry godoc
// @ID          cancelEntry
// @Summary     Cancel a waitlist entry
// @Description Cancels the current customer's waiting or notified entry. Cancelling a notified entry releases its slot to the next match.
// @Tags        Waitlist
// @Produce     json
//
// @Param       X-Customer-ID  header  string  false "Customer ID (demo header)"  example(cust123)
// @Param       id             path    string  true  "Entry ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Not the entry owner"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     409  {object} handlers.ErrorResponse "Entry already closed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /waitlist/{id} [delete]
func (h *Handlers) CancelEntry(c *gin.Context) {
	if err := h.wlSvc.Cancel(c.Request.Context(), customerID(c), c.Param("id")); err != nil {
		failFromService(c, err)
		return
	}
	noContent(c)
}

// RespondToOffer godoc
// @ID          respondToOffer
// @Summary     Accept or decline a slot offer
// @Description Answers the pending slot offer on a notified entry. Accepting converts the offer into a confirmed booking; declining releases the slot to the next match. Supports Idempotency-Key for safe retries of accepts.
// @Tags        Waitlist
// @Accept      json
// @Produce     json
//
// @Param       X-Customer-ID    header  string  false "Customer ID (demo header)"  example(cust123)
// @Param       Idempotency-Key  header  string  false "Key for safe retries"
// @Param       id               path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       body             body    handlers.RespondRequest  true  "Response payload"
//
// @Success     200  {object} services.RespondResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the entry owner"
// @Failure     404  {object} handlers.ErrorResponse "Entry not found"
// @Failure     409  {object} handlers.ErrorResponse "No pending offer, deadline passed, or slot taken"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /waitlist/{id}/respond [post]
func (h *Handlers) RespondToOffer(c *gin.Context) {
	entryID := c.Param("id")

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `response must be "accepted" or "declined"`)
		return
	}

	ctx := c.Request.Context()
	cid := customerID(c)

	// Replay: serve the previously persisted outcome instead of re-running.
	var db *gorm.DB
	if svc, isSvc := h.respSvc.(*services.ResponseService); isSvc {
		db = svc.DB
	}
	if key, has := middleware.GetIdempotencyKey(c); has && middleware.IsReplay(c) && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, cid, entryID, key, time.Now().UTC()); err == nil {
			result := services.RespondResult{Response: domain.ResponseDeclined}
			if rec.BookingID != "" {
				result.Response = domain.ResponseAccepted
				result.BookingID = rec.BookingID
				if b, err := repo.GetBooking(ctx, db, rec.BookingID); err == nil {
					result.SlotID = b.SlotID
				}
			}
			ok(c, rec.Status, result)
			return
		}
	}

	result, err := h.respSvc.Respond(ctx, cid, entryID, req.Response)
	if err != nil {
		failFromService(c, err)
		return
	}

	// Record the outcome for future replays (best effort).
	if key, has := middleware.GetIdempotencyKey(c); has && db != nil {
		if _, err := repo.CreateIdempotency(ctx, db, cid, entryID, key, result.BookingID, http.StatusOK, h.IdempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record write failed")
		}
	}

	ok(c, http.StatusOK, result)
}

// SalonWaitlist godoc
// @ID          salonWaitlist
// @Summary     Salon waitlist overview (owner only)
// @Description Returns status counts, per-date and per-service waiting breakdowns, and recent entries for the salon. Only the salon owner may call this.
// @Tags        Waitlist
// @Produce     json
//
// @Param       X-Customer-ID  header  string  false "Requester ID (demo header)"  example(owner123)
// @Param       salonId        path    string  true  "Salon ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.SalonOverview
// @Failure     403  {object} handlers.ErrorResponse "Not the salon owner"
// @Failure     404  {object} handlers.ErrorResponse "Salon not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /waitlist/salons/{salonId} [get]
func (h *Handlers) SalonWaitlist(c *gin.Context) {
	overview, err := h.wlSvc.Overview(c.Request.Context(), customerID(c), c.Param("salonId"))
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, overview)
}
