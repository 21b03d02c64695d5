package handler

import (
	"errors"
	"net/http"
	"strconv"

	"hubadmin/internal/checkout"
	"hubadmin/internal/domain"
	"hubadmin/internal/table"
	"hubadmin/pkg/campushub"
	"hubadmin/pkg/payment"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	env *Env
}

func NewBookingHandler(env *Env) *BookingHandler {
	return &BookingHandler{env: env}
}

// BookingRow is a booking plus the payment attempt on display for it.
type BookingRow struct {
	campushub.Booking
	Payment *checkout.Attempt `json:"payment,omitempty"`
}

// Bookings handles GET /api/bookings?status=&payment_status=&refresh=1
func (h *BookingHandler) Bookings(c *gin.Context) {
	q := table.ParseQuery(c, "status", "payment_status")
	s := sess(c)
	snap, err := s.LoadBookings(c.Request.Context(), c.Query("refresh") == "1")
	if err != nil {
		h.env.fail(c, err, "bookings")
		return
	}
	rows := make([]BookingRow, 0, len(snap.Bookings))
	for _, b := range snap.Bookings {
		if !table.Matches(q.Search, b.TenantName, b.Phone, strconv.FormatInt(b.BookingID, 10)) ||
			!table.Is(q.Filter("status"), b.Status) ||
			!table.Is(q.Filter("payment_status"), b.PaymentStatus) {
			continue
		}
		row := BookingRow{Booking: b}
		if a, ok := s.Payments.Get(strconv.FormatInt(b.BookingID, 10)); ok {
			row.Payment = &a
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, gin.H{
		"table":     table.Paginate(rows, q.Page, q.Limit),
		"loaded_at": snap.LoadedAt,
	})
}

// Requests handles GET /api/requests?status=&refresh=1
func (h *BookingHandler) Requests(c *gin.Context) {
	q := table.ParseQuery(c, "status")
	snap, err := sess(c).LoadBookings(c.Request.Context(), c.Query("refresh") == "1")
	if err != nil {
		h.env.fail(c, err, "booking requests")
		return
	}
	rows := table.Filter(snap.Requests, func(r campushub.BookingRequest) bool {
		return table.Matches(q.Search, r.Username, r.Phone) && table.Is(q.Filter("status"), r.Status)
	})
	c.JSON(http.StatusOK, table.Paginate(rows, q.Page, q.Limit))
}

type BookRequest struct {
	ListingID int64  `json:"listing_id"`
	UserID    int64  `json:"user_id"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amount" binding:"gte=0"`
}

// Book handles POST /api/requests/:id/book. Fields left out of the body are
// taken from the request in the snapshot.
func (h *BookingHandler) Book(c *gin.Context) {
	requestID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	s := sess(c)
	snap, err := s.LoadBookings(ctx, false)
	if err != nil {
		h.env.fail(c, err, "booking requests")
		return
	}
	for _, r := range snap.Requests {
		if r.RequestID != requestID {
			continue
		}
		if req.ListingID == 0 {
			req.ListingID = r.ListingID
		}
		if req.UserID == 0 {
			req.UserID = r.UserID
		}
		if req.Phone == "" {
			req.Phone = r.Phone
		}
		break
	}
	if req.ListingID == 0 || req.UserID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "booking request not found"})
		return
	}
	phone := payment.NormalizePhone(req.Phone)
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	in := campushub.BookListing{
		ListingID: req.ListingID,
		RequestID: requestID,
		Phone:     phone,
		Amount:    req.Amount,
		UserID:    req.UserID,
	}
	if err := s.Client.BookListing(ctx, in); err != nil {
		h.env.fail(c, err, "book listing")
		return
	}
	h.env.audit(c, domain.AuditBookListing, "request", strconv.FormatInt(requestID, 10), map[string]interface{}{
		"listing_id": in.ListingID,
		"user_id":    in.UserID,
		"amount":     in.Amount,
	})
	snap, err = s.LoadBookings(ctx, true)
	if err != nil {
		h.env.fail(c, err, "bookings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "listing booked", "bookings": snap})
}

type PayRequest struct {
	Phone  string `json:"phone"`
	Amount int64  `json:"amount" binding:"gte=0"`
}

// Pay handles POST /api/bookings/:id/pay. The body is optional; the payee
// phone and amount default to the booking's.
func (h *BookingHandler) Pay(c *gin.Context) {
	bookingID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req PayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	a, err := sess(c).TriggerPayment(c.Request.Context(), bookingID, req.Phone, req.Amount)
	if errors.Is(err, checkout.ErrAttemptInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": "payment already in progress", "payment": a})
		return
	}
	if err != nil {
		h.env.fail(c, err, "trigger payment")
		return
	}
	h.env.audit(c, domain.AuditPaymentTrigger, "booking", a.BookingRef, map[string]interface{}{
		"attempt_id": a.ID,
		"phone":      a.Phone,
		"amount":     a.Amount,
	})
	c.JSON(http.StatusAccepted, gin.H{"payment": a})
}

// Payment handles GET /api/bookings/:id/payment.
func (h *BookingHandler) Payment(c *gin.Context) {
	bookingID, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, found := sess(c).Payments.Get(strconv.FormatInt(bookingID, 10))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no payment on display for this booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": a})
}

// Abandon handles DELETE /api/bookings/:id/payment.
func (h *BookingHandler) Abandon(c *gin.Context) {
	bookingID, ok := parseID(c, "id")
	if !ok {
		return
	}
	ref := strconv.FormatInt(bookingID, 10)
	if !sess(c).Payments.Abandon(ref) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no payment on display for this booking"})
		return
	}
	h.env.audit(c, domain.AuditPaymentAbandon, "booking", ref, nil)
	c.JSON(http.StatusOK, gin.H{"message": "payment abandoned"})
}
