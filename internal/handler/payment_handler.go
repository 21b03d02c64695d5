package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"hubadmin/internal/checkout"
	"hubadmin/internal/domain"
	"hubadmin/internal/models"
	"hubadmin/internal/repository"
	"hubadmin/internal/session"
	"hubadmin/internal/table"
	"hubadmin/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type PaymentHandler struct {
	env  *Env
	repo *repository.PaymentAttemptRepository
}

func NewPaymentHandler(env *Env, repo *repository.PaymentAttemptRepository) *PaymentHandler {
	return &PaymentHandler{env: env, repo: repo}
}

// Live handles GET /api/payments/live: the attempts on display for the
// caller's session.
func (h *PaymentHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"payments": sess(c).Payments.List()})
}

// History handles GET /api/payments?state=&booking=&mine=1&search=
func (h *PaymentHandler) History(c *gin.Context) {
	q := table.ParseQuery(c, "state")
	f := repository.PaymentAttemptFilter{
		State:      q.Filter("state"),
		BookingRef: c.Query("booking"),
		Search:     q.Search,
	}
	if c.Query("mine") == "1" {
		f.OperatorID = c.GetInt64(domain.CtxUserID)
	}
	list, total, err := h.repo.List(f, q.Page, q.Limit)
	if err != nil {
		log.Printf("[DB] payment history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, table.Window(list, int(total), q.Page, q.Limit))
}

// NewPaymentRecorder returns the hook that persists every attempt change,
// pushes it to the operator's websocket and audits resolutions. It runs
// under the workflow lock, so it only touches the database and the hub.
func NewPaymentRecorder(repo *repository.PaymentAttemptRepository, audit *repository.AuditLogRepository, hub *ws.Hub) session.PaymentHook {
	return func(s *session.Session, a checkout.Attempt) {
		if hub != nil {
			hub.BroadcastToSession(s.ID, ws.PaymentEvent(a))
		}
		// Dismissal only clears the display; the row keeps its verdict.
		if a.State == checkout.StateIdle || repo == nil {
			return
		}
		var operatorID int64
		var email string
		if u := s.User(); u != nil {
			operatorID = u.UserID
			email = u.Email
		}
		row := &models.PaymentAttempt{
			AttemptID:     a.ID,
			SessionID:     s.ID,
			OperatorID:    operatorID,
			BookingRef:    a.BookingRef,
			UserID:        a.UserID,
			CheckoutID:    a.CheckoutID,
			Phone:         a.Phone,
			Amount:        a.Amount,
			State:         string(a.State),
			RetryCount:    a.RetryCount,
			PollErrors:    a.PollErrors,
			LastPollError: a.LastPollError,
			FailureReason: string(a.FailureReason),
			StartedAt:     a.StartedAt,
			ResolvedAt:    a.ResolvedAt,
		}
		if err := repo.Upsert(row); err != nil {
			log.Printf("[PAYMENT] persist attempt=%s booking=%s: %v", a.ID, a.BookingRef, err)
		}
		if !a.State.Terminal() || audit == nil {
			return
		}
		meta, _ := json.Marshal(map[string]interface{}{
			"attempt_id":     a.ID,
			"state":          a.State,
			"failure_reason": a.FailureReason,
			"checkout_id":    a.CheckoutID,
			"polls":          a.RetryCount,
		})
		entry := &models.AuditLog{
			Email:      email,
			Action:     domain.AuditPaymentResolved,
			Resource:   "booking",
			ResourceID: a.BookingRef,
			Metadata:   datatypes.JSON(meta),
		}
		if operatorID != 0 {
			entry.OperatorID = &operatorID
		}
		if err := audit.Create(entry); err != nil {
			log.Printf("[AUDIT] %s booking=%s: %v", domain.AuditPaymentResolved, a.BookingRef, err)
		}
	}
}
