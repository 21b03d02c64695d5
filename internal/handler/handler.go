package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"hubadmin/internal/checkout"
	"hubadmin/internal/domain"
	"hubadmin/internal/middleware"
	"hubadmin/internal/models"
	"hubadmin/internal/repository"
	"hubadmin/internal/session"
	"hubadmin/internal/ws"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// Env is shared by every console handler.
type Env struct {
	Store      *session.Store
	Hub        *ws.Hub
	Audit      *repository.AuditLogRepository
	CookieName string
	Secure     bool
}

// fail answers for an error from the marketplace API or the payment
// workflow. A 401 upstream ends the operator's console session too.
func (e *Env) fail(c *gin.Context, err error, what string) {
	var apiErr *campushub.APIError
	switch {
	case errors.Is(err, campushub.ErrUnauthorized):
		if s := middleware.CurrentSession(c); s != nil {
			e.endSession(s.ID)
		}
		e.clearCookie(c)
		middleware.Unauthorized(c, "session expired, please sign in again")
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		msg := apiErr.Message
		if msg == "" {
			msg = what + " failed"
		}
		body := gin.H{"error": msg}
		if apiErr.AttemptsLeft != nil {
			body["attempts_left"] = *apiErr.AttemptsLeft
		}
		c.JSON(status, body)
	case errors.Is(err, session.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "booking is already paid"})
	case errors.Is(err, checkout.ErrPhoneRequired), errors.Is(err, checkout.ErrBookingRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session is closing"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[UPSTREAM] %s: %v", what, err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": what + " timed out"})
	default:
		log.Printf("[UPSTREAM] %s: %v", what, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": what + " failed"})
	}
}

func (e *Env) endSession(id string) {
	e.Store.Delete(id)
	if e.Hub != nil {
		e.Hub.CloseSession(id)
	}
}

func (e *Env) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(e.CookieName, "", -1, "/", "", e.Secure, true)
}

// audit records an operator action. Failures are logged, never surfaced.
func (e *Env) audit(c *gin.Context, action, resource, resourceID string, meta map[string]interface{}) {
	if e.Audit == nil {
		return
	}
	entry := &models.AuditLog{
		Email:      c.GetString(domain.CtxEmail),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if id := c.GetInt64(domain.CtxUserID); id != 0 {
		entry.OperatorID = &id
	}
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	if err := e.Audit.Create(entry); err != nil {
		log.Printf("[AUDIT] %s %s/%s: %v", action, resource, resourceID, err)
	}
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// sess returns the caller's session; AuthRequired guarantees one.
func sess(c *gin.Context) *session.Session { return middleware.CurrentSession(c) }
