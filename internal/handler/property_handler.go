package handler

import (
	"net/http"
	"strconv"
	"strings"

	"hubadmin/internal/domain"
	"hubadmin/internal/table"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
)

type PropertyHandler struct {
	env *Env
}

func NewPropertyHandler(env *Env) *PropertyHandler {
	return &PropertyHandler{env: env}
}

func propertyStatus(p campushub.Property) string {
	if p.Verified {
		return domain.VerificationVerified
	}
	if s := strings.TrimSpace(p.Status); s != "" {
		return s
	}
	return domain.VerificationUnverified
}

func (h *PropertyHandler) list(c *gin.Context, keep func(campushub.Property) bool) {
	q := table.ParseQuery(c, "status")
	list, err := sess(c).Client.Properties(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "properties")
		return
	}
	rows := table.Filter(list, func(p campushub.Property) bool {
		return keep(p) &&
			table.Matches(q.Search, p.Name, p.Location, p.LandlordName) &&
			table.Is(q.Filter("status"), propertyStatus(p))
	})
	c.JSON(http.StatusOK, table.Paginate(rows, q.Page, q.Limit))
}

// List handles GET /api/properties.
func (h *PropertyHandler) List(c *gin.Context) {
	h.list(c, func(campushub.Property) bool { return true })
}

// Verifications handles GET /api/verifications: properties still waiting
// for their listing fee to be checked.
func (h *PropertyHandler) Verifications(c *gin.Context) {
	h.list(c, func(p campushub.Property) bool { return !bool(p.Verified) })
}

// Verify handles POST /api/properties/:id/verify {"transaction_id": "..."}.
func (h *PropertyHandler) Verify(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		TransactionID string `json:"transaction_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id is required"})
		return
	}
	txn := strings.TrimSpace(req.TransactionID)
	if err := sess(c).Client.VerifyProperty(c.Request.Context(), id, txn); err != nil {
		h.env.fail(c, err, "verify property")
		return
	}
	h.env.audit(c, domain.AuditPropertyVerify, "property", strconv.FormatInt(id, 10), map[string]interface{}{"transaction_id": txn})
	c.JSON(http.StatusOK, gin.H{"message": "property verified"})
}
