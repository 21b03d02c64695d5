package handler

import (
	"log"
	"net/http"

	"hubadmin/internal/repository"
	"hubadmin/internal/table"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	repo *repository.AuditLogRepository
}

func NewAuditHandler(repo *repository.AuditLogRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// List handles GET /api/audit-logs?action=&search=&page=&limit=
func (h *AuditHandler) List(c *gin.Context) {
	q := table.ParseQuery(c, "action")
	list, total, err := h.repo.List(q.Filter("action"), q.Search, q.Page, q.Limit)
	if err != nil {
		log.Printf("[DB] audit logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit logs"})
		return
	}
	c.JSON(http.StatusOK, table.Window(list, int(total), q.Page, q.Limit))
}
