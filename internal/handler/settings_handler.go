package handler

import (
	"net/http"

	"hubadmin/internal/domain"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	env *Env
}

func NewSettingsHandler(env *Env) *SettingsHandler {
	return &SettingsHandler{env: env}
}

// GetMaintenance handles GET /api/settings/maintenance.
func (h *SettingsHandler) GetMaintenance(c *gin.Context) {
	m, err := sess(c).Client.Maintenance(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "maintenance status")
		return
	}
	c.JSON(http.StatusOK, m)
}

// SetMaintenance handles PUT /api/settings/maintenance.
func (h *SettingsHandler) SetMaintenance(c *gin.Context) {
	var req struct {
		IsActive *bool  `json:"is_active" binding:"required"`
		Message  string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := sess(c).Client.SetMaintenance(c.Request.Context(), *req.IsActive, req.Message)
	if err != nil {
		h.env.fail(c, err, "set maintenance")
		return
	}
	h.env.audit(c, domain.AuditMaintenanceChange, "system", "maintenance", map[string]interface{}{
		"is_active": *req.IsActive,
		"message":   req.Message,
	})
	c.JSON(http.StatusOK, m)
}
