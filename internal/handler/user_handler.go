package handler

import (
	"net/http"
	"strconv"

	"hubadmin/internal/domain"
	"hubadmin/internal/table"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	env *Env
}

func NewUserHandler(env *Env) *UserHandler {
	return &UserHandler{env: env}
}

// UserRow is a user as the users table shows it.
type UserRow struct {
	ID             int64                     `json:"id"`
	Name           string                    `json:"name"`
	Email          string                    `json:"email"`
	Phone          string                    `json:"phone"`
	Role           string                    `json:"role"`
	Status         string                    `json:"status"`
	Joined         string                    `json:"joined"`
	Verification   string                    `json:"verification"`
	ProfileImage   string                    `json:"profile_image,omitempty"`
	SecurityChecks []campushub.SecurityCheck `json:"security_checks"`
}

func toUserRow(u campushub.User) UserRow {
	row := UserRow{
		ID:             u.UserID,
		Name:           u.Username,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		Status:         domain.UserStatusInactive,
		Joined:         u.CreatedAt,
		Verification:   domain.VerificationUnverified,
		ProfileImage:   u.ProfileImage,
		SecurityChecks: u.SecurityChecks,
	}
	if u.IsActive {
		row.Status = domain.UserStatusActive
	}
	if t, ok := campushub.ParseTimestamp(u.CreatedAt); ok {
		row.Joined = t.Format("2006-01-02")
	}
	if len(u.SecurityChecks) > 0 {
		switch u.SecurityChecks[0].Status {
		case domain.VerificationVerified:
			row.Verification = domain.VerificationVerified
		case domain.VerificationPending:
			row.Verification = domain.VerificationPending
		}
	}
	if row.SecurityChecks == nil {
		row.SecurityChecks = []campushub.SecurityCheck{}
	}
	return row
}

// List handles GET /api/users?search=&role=&status=&page=&limit=
func (h *UserHandler) List(c *gin.Context) {
	q := table.ParseQuery(c, "role", "status")
	page, err := sess(c).Client.Users(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "users")
		return
	}
	rows := make([]UserRow, 0, len(page.Users))
	for _, u := range page.Users {
		row := toUserRow(u)
		if table.Matches(q.Search, row.Name, row.Email) &&
			table.Is(q.Filter("role"), row.Role) &&
			table.Is(q.Filter("status"), row.Status) {
			rows = append(rows, row)
		}
	}
	c.JSON(http.StatusOK, table.Paginate(rows, q.Page, q.Limit))
}

// SetStatus handles PATCH /api/users/:id/status {"is_active": true|false}.
func (h *UserHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive *campushub.Flag `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
		return
	}
	active := bool(*req.IsActive)
	if err := sess(c).Client.SetUserStatus(c.Request.Context(), id, active); err != nil {
		h.env.fail(c, err, "set user status")
		return
	}
	status := domain.UserStatusInactive
	if active {
		status = domain.UserStatusActive
	}
	h.env.audit(c, domain.AuditUserStatus, "user", strconv.FormatInt(id, 10), map[string]interface{}{"status": status})
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}
