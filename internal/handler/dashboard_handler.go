package handler

import (
	"log"
	"net/http"
	"strconv"

	"hubadmin/internal/domain"
	"hubadmin/internal/repository"
	"hubadmin/internal/table"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	env       *Env
	adminRepo *repository.AdminRepository
}

func NewDashboardHandler(env *Env, adminRepo *repository.AdminRepository) *DashboardHandler {
	return &DashboardHandler{env: env, adminRepo: adminRepo}
}

// Dashboard handles GET /api/dashboard: marketplace overview, the latest
// activity and the console's own payment numbers.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(domain.DefaultActivityLimit)))
	if err != nil || limit < 1 {
		limit = domain.DefaultActivityLimit
	}
	ctx := c.Request.Context()
	s := sess(c)

	overview, err := s.Client.DashboardOverview(ctx)
	if err != nil {
		h.env.fail(c, err, "dashboard")
		return
	}
	recent, err := s.Client.RecentActivities(ctx, limit)
	if err != nil {
		h.env.fail(c, err, "recent activity")
		return
	}
	if recent == nil {
		recent = []campushub.Activity{}
	}
	resp := gin.H{
		"overview":                 overview.Overview,
		"system_health":            overview.SystemHealth,
		"analytics_percent_change": overview.AnalyticsPercentChange,
		"recent_activity":          recent,
	}
	if h.adminRepo != nil {
		if stats, err := h.adminRepo.GetPaymentStats(); err == nil {
			resp["payments"] = stats
		} else {
			log.Printf("[DB] payment stats: %v", err)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Activities handles GET /api/activities: the full activity feed as a table.
func (h *DashboardHandler) Activities(c *gin.Context) {
	q := table.ParseQuery(c, "type")
	list, err := sess(c).Client.Activities(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "activities")
		return
	}
	rows := table.Filter(list, func(a campushub.Activity) bool {
		return table.Matches(q.Search, a.Title, a.Description) && table.Is(q.Filter("type"), a.Type)
	})
	c.JSON(http.StatusOK, table.Paginate(rows, q.Page, q.Limit))
}

// PaymentReport handles GET /api/reports/payments: successful payments per
// day over the last `days` (default 30).
func (h *DashboardHandler) PaymentReport(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		days = 30
	}
	stats, err := h.adminRepo.GetPaymentStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	series, err := h.adminRepo.SuccessfulPaymentsByDay(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load series"})
		return
	}
	if series == nil {
		series = []repository.TimeSeriesPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "series": series, "days": days})
}
