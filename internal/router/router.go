package router

import (
	"net/http"
	"strings"

	"hubadmin/config"
	"hubadmin/internal/checkout"
	"hubadmin/internal/console"
	"hubadmin/internal/domain"
	"hubadmin/internal/handler"
	"hubadmin/internal/middleware"
	"hubadmin/internal/repository"
	"hubadmin/internal/session"
	"hubadmin/internal/ws"

	"github.com/gin-gonic/gin"
)

// Deps are built by main; the payment recorder needs the repositories and
// the hub before the session store exists.
type Deps struct {
	Store    *session.Store
	Hub      *ws.Hub
	Payments *repository.PaymentAttemptRepository
	Audit    *repository.AuditLogRepository
	Admin    *repository.AdminRepository
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	loginLimit := middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst))

	env := &handler.Env{
		Store:      d.Store,
		Hub:        d.Hub,
		Audit:      d.Audit,
		CookieName: cfg.JWT.CookieName,
		Secure:     cfg.IsProduction(),
	}

	authHandler := handler.NewAuthHandler(env, &cfg.JWT)
	dashboardHandler := handler.NewDashboardHandler(env, d.Admin)
	settingsHandler := handler.NewSettingsHandler(env)
	userHandler := handler.NewUserHandler(env)
	propertyHandler := handler.NewPropertyHandler(env)
	listingHandler := handler.NewListingHandler(env)
	bookingHandler := handler.NewBookingHandler(env)
	paymentHandler := handler.NewPaymentHandler(env, d.Payments)
	planHandler := handler.NewPlanHandler(env)
	auditHandler := handler.NewAuditHandler(d.Audit)
	pageHandler := handler.NewPageHandler(env, &cfg.JWT)

	authMw := middleware.AuthRequired(&cfg.JWT, d.Store)
	adminMw := middleware.RequireRole(domain.RoleAdmin)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": d.Store.Len()})
	})

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", loginLimit, authHandler.Login)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.GET("/csrf", authHandler.CSRFToken)
			authGroup.GET("/profile", authMw, authHandler.Profile)
		}

		admin := api.Group("", authMw, adminMw)
		{
			admin.GET("/dashboard", dashboardHandler.Dashboard)
			admin.GET("/activities", dashboardHandler.Activities)
			admin.GET("/reports/payments", dashboardHandler.PaymentReport)

			admin.GET("/settings/maintenance", settingsHandler.GetMaintenance)
			admin.PUT("/settings/maintenance", settingsHandler.SetMaintenance)

			admin.GET("/users", userHandler.List)
			admin.PATCH("/users/:id/status", userHandler.SetStatus)

			admin.GET("/properties", propertyHandler.List)
			admin.POST("/properties/:id/verify", propertyHandler.Verify)
			admin.GET("/verifications", propertyHandler.Verifications)

			admin.GET("/listings", listingHandler.List)
			admin.PUT("/listings/:id", listingHandler.Edit)
			admin.DELETE("/listings/:id", listingHandler.Delete)

			admin.GET("/bookings", bookingHandler.Bookings)
			admin.POST("/bookings/:id/pay", bookingHandler.Pay)
			admin.GET("/bookings/:id/payment", bookingHandler.Payment)
			admin.DELETE("/bookings/:id/payment", bookingHandler.Abandon)
			admin.GET("/requests", bookingHandler.Requests)
			admin.POST("/requests/:id/book", bookingHandler.Book)

			admin.GET("/payments", paymentHandler.History)
			admin.GET("/payments/live", paymentHandler.Live)

			admin.GET("/plans", planHandler.List)
			admin.POST("/plans", planHandler.Create)
			admin.PUT("/plans/:id", planHandler.Update)
			admin.DELETE("/plans/:id", planHandler.Delete)
			admin.POST("/plans/:id/popular", planHandler.TogglePopular)

			admin.GET("/audit-logs", auditHandler.List)
		}
	}

	r.GET("/ws/payments", authMw, adminMw, ws.ServePayments(d.Hub, func(c *gin.Context) (string, []checkout.Attempt, bool) {
		s := middleware.CurrentSession(c)
		if s == nil {
			return "", nil, false
		}
		return s.ID, s.Payments.List(), true
	}))

	for _, p := range console.Paths() {
		r.GET(p, pageHandler.Serve)
	}
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		pageHandler.Serve(c)
	})

	return r
}
