package handler

import (
	"errors"
	"net/http"

	"hubadmin/config"
	"hubadmin/internal/auth"
	"hubadmin/internal/domain"
	"hubadmin/internal/middleware"
	"hubadmin/internal/session"
	"hubadmin/pkg/campushub"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	env *Env
	jwt *config.JWTConfig
}

func NewAuthHandler(env *Env, jwt *config.JWTConfig) *AuthHandler {
	return &AuthHandler{env: env, jwt: jwt}
}

type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// Login handles POST /api/auth/login: email + one-time password against the
// marketplace, then a console session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.env.Store.Login(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		c.Set(domain.CtxEmail, req.Email)
		h.env.audit(c, domain.AuditLoginFailed, "auth", "", nil)
		if errors.Is(err, campushub.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.env.fail(c, err, "login")
		return
	}
	user := s.User()
	token, err := auth.GenerateSessionToken(h.jwt, s.ID, user.UserID, user.Email, user.Role)
	if err != nil {
		h.env.Store.Delete(s.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.jwt.CookieName, token, int(h.jwt.Expiry.Seconds()), "/", "", h.env.Secure, true)

	c.Set(domain.CtxUserID, user.UserID)
	c.Set(domain.CtxEmail, user.Email)
	h.env.audit(c, domain.AuditLogin, "auth", s.ID, nil)
	c.JSON(http.StatusOK, s.State())
}

// Profile handles GET /api/auth/profile: the session contract after
// re-checking the upstream login.
func (h *AuthHandler) Profile(c *gin.Context) {
	state, err := sess(c).Check(c.Request.Context())
	if err != nil {
		h.env.fail(c, err, "profile")
		return
	}
	c.JSON(http.StatusOK, state)
}

// Logout handles POST /api/auth/logout. The console session always ends,
// whatever the upstream says.
func (h *AuthHandler) Logout(c *gin.Context) {
	if s, claims, ok := middleware.LookupSession(h.jwt, h.env.Store, c); ok {
		c.Set(domain.CtxUserID, claims.UserID)
		c.Set(domain.CtxEmail, claims.Email)
		_ = h.env.Store.Logout(c.Request.Context(), s.ID)
		if h.env.Hub != nil {
			h.env.Hub.CloseSession(s.ID)
		}
		h.env.audit(c, domain.AuditLogout, "auth", s.ID, nil)
	}
	h.env.clearCookie(c)
	c.JSON(http.StatusOK, session.State{})
}

// CSRFToken handles GET /api/auth/csrf for clients that cannot read cookies.
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": middleware.CSRFToken(c.Request)})
}
