package middleware

import (
	"net/http"
	"strings"

	"hubadmin/config"
	"hubadmin/internal/auth"
	"hubadmin/internal/console"
	"hubadmin/internal/domain"
	"hubadmin/internal/session"

	"github.com/gin-gonic/gin"
)

// Unauthorized answers 401 with the login redirect the console follows.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": console.LoginPath})
}

// SessionToken returns the console token from the session cookie, or from
// a Bearer header for non-browser clients.
func SessionToken(c *gin.Context, cookieName string) string {
	if tok, err := c.Cookie(cookieName); err == nil && tok != "" {
		return tok
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// LookupSession resolves the request's token to a live session without
// aborting.
func LookupSession(cfg *config.JWTConfig, store *session.Store, c *gin.Context) (*session.Session, *auth.Claims, bool) {
	tok := SessionToken(c, cfg.CookieName)
	if tok == "" {
		return nil, nil, false
	}
	claims, err := auth.ParseSessionToken(cfg, tok)
	if err != nil {
		return nil, nil, false
	}
	s, ok := store.Get(claims.SessionID)
	if !ok {
		return nil, nil, false
	}
	return s, claims, true
}

// AuthRequired validates the console token, loads its session and sets
// session, session_id, user_id, email and role in context.
func AuthRequired(cfg *config.JWTConfig, store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := SessionToken(c, cfg.CookieName)
		if tok == "" {
			Unauthorized(c, "not signed in")
			return
		}
		claims, err := auth.ParseSessionToken(cfg, tok)
		if err != nil {
			Unauthorized(c, "invalid or expired session")
			return
		}
		s, ok := store.Get(claims.SessionID)
		if !ok {
			Unauthorized(c, "session ended")
			return
		}
		c.Set(domain.CtxSession, s)
		c.Set(domain.CtxSessionID, s.ID)
		c.Set(domain.CtxUserID, claims.UserID)
		c.Set(domain.CtxEmail, claims.Email)
		c.Set(domain.CtxRole, claims.Role)
		c.Next()
	}
}

// RequireRole checks that the authenticated operator has one of the allowed roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.GetString(domain.CtxRole)
		if r == "" {
			Unauthorized(c, "unauthorized")
			return
		}
		for _, a := range allowed {
			if strings.EqualFold(r, a) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
	}
}

// CurrentSession returns the session set by AuthRequired.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(domain.CtxSession)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

// GetUserID returns the operator's upstream user id (must be used after AuthRequired).
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(domain.CtxUserID)
}
