package handler

import (
	"net/http"

	"hubadmin/config"
	"hubadmin/internal/console"
	"hubadmin/internal/middleware"

	"github.com/gin-gonic/gin"
)

type PageHandler struct {
	env *Env
	jwt *config.JWTConfig
}

func NewPageHandler(env *Env, jwt *config.JWTConfig) *PageHandler {
	return &PageHandler{env: env, jwt: jwt}
}

// Serve answers a console path with its page descriptor, or redirects.
// Clients asking for JSON get the redirect in the body instead of a 302.
func (h *PageHandler) Serve(c *gin.Context) {
	_, _, authenticated := middleware.LookupSession(h.jwt, h.env.Store, c)
	res := console.Resolve(c.Request.URL.Path, authenticated)
	if res.Redirect == "" {
		c.JSON(http.StatusOK, res)
		return
	}
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusOK, res)
		return
	}
	c.Redirect(http.StatusFound, res.Redirect)
}
