package middleware

import (
	"log"
	"net/http"

	"github.com/justinas/nosurf"
)

// CSRF guards every unsafe request to h with a double-submit token: the
// csrf_token cookie must be echoed in the X-CSRF-Token header. The cookie
// is readable by scripts so the console front end can echo it.
func CSRF(h http.Handler, secure bool) http.Handler {
	n := nosurf.New(h)
	// The origin check compares against the scheme the console is served on.
	n.SetIsTLSFunc(func(r *http.Request) bool { return secure || r.TLS != nil })
	n.SetBaseCookie(http.Cookie{
		Name:     nosurf.CookieName,
		Path:     "/",
		MaxAge:   nosurf.MaxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	n.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[AUTH] csrf rejected %s %s: %v", r.Method, r.URL.Path, nosurf.Reason(r))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token missing or invalid"}`))
	}))
	return n
}

// CSRFToken returns the token to hand to the front end for r.
func CSRFToken(r *http.Request) string { return nosurf.Token(r) }
