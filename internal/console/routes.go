// Package console maps browser paths to console pages.
package console

import (
	"path"
	"strings"

	"hubadmin/internal/domain"
)

const (
	HomePath  = "/"
	LoginPath = "/login"
)

// pages lists every path the console serves. Aliases share a page.
var pages = map[string]string{
	"/":              domain.PageDashboard,
	"/reports":       domain.PageDashboard,
	"/users":         domain.PageUsers,
	"/properties":    domain.PageProperties,
	"/listings":      domain.PageListings,
	"/products":      domain.PageListings,
	"/bookings":      domain.PageBookings,
	"/payments":      domain.PagePayments,
	"/orders":        domain.PagePayments,
	"/verifications": domain.PageVerifications,
	"/audit-logs":    domain.PageAuditLogs,
	"/settings":      domain.PageSettings,
	"/recent":        domain.PageRecent,
	"/plans":         domain.PagePlans,
	"/login":         domain.PageLogin,
}

// Resolution is either a page to render or a redirect.
type Resolution struct {
	Page     string `json:"page,omitempty"`
	Path     string `json:"path"`
	Redirect string `json:"redirect,omitempty"`
}

// Resolve decides what the console shows at p. Unknown paths go home, every
// page but the login page needs a session, and a signed-in operator is sent
// away from the login page.
func Resolve(p string, authenticated bool) Resolution {
	clean := path.Clean("/" + strings.TrimSpace(p))
	page, ok := pages[clean]
	switch {
	case !ok:
		return Resolution{Path: clean, Redirect: HomePath}
	case page == domain.PageLogin && authenticated:
		return Resolution{Path: clean, Redirect: HomePath}
	case page != domain.PageLogin && !authenticated:
		return Resolution{Path: clean, Redirect: LoginPath}
	}
	return Resolution{Page: page, Path: clean}
}

// Paths returns every servable path.
func Paths() []string {
	out := make([]string, 0, len(pages))
	for p := range pages {
		out = append(out, p)
	}
	return out
}
