// Package campushubtest runs an in-memory marketplace API for tests.
package campushubtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"hubadmin/pkg/campushub"
)

const (
	sessionCookie = "session"
	csrfCookie    = "csrf_token"
	csrfToken     = "fake-csrf"
)

// Server is a fake marketplace API. Set exported fields before the first
// request; use the setters afterwards.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	AdminEmail   string
	OTP          string
	AttemptsLeft int
	Admin        campushub.User
	Users        []campushub.User
	Activities   []campushub.Activity
	Overview     campushub.DashboardOverview
	Maintenance  campushub.Maintenance
	Properties   []campushub.Property
	Listings     []campushub.Listing
	Requests     []campushub.BookingRequest
	Bookings     []campushub.Booking
	Plans        []campushub.Plan

	// PayStatus and CheckoutID are what /admin/pay answers.
	PayStatus  string
	CheckoutID string
	// Statuses are returned by the status poll in order; the last repeats.
	Statuses []string

	sessions map[string]bool
	calls    map[string]int
	lastBody map[string]map[string]any
	csrfMiss int
}

// NewServer starts a fake with one admin (admin@campushub.test / 123456).
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		AdminEmail:   "admin@campushub.test",
		OTP:          "123456",
		AttemptsLeft: 3,
		Admin:        campushub.User{UserID: 1, Username: "Admin", Email: "admin@campushub.test", Role: "admin", IsActive: true},
		Maintenance:  campushub.Maintenance{IsActive: false},
		PayStatus:    "success",
		CheckoutID:   "CO123",
		Statuses:     []string{"pending"},
		sessions:     make(map[string]bool),
		calls:        make(map[string]int),
		lastBody:     make(map[string]map[string]any),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// Calls returns how often path was requested.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastBody returns the JSON body last sent to path.
func (s *Server) LastBody(path string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody[path]
}

// CSRFMisses counts mutating requests that arrived without the token.
func (s *Server) CSRFMisses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfMiss
}

func (s *Server) SetStatuses(statuses ...string) {
	s.mu.Lock()
	s.Statuses = statuses
	s.mu.Unlock()
}

func (s *Server) SetBookings(b []campushub.Booking) {
	s.mu.Lock()
	s.Bookings = b
	s.mu.Unlock()
}

// MarkPaid flips a booking's payment_status to paid.
func (s *Server) MarkPaid(bookingID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Bookings {
		if s.Bookings[i].BookingID == bookingID {
			s.Bookings[i].PaymentStatus = "paid"
		}
	}
}

// ExpireSessions makes every logged-in upstream session answer 401.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	s.sessions = make(map[string]bool)
	s.mu.Unlock()
}

func (s *Server) routes() http.Handler {
	r := gin.New()
	r.Use(s.record)

	r.POST("/auth/admin_login", s.login)
	r.GET("/comrade/system_maintenance", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.Maintenance)
	})

	authed := r.Group("/", s.requireSession, s.requireCSRF)
	authed.GET("/auth/profile", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"user": s.Admin})
	})
	authed.POST("/auth/logout", func(c *gin.Context) {
		if ck, err := c.Cookie(sessionCookie); err == nil {
			s.mu.Lock()
			delete(s.sessions, ck)
			s.mu.Unlock()
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	})
	authed.GET("/admin/get_dashboard_overview", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.Overview)
	})
	authed.GET("/admin/get_recent_system_activity", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"activities": s.Activities})
	})
	authed.PUT("/admin/set_system_maintenance", func(c *gin.Context) {
		var in campushub.Maintenance
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		s.Maintenance = in
		s.mu.Unlock()
		c.JSON(http.StatusOK, in)
	})
	authed.GET("/admin/get_all_users", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, campushub.UsersPage{UsersCount: len(s.Users), Users: s.Users})
	})
	authed.POST("/admin/set_status", func(c *gin.Context) {
		var in struct {
			UserID   int64          `json:"user_id"`
			IsActive campushub.Flag `json:"is_active"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Users {
			if s.Users[i].UserID == in.UserID {
				s.Users[i].IsActive = in.IsActive
				c.JSON(http.StatusOK, gin.H{"message": "updated"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	})
	authed.GET("/admin/get_properties", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"properties": s.Properties})
	})
	authed.POST("/admin/check_transaction", func(c *gin.Context) {
		var in struct {
			TransactionID string `json:"transaction_id"`
			PropertyID    int64  `json:"property_id"`
		}
		if err := c.ShouldBindJSON(&in); err != nil || in.TransactionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id is required"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Properties {
			if s.Properties[i].PropertyID == in.PropertyID {
				s.Properties[i].Verified = true
				s.Properties[i].Status = "verified"
				c.JSON(http.StatusOK, gin.H{"message": "verified"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
	})
	authed.GET("/admin/get_listings", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"listings": s.Listings})
	})
	authed.PUT("/admin/edit_listing/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		var in campushub.ListingUpdate
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Listings {
			if s.Listings[i].ListingID == id {
				s.Listings[i].AvailabilityStatus = in.AvailabilityStatus
				s.Listings[i].Price = in.Price
				c.JSON(http.StatusOK, gin.H{"message": "updated"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	})
	authed.DELETE("/admin/delete_listing/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Listings {
			if s.Listings[i].ListingID == id {
				s.Listings = append(s.Listings[:i], s.Listings[i+1:]...)
				c.JSON(http.StatusOK, gin.H{"message": "deleted"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	})
	authed.GET("/admin/get_bookings_and_requests", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": campushub.BookingsAndRequests{
			Requests: append([]campushub.BookingRequest{}, s.Requests...),
			Bookings: append([]campushub.Booking{}, s.Bookings...),
		}})
	})
	authed.POST("/admin/book_listing", func(c *gin.Context) {
		var in campushub.BookListing
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.Bookings = append(s.Bookings, campushub.Booking{
			BookingID:     int64(len(s.Bookings) + 100),
			ListingID:     in.ListingID,
			RequestID:     in.RequestID,
			UserID:        in.UserID,
			Phone:         in.Phone,
			Amount:        float64(in.Amount),
			Status:        "confirmed",
			PaymentStatus: "unpaid",
		})
		c.JSON(http.StatusOK, gin.H{"message": "booked"})
	})
	authed.POST("/admin/pay", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.PayStatus != "success" {
			c.JSON(http.StatusOK, gin.H{"status": s.PayStatus, "message": "charge rejected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "checkout_request_id": s.CheckoutID})
	})
	authed.POST("/mpesaPaymentGetways/check_transaction_status", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := "pending"
		if len(s.Statuses) > 0 {
			st = s.Statuses[0]
			if len(s.Statuses) > 1 {
				s.Statuses = s.Statuses[1:]
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": st})
	})
	authed.GET("/admin/get_plans", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"plans": s.Plans})
	})
	authed.POST("/admin/create_plan", func(c *gin.Context) {
		var p campushub.Plan
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p.ID = int64(len(s.Plans) + 1)
		s.Plans = append(s.Plans, p)
		c.JSON(http.StatusCreated, gin.H{"message": "created"})
	})
	authed.PUT("/admin/edit_plan/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		var p campushub.Plan
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Plans {
			if s.Plans[i].ID == id {
				p.ID = id
				s.Plans[i] = p
				c.JSON(http.StatusOK, gin.H{"message": "updated"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
	})
	authed.DELETE("/admin/delete_plan/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Plans {
			if s.Plans[i].ID == id {
				s.Plans = append(s.Plans[:i], s.Plans[i+1:]...)
				c.JSON(http.StatusOK, gin.H{"message": "deleted"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
	})
	return r
}

func (s *Server) record(c *gin.Context) {
	path := c.Request.URL.Path
	var body map[string]any
	if c.Request.Body != nil {
		raw, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		_ = json.Unmarshal(raw, &body)
	}
	s.mu.Lock()
	s.calls[path]++
	if body != nil {
		s.lastBody[path] = body
	}
	s.mu.Unlock()
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and otp are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Email != s.AdminEmail || in.OTP != s.OTP {
		if s.AttemptsLeft > 0 {
			s.AttemptsLeft--
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP", "attempts_left": s.AttemptsLeft})
		return
	}
	token := fmt.Sprintf("sess-%d", len(s.sessions)+1)
	s.sessions[token] = true
	c.SetCookie(sessionCookie, token, 3600, "/", "", false, true)
	c.SetCookie(csrfCookie, csrfToken, 3600, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"user": s.Admin})
}

func (s *Server) requireSession(c *gin.Context) {
	ck, err := c.Cookie(sessionCookie)
	s.mu.Lock()
	ok := err == nil && s.sessions[ck]
	s.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) requireCSRF(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead:
		c.Next()
		return
	}
	if c.GetHeader("X-CSRF-Token") != csrfToken {
		s.mu.Lock()
		s.csrfMiss++
		s.mu.Unlock()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token missing"})
		return
	}
	c.Next()
}
