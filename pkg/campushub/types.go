package campushub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flag is the marketplace's 0/1 boolean. It decodes from numbers, booleans
// and numeric strings and always encodes as 0 or 1.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	switch strings.ToLower(s) {
	case "", "null", "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("campushub: invalid flag %q", s)
		}
		*f = n != 0
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the handful of formats the marketplace emits.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type SecurityCheck struct {
	ID         int64  `json:"id"`
	CheckType  string `json:"check_type"`
	IDNumber   string `json:"id_number"`
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by,omitempty"`
}

type User struct {
	UserID         int64           `json:"user_id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Role           string          `json:"role"`
	IsActive       Flag            `json:"is_active"`
	CreatedAt      string          `json:"created_at"`
	ProfileImage   string          `json:"profile_image,omitempty"`
	SecurityChecks []SecurityCheck `json:"security_checks,omitempty"`
}

type UsersPage struct {
	UsersCount int    `json:"users_count"`
	Users      []User `json:"users"`
}

type Activity struct {
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
}

// DashboardOverview keeps the upstream's free-form metric maps as-is.
type DashboardOverview struct {
	Overview               map[string]any `json:"overview"`
	SystemHealth           map[string]any `json:"system_health"`
	AnalyticsPercentChange map[string]any `json:"analytics_percent_change"`
}

type Maintenance struct {
	IsActive Flag   `json:"is_active"`
	Message  string `json:"message,omitempty"`
}

type Property struct {
	PropertyID    int64   `json:"property_id"`
	Name          string  `json:"name"`
	Location      string  `json:"location"`
	LandlordID    int64   `json:"landlord_id"`
	LandlordName  string  `json:"landlord_name,omitempty"`
	Rooms         int     `json:"rooms,omitempty"`
	Verified      Flag    `json:"verified"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

type Listing struct {
	ListingID          int64   `json:"listing_id"`
	PropertyID         int64   `json:"property_id"`
	PropertyName       string  `json:"property_name,omitempty"`
	Title              string  `json:"title"`
	RoomType           string  `json:"room_type,omitempty"`
	Price              float64 `json:"price"`
	AvailabilityStatus string  `json:"availability_status"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

type ListingUpdate struct {
	AvailabilityStatus string  `json:"availability_status"`
	Price              float64 `json:"price"`
}

// Booking is a confirmed reservation; PaymentStatus is "paid" once settled.
type Booking struct {
	BookingID     int64   `json:"booking_id"`
	ListingID     int64   `json:"listing_id"`
	RequestID     int64   `json:"request_id,omitempty"`
	UserID        int64   `json:"user_id"`
	TenantName    string  `json:"tenant_name,omitempty"`
	Phone         string  `json:"phone"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// IsPaid reports whether the upstream already considers the booking settled.
func (b Booking) IsPaid() bool { return strings.EqualFold(b.PaymentStatus, "paid") }

// BookingRequest is a comrade's request for a listing, not yet booked.
type BookingRequest struct {
	RequestID int64  `json:"request_id"`
	ListingID int64  `json:"listing_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

type BookingsAndRequests struct {
	Requests []BookingRequest `json:"requests"`
	Bookings []Booking        `json:"bookings"`
}

type BookListing struct {
	ListingID int64  `json:"listing_id"`
	RequestID int64  `json:"request_id"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amount"`
	UserID    int64  `json:"user_id"`
}

type Plan struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Period      string   `json:"period"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	NotIncluded []string `json:"not_included"`
	Popular     Flag     `json:"popular"`
}

// UnmarshalJSON accepts both not_included and the older notIncluded key.
func (p *Plan) UnmarshalJSON(b []byte) error {
	type plain Plan
	var aux struct {
		plain
		LegacyNotIncluded []string `json:"notIncluded"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Plan(aux.plain)
	if len(p.NotIncluded) == 0 && len(aux.LegacyNotIncluded) > 0 {
		p.NotIncluded = aux.LegacyNotIncluded
	}
	return nil
}

type PayRequest struct {
	Phone  string `json:"phone"`
	UserID int64  `json:"user_id"`
	Amount int64  `json:"amount"`
}

type PayResponse struct {
	Status            string `json:"status"`
	CheckoutRequestID string `json:"checkout_request_id"`
	Message           string `json:"message,omitempty"`
}

type TransactionStatus struct {
	Status string `json:"status"`
}
