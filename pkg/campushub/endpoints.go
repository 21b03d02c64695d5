package campushub

import (
	"context"
	"fmt"
	"net/http"
)

// Profile checks the current upstream session.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, ErrUnauthorized
	}
	return out.User, nil
}

// AdminLogin exchanges an email + one-time password for an upstream session.
// A rejected OTP comes back as *APIError with AttemptsLeft set.
func (c *Client) AdminLogin(ctx context.Context, email, otp string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	body := map[string]string{"email": email, "otp": otp}
	if err := c.do(ctx, http.MethodPost, "/auth/admin_login", body, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "login response carried no user"}
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) DashboardOverview(ctx context.Context) (*DashboardOverview, error) {
	var out DashboardOverview
	if err := c.do(ctx, http.MethodGet, "/admin/get_dashboard_overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Activities(ctx context.Context) ([]Activity, error) {
	var out struct {
		Activities []Activity `json:"activities"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/get_recent_system_activity", nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

// RecentActivities returns at most limit activities, newest first as served.
func (c *Client) RecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	list, err := c.Activities(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (c *Client) Maintenance(ctx context.Context) (*Maintenance, error) {
	var out Maintenance
	if err := c.do(ctx, http.MethodGet, "/comrade/system_maintenance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetMaintenance(ctx context.Context, active bool, message string) (*Maintenance, error) {
	in := Maintenance{IsActive: Flag(active), Message: message}
	var out Maintenance
	if err := c.do(ctx, http.MethodPut, "/admin/set_system_maintenance", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Users(ctx context.Context) (*UsersPage, error) {
	var out UsersPage
	if err := c.do(ctx, http.MethodGet, "/admin/get_all_users", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetUserStatus(ctx context.Context, userID int64, active bool) error {
	body := struct {
		UserID   int64 `json:"user_id"`
		IsActive Flag  `json:"is_active"`
	}{userID, Flag(active)}
	return c.do(ctx, http.MethodPost, "/admin/set_status", body, nil)
}

func (c *Client) Properties(ctx context.Context) ([]Property, error) {
	var out struct {
		Properties []Property `json:"properties"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/get_properties", nil, &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

// VerifyProperty asks the upstream to check the listing-fee transaction of a property.
func (c *Client) VerifyProperty(ctx context.Context, propertyID int64, transactionID string) error {
	body := struct {
		TransactionID string `json:"transaction_id"`
		PropertyID    int64  `json:"property_id"`
	}{transactionID, propertyID}
	return c.do(ctx, http.MethodPost, "/admin/check_transaction", body, nil)
}

func (c *Client) Listings(ctx context.Context) ([]Listing, error) {
	var out struct {
		Listings []Listing `json:"listings"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/get_listings", nil, &out); err != nil {
		return nil, err
	}
	return out.Listings, nil
}

func (c *Client) EditListing(ctx context.Context, id int64, upd ListingUpdate) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/edit_listing/%d", id), upd, nil)
}

func (c *Client) DeleteListing(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/delete_listing/%d", id), nil, nil)
}

func (c *Client) BookingsAndRequests(ctx context.Context) (*BookingsAndRequests, error) {
	var out struct {
		Data BookingsAndRequests `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/get_bookings_and_requests", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) BookListing(ctx context.Context, in BookListing) error {
	return c.do(ctx, http.MethodPost, "/admin/book_listing", in, nil)
}

// Pay triggers a mobile-money charge. The phone must already be normalized.
func (c *Client) Pay(ctx context.Context, in PayRequest) (*PayResponse, error) {
	var out PayResponse
	if err := c.do(ctx, http.MethodPost, "/admin/pay", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionStatus asks the gateway for the state of a checkout.
func (c *Client) TransactionStatus(ctx context.Context, checkoutID string) (string, error) {
	var out TransactionStatus
	body := map[string]string{"checkout_id": checkoutID}
	if err := c.do(ctx, http.MethodPost, "/mpesaPaymentGetways/check_transaction_status", body, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) Plans(ctx context.Context) ([]Plan, error) {
	var out struct {
		Plans []Plan `json:"plans"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/get_plans", nil, &out); err != nil {
		return nil, err
	}
	return out.Plans, nil
}

func (c *Client) CreatePlan(ctx context.Context, p Plan) error {
	return c.do(ctx, http.MethodPost, "/admin/create_plan", p, nil)
}

func (c *Client) EditPlan(ctx context.Context, id int64, p Plan) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/edit_plan/%d", id), p, nil)
}

func (c *Client) DeletePlan(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/delete_plan/%d", id), nil, nil)
}
