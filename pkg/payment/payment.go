package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status is the gateway's view of a checkout.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ParseStatus maps a raw gateway status. Anything that is not an explicit
// success or failure means the checkout is still pending.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(StatusSuccess):
		return StatusSuccess
	case string(StatusFailed):
		return StatusFailed
	default:
		return StatusPending
	}
}

type PaymentRequest struct {
	UserID int64
	Amount int64
	// CustomerPhone is normalized by the provider before it is sent.
	CustomerPhone string
	// OrderID identifies the booking being paid for; used for logging only.
	OrderID string
}

type PaymentResponse struct {
	Status            string
	CheckoutRequestID string
}

// RejectedError means the gateway answered the initiation but did not accept it.
type RejectedError struct {
	Status  string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment rejected: status=%q: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("payment rejected: status=%q", e.Status)
}

// IsRejected reports whether err is a gateway rejection rather than a transport failure.
func IsRejected(err error) bool {
	var r *RejectedError
	return errors.As(err, &r)
}

type Provider interface {
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	CheckStatus(ctx context.Context, checkoutID string) (Status, error)
}

// NormalizePhone rewrites a local 0XXXXXXXXX number to the 254 international form.
// Numbers that do not start with 0 pass through unchanged.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "0") {
		return "254" + phone[1:]
	}
	return phone
}
