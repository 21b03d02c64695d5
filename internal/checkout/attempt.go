// Package checkout drives mobile-money payment attempts from initiation to
// resolution.
//
// A Workflow owns one attempt: it initiates the charge, polls the gateway on
// a fixed interval with a bounded number of checks, and dismisses itself a
// fixed delay after resolving. A Manager owns the workflows of one operator
// session and keeps at most one active attempt per booking.
package checkout

import (
	"errors"
	"time"
)

type State string

const (
	StateIdle       State = "idle"
	StateInitiating State = "initiating"
	StatePending    State = "pending"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Terminal reports whether s is success or failed.
func (s State) Terminal() bool { return s == StateSuccess || s == StateFailed }

// Active reports whether an attempt in s blocks a new trigger for the same booking.
func (s State) Active() bool { return s == StateInitiating || s == StatePending }

var transitions = map[State][]State{
	StateIdle:       {StateInitiating},
	StateInitiating: {StatePending, StateFailed},
	StatePending:    {StateSuccess, StateFailed},
	StateSuccess:    {StateIdle},
	StateFailed:     {StateIdle},
}

// CanTransition reports whether from → to is an edge of the attempt state machine.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type FailureReason string

const (
	ReasonInitiationRejected FailureReason = "initiation_rejected"
	ReasonInitiationError    FailureReason = "initiation_error"
	ReasonGatewayFailed      FailureReason = "gateway_failed"
	ReasonRetriesExhausted   FailureReason = "retries_exhausted"
	// ReasonGatewayUnreachable is a retries_exhausted where no poll ever got an answer.
	ReasonGatewayUnreachable FailureReason = "gateway_unreachable"
)

var (
	ErrAttemptInFlight = errors.New("checkout: payment already in progress for this booking")
	ErrAlreadyPaid     = errors.New("checkout: booking is already paid")
	ErrPhoneRequired   = errors.New("checkout: payee phone is required")
	ErrBookingRequired = errors.New("checkout: booking reference is required")
	ErrClosed          = errors.New("checkout: manager closed")
)

// Attempt is a snapshot of one payment attempt. Workflows hand out copies only.
type Attempt struct {
	ID            string        `json:"id"`
	BookingRef    string        `json:"booking_ref"`
	UserID        int64         `json:"user_id"`
	Phone         string        `json:"phone"`
	Amount        int64         `json:"amount"`
	CheckoutID    string        `json:"checkout_id,omitempty"`
	State         State         `json:"state"`
	RetryCount    int           `json:"retry_count"`
	PollErrors    int           `json:"poll_errors"`
	LastPollError string        `json:"last_poll_error,omitempty"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

// Request describes the booking an operator wants to charge.
type Request struct {
	BookingRef string
	UserID     int64
	Phone      string
	// Amount falls back to Config.FixedAmount when zero.
	Amount int64
	// PaymentStatus is the booking's current payment_status; "paid" refuses the trigger.
	PaymentStatus string
}

type Config struct {
	PollInterval time.Duration
	MaxPolls     int
	DismissAfter time.Duration
	FixedAmount  int64
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = 24
	}
	if c.DismissAfter <= 0 {
		c.DismissAfter = 5 * time.Second
	}
	return c
}
