package models

import (
	"time"
)

// PaymentAttempt is the history row of one checkout attempt, upserted on
// every state change.
type PaymentAttempt struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	AttemptID     string     `gorm:"size:36;not null;uniqueIndex" json:"attempt_id"`
	SessionID     string     `gorm:"size:36;index" json:"-"`
	OperatorID    int64      `gorm:"index" json:"operator_id"`
	BookingRef    string     `gorm:"size:64;not null;index" json:"booking_ref"`
	UserID        int64      `gorm:"index" json:"user_id"`
	CheckoutID    string     `gorm:"size:128;index" json:"checkout_id"`
	Phone         string     `gorm:"size:20" json:"phone"`
	Amount        int64      `gorm:"not null" json:"amount"`
	State         string     `gorm:"size:20;not null;index" json:"state"` // initiating, pending, success, failed, idle
	RetryCount    int        `json:"retry_count"`
	PollErrors    int        `json:"poll_errors"`
	LastPollError string     `gorm:"size:512" json:"last_poll_error,omitempty"`
	FailureReason string     `gorm:"size:40" json:"failure_reason,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
