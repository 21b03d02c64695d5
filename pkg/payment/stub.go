package payment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StubProvider settles every checkout after SettleAfter pending polls.
// Used for development against an upstream without a live gateway.
type StubProvider struct {
	SettleAfter int

	mu    sync.Mutex
	polls map[string]int
}

func NewStubProvider(settleAfter int) *StubProvider {
	return &StubProvider{SettleAfter: settleAfter, polls: make(map[string]int)}
}

func (s *StubProvider) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if NormalizePhone(req.CustomerPhone) == "" {
		return nil, &RejectedError{Status: "failed", Message: "phone required"}
	}
	ref := fmt.Sprintf("stub_%d_%d", time.Now().UnixNano(), req.UserID)
	return &PaymentResponse{Status: string(StatusSuccess), CheckoutRequestID: ref}, nil
}

func (s *StubProvider) CheckStatus(ctx context.Context, checkoutID string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polls == nil {
		s.polls = make(map[string]int)
	}
	s.polls[checkoutID]++
	if s.polls[checkoutID] > s.SettleAfter {
		delete(s.polls, checkoutID)
		return StatusSuccess, nil
	}
	return StatusPending, nil
}
