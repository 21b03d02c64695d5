package payment

import (
	"context"
	"fmt"
	"log"

	"hubadmin/pkg/campushub"
)

// Gateway is the part of the marketplace API that moves money.
type Gateway interface {
	Pay(ctx context.Context, in campushub.PayRequest) (*campushub.PayResponse, error)
	TransactionStatus(ctx context.Context, checkoutID string) (string, error)
}

// CampusHubProvider charges through the marketplace's M-Pesa STK endpoints.
type CampusHubProvider struct {
	gw Gateway
}

func NewCampusHubProvider(gw Gateway) *CampusHubProvider {
	return &CampusHubProvider{gw: gw}
}

func (p *CampusHubProvider) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	in := campushub.PayRequest{
		Phone:  NormalizePhone(req.CustomerPhone),
		UserID: req.UserID,
		Amount: req.Amount,
	}
	log.Printf("[MPESA] POST /admin/pay order=%s user_id=%d amount=%d", req.OrderID, in.UserID, in.Amount)
	resp, err := p.gw.Pay(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("mpesa stk: %w", err)
	}
	if ParseStatus(resp.Status) != StatusSuccess || resp.CheckoutRequestID == "" {
		return nil, &RejectedError{Status: resp.Status, Message: resp.Message}
	}
	log.Printf("[MPESA] STK sent order=%s checkout_request_id=%s", req.OrderID, resp.CheckoutRequestID)
	return &PaymentResponse{Status: resp.Status, CheckoutRequestID: resp.CheckoutRequestID}, nil
}

func (p *CampusHubProvider) CheckStatus(ctx context.Context, checkoutID string) (Status, error) {
	raw, err := p.gw.TransactionStatus(ctx, checkoutID)
	if err != nil {
		return StatusPending, err
	}
	return ParseStatus(raw), nil
}
