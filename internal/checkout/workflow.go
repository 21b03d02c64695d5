package checkout

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hubadmin/pkg/payment"
)

// Refresher reloads whatever view depends on a booking's payment status.
type Refresher interface {
	Reload(ctx context.Context) error
}

// Observer receives a copy of the attempt after every change. It is called
// with the workflow lock held and must not call back into the workflow or
// its manager.
type Observer func(Attempt)

// Workflow runs a single payment attempt.
type Workflow struct {
	cfg       Config
	provider  payment.Provider
	refresher Refresher
	observe   Observer
	onDismiss func(*Workflow)
	ref       string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	attempt    Attempt
	answers    int
	cancelPoll context.CancelFunc
	dismiss    *time.Timer
	closed     bool
}

func newWorkflow(parent context.Context, cfg Config, provider payment.Provider, req Request) *Workflow {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	return &Workflow{
		cfg:      cfg,
		provider: provider,
		ref:      req.BookingRef,
		ctx:      ctx,
		cancel:   cancel,
		attempt: Attempt{
			ID:         uuid.NewString(),
			BookingRef: req.BookingRef,
			UserID:     req.UserID,
			Phone:      payment.NormalizePhone(req.Phone),
			Amount:     req.Amount,
			State:      StateIdle,
			StartedAt:  now,
			UpdatedAt:  now,
		},
	}
}

// Snapshot returns a copy of the current attempt.
func (w *Workflow) Snapshot() Attempt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Attempt {
	a := w.attempt
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		a.ResolvedAt = &t
	}
	return a
}

// start moves the attempt to initiating and returns that snapshot.
func (w *Workflow) start() Attempt {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.transitionLocked(StateInitiating) {
		w.wg.Add(1)
		go w.initiate()
	}
	return w.snapshotLocked()
}

func (w *Workflow) initiate() {
	defer w.wg.Done()

	a := w.Snapshot()
	resp, err := w.provider.InitiatePayment(w.ctx, payment.PaymentRequest{
		UserID:        a.UserID,
		Amount:        a.Amount,
		CustomerPhone: a.Phone,
		OrderID:       a.BookingRef,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.attempt.State != StateInitiating {
		return
	}
	if err != nil {
		reason := ReasonInitiationError
		if payment.IsRejected(err) {
			reason = ReasonInitiationRejected
		}
		log.Printf("[PAYMENT] initiation failed booking=%s reason=%s: %v", w.ref, reason, err)
		w.finishLocked(StateFailed, reason)
		return
	}

	w.attempt.CheckoutID = resp.CheckoutRequestID
	if !w.transitionLocked(StatePending) {
		return
	}
	log.Printf("[PAYMENT] pending booking=%s checkout=%s", w.ref, resp.CheckoutRequestID)

	pollCtx, cancel := context.WithCancel(w.ctx)
	w.cancelPoll = cancel
	w.wg.Add(1)
	go w.pollLoop(pollCtx)
}

func (w *Workflow) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick spends one unit of the poll budget. A tick that finds the budget
// already spent fails the attempt without issuing a request.
func (w *Workflow) tick(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.attempt.State != StatePending {
		return
	}
	if w.attempt.RetryCount >= w.cfg.MaxPolls {
		reason := ReasonRetriesExhausted
		if w.answers == 0 && w.attempt.PollErrors > 0 {
			reason = ReasonGatewayUnreachable
		}
		log.Printf("[PAYMENT] giving up booking=%s checkout=%s polls=%d errors=%d",
			w.ref, w.attempt.CheckoutID, w.attempt.RetryCount, w.attempt.PollErrors)
		w.finishLocked(StateFailed, reason)
		return
	}

	w.attempt.RetryCount++
	w.touchLocked()
	w.notifyLocked()

	// Polls are not serialized: a slow status check may still be running
	// when the next tick fires.
	w.wg.Add(1)
	go w.poll(ctx, w.attempt.CheckoutID)
}

func (w *Workflow) poll(ctx context.Context, checkoutID string) {
	defer w.wg.Done()

	status, err := w.provider.CheckStatus(ctx, checkoutID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.attempt.State != StatePending {
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// A transport failure is not a verdict; the attempt stays pending.
		w.attempt.PollErrors++
		w.attempt.LastPollError = err.Error()
		w.touchLocked()
		log.Printf("[PAYMENT] status check failed booking=%s checkout=%s: %v", w.ref, checkoutID, err)
		w.notifyLocked()
		return
	}

	w.answers++
	switch status {
	case payment.StatusSuccess:
		log.Printf("[PAYMENT] success booking=%s checkout=%s", w.ref, checkoutID)
		w.finishLocked(StateSuccess, "")
	case payment.StatusFailed:
		log.Printf("[PAYMENT] failed booking=%s checkout=%s", w.ref, checkoutID)
		w.finishLocked(StateFailed, ReasonGatewayFailed)
	}
}

// finishLocked moves the attempt to a terminal state. Only the first call
// has any effect; later verdicts are ignored.
func (w *Workflow) finishLocked(state State, reason FailureReason) {
	if !w.transitionLocked(state) {
		return
	}
	w.attempt.FailureReason = reason
	now := w.attempt.UpdatedAt
	w.attempt.ResolvedAt = &now
	if w.cancelPoll != nil {
		w.cancelPoll()
	}
	w.notifyLocked()

	if state == StateSuccess && w.refresher != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.refresher.Reload(w.ctx); err != nil {
				log.Printf("[PAYMENT] booking reload after payment failed booking=%s: %v", w.ref, err)
			}
		}()
	}
	w.dismiss = time.AfterFunc(w.cfg.DismissAfter, w.autoDismiss)
}

func (w *Workflow) autoDismiss() {
	w.mu.Lock()
	if w.closed || !w.attempt.State.Terminal() {
		w.mu.Unlock()
		return
	}
	w.transitionLocked(StateIdle)
	w.mu.Unlock()

	if w.onDismiss != nil {
		w.onDismiss(w)
	}
}

// transitionLocked applies from → to if the state machine allows it,
// stamps the attempt, and notifies the observer.
func (w *Workflow) transitionLocked(to State) bool {
	from := w.attempt.State
	if !CanTransition(from, to) {
		return false
	}
	w.attempt.State = to
	w.touchLocked()
	if !to.Terminal() {
		w.notifyLocked()
	}
	return true
}

func (w *Workflow) touchLocked() { w.attempt.UpdatedAt = time.Now() }

func (w *Workflow) notifyLocked() {
	if w.observe != nil {
		w.observe(w.snapshotLocked())
	}
}

// Close stops polling, cancels the display timer and waits for every
// in-flight request. It is safe to call more than once.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.dismiss != nil {
		w.dismiss.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}
