package checkout

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"hubadmin/pkg/payment"
)

type Option func(*Manager)

// WithRefresher reloads bookings after every successful payment.
func WithRefresher(r Refresher) Option {
	return func(m *Manager) { m.refresher = r }
}

// WithObserver registers a hook for every attempt change. See Observer.
func WithObserver(fn Observer) Option {
	return func(m *Manager) { m.observe = fn }
}

// Manager holds the payment attempts of one operator session, at most one
// per booking.
type Manager struct {
	cfg       Config
	provider  payment.Provider
	refresher Refresher
	observe   Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	flows  map[string]*Workflow
	closed bool
}

func NewManager(cfg Config, provider payment.Provider, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg.withDefaults(),
		provider: provider,
		ctx:      ctx,
		cancel:   cancel,
		flows:    make(map[string]*Workflow),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Trigger starts a payment attempt for a booking. While an attempt for the
// same booking is initiating or pending it returns that attempt together
// with ErrAttemptInFlight and makes no network call. A resolved attempt
// still on display is replaced.
func (m *Manager) Trigger(req Request) (Attempt, error) {
	req.BookingRef = strings.TrimSpace(req.BookingRef)
	if req.BookingRef == "" {
		return Attempt{}, ErrBookingRequired
	}
	if strings.EqualFold(strings.TrimSpace(req.PaymentStatus), "paid") {
		return Attempt{}, ErrAlreadyPaid
	}
	if payment.NormalizePhone(req.Phone) == "" {
		return Attempt{}, ErrPhoneRequired
	}
	if req.Amount <= 0 {
		req.Amount = m.cfg.FixedAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Attempt{}, ErrClosed
	}
	if prev, ok := m.flows[req.BookingRef]; ok {
		snap := prev.Snapshot()
		if snap.State.Active() {
			return snap, ErrAttemptInFlight
		}
		delete(m.flows, req.BookingRef)
		m.closeInBackgroundLocked(prev)
	}

	w := newWorkflow(m.ctx, m.cfg, m.provider, req)
	w.refresher = m.refresher
	w.observe = m.observe
	w.onDismiss = m.dismissed
	m.flows[req.BookingRef] = w

	log.Printf("[PAYMENT] trigger booking=%s user_id=%d amount=%d", req.BookingRef, req.UserID, req.Amount)
	return w.start(), nil
}

// Get returns the attempt on display for a booking.
func (m *Manager) Get(bookingRef string) (Attempt, bool) {
	m.mu.Lock()
	w, ok := m.flows[bookingRef]
	m.mu.Unlock()
	if !ok {
		return Attempt{}, false
	}
	return w.Snapshot(), true
}

// List returns every attempt on display, oldest first.
func (m *Manager) List() []Attempt {
	m.mu.Lock()
	flows := make([]*Workflow, 0, len(m.flows))
	for _, w := range m.flows {
		flows = append(flows, w)
	}
	m.mu.Unlock()

	out := make([]Attempt, 0, len(flows))
	for _, w := range flows {
		out = append(out, w.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Abandon stops tracking a booking's attempt. The charge itself may still
// complete on the gateway side.
func (m *Manager) Abandon(bookingRef string) bool {
	m.mu.Lock()
	w, ok := m.flows[bookingRef]
	if ok {
		delete(m.flows, bookingRef)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	log.Printf("[PAYMENT] abandoned booking=%s", bookingRef)
	w.Close()
	return true
}

// Close tears down every workflow and waits for their goroutines.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	flows := make([]*Workflow, 0, len(m.flows))
	for ref, w := range m.flows {
		flows = append(flows, w)
		delete(m.flows, ref)
	}
	m.mu.Unlock()

	m.cancel()
	for _, w := range flows {
		w.Close()
	}
	m.wg.Wait()
}

func (m *Manager) dismissed(w *Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if cur, ok := m.flows[w.ref]; ok && cur == w {
		delete(m.flows, w.ref)
	}
	m.closeInBackgroundLocked(w)
}

// closeInBackgroundLocked closes w without blocking the caller. The dismiss
// timer calls in here, and Close waits for that very callback's workflow.
func (m *Manager) closeInBackgroundLocked(w *Workflow) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		w.Close()
	}()
}
