package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubadmin/pkg/payment"
)

type fakeProvider struct {
	mu        sync.Mutex
	initResp  *payment.PaymentResponse
	initErr   error
	initGate  chan struct{}
	initCalls int
	initReq   payment.PaymentRequest

	// statuses are returned in order; the last one repeats.
	statuses  []payment.Status
	statusErr error
	checks    int
	checkIDs  []string
}

func (f *fakeProvider) InitiatePayment(ctx context.Context, req payment.PaymentRequest) (*payment.PaymentResponse, error) {
	f.mu.Lock()
	f.initCalls++
	f.initReq = req
	gate := f.initGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initResp, f.initErr
}

func (f *fakeProvider) CheckStatus(ctx context.Context, checkoutID string) (payment.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	f.checkIDs = append(f.checkIDs, checkoutID)
	if f.statusErr != nil {
		return payment.StatusPending, f.statusErr
	}
	if len(f.statuses) == 0 {
		return payment.StatusPending, nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeProvider) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

func (f *fakeProvider) initCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls
}

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Reload(ctx context.Context) error {
	r.n.Add(1)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.states); n == 0 || r.states[n-1] != a.State {
		r.states = append(r.states, a.State)
	}
}

func (r *recorder) sequence() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func fastConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		MaxPolls:     24,
		DismissAfter: 60 * time.Millisecond,
		FixedAmount:  1000,
	}
}

func waitState(t *testing.T, m *Manager, ref string, want State) Attempt {
	t.Helper()
	var got Attempt
	require.Eventually(t, func() bool {
		a, ok := m.Get(ref)
		got = a
		return ok && a.State == want
	}, 2*time.Second, 2*time.Millisecond, "attempt for %s never reached %s", ref, want)
	return got
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateInitiating))
	assert.True(t, CanTransition(StateInitiating, StatePending))
	assert.True(t, CanTransition(StateInitiating, StateFailed))
	assert.True(t, CanTransition(StatePending, StateSuccess))
	assert.True(t, CanTransition(StatePending, StateFailed))
	assert.True(t, CanTransition(StateSuccess, StateIdle))
	assert.True(t, CanTransition(StateFailed, StateIdle))

	assert.False(t, CanTransition(StateSuccess, StateFailed))
	assert.False(t, CanTransition(StateFailed, StateSuccess))
	assert.False(t, CanTransition(StateIdle, StatePending))
	assert.False(t, CanTransition(StateInitiating, StateSuccess))
	assert.False(t, CanTransition(StatePending, StatePending))
}

func TestTriggerSucceedsAfterPendingPolls(t *testing.T) {
	prov := &fakeProvider{
		initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO123"},
		statuses: []payment.Status{payment.StatusPending, payment.StatusPending, payment.StatusPending, payment.StatusSuccess},
	}
	ref := &countingRefresher{}
	rec := &recorder{}
	m := NewManager(fastConfig(), prov, WithRefresher(ref), WithObserver(rec.observe))
	defer m.Close()

	first, err := m.Trigger(Request{BookingRef: "B1", UserID: 42, Phone: "0712345678"})
	require.NoError(t, err)
	assert.Equal(t, StateInitiating, first.State)
	assert.Equal(t, "254712345678", first.Phone)
	assert.Equal(t, int64(1000), first.Amount)

	done := waitState(t, m, "B1", StateSuccess)
	assert.Equal(t, "CO123", done.CheckoutID)
	assert.Equal(t, 4, done.RetryCount)
	assert.Empty(t, done.FailureReason)
	assert.NotNil(t, done.ResolvedAt)

	assert.Equal(t, 1, prov.initCount())
	assert.Equal(t, int64(42), prov.initReq.UserID)
	assert.Equal(t, int64(1000), prov.initReq.Amount)
	assert.Eventually(t, func() bool { return ref.n.Load() == 1 }, time.Second, 2*time.Millisecond)

	// cleared after the display delay
	require.Eventually(t, func() bool {
		_, ok := m.Get("B1")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	// no polling once resolved
	checks := prov.checkCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, checks, prov.checkCount())
	assert.Equal(t, 4, checks)

	assert.Equal(t, []State{StateInitiating, StatePending, StateSuccess, StateIdle}, rec.sequence())
}

func TestRetryBudgetForcesFailure(t *testing.T) {
	prov := &fakeProvider{initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO9"}}
	cfg := fastConfig()
	cfg.MaxPolls = 3
	cfg.DismissAfter = time.Hour
	m := NewManager(cfg, prov)
	defer m.Close()

	_, err := m.Trigger(Request{BookingRef: "B2", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)

	a := waitState(t, m, "B2", StateFailed)
	assert.Equal(t, ReasonRetriesExhausted, a.FailureReason)
	assert.Equal(t, 3, a.RetryCount)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 3, prov.checkCount())
}

func TestDefaultBudgetIsTwentyFour(t *testing.T) {
	prov := &fakeProvider{initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO24"}}
	cfg := fastConfig()
	cfg.MaxPolls = 0
	cfg.PollInterval = 2 * time.Millisecond
	cfg.DismissAfter = time.Hour
	m := NewManager(cfg, prov)
	defer m.Close()

	_, err := m.Trigger(Request{BookingRef: "B24", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)

	a := waitState(t, m, "B24", StateFailed)
	assert.Equal(t, 24, a.RetryCount)
	assert.Equal(t, ReasonRetriesExhausted, a.FailureReason)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 24, prov.checkCount())
}

func TestTransportErrorsKeepAttemptPending(t *testing.T) {
	prov := &fakeProvider{
		initResp:  &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO7"},
		statusErr: errors.New("connection reset"),
	}
	cfg := fastConfig()
	cfg.MaxPolls = 4
	cfg.DismissAfter = time.Hour
	m := NewManager(cfg, prov)
	defer m.Close()

	_, err := m.Trigger(Request{BookingRef: "B3", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a, _ := m.Get("B3")
		return a.State == StatePending && a.PollErrors >= 1
	}, 2*time.Second, 2*time.Millisecond)

	a := waitState(t, m, "B3", StateFailed)
	assert.Equal(t, ReasonGatewayUnreachable, a.FailureReason)
	assert.Equal(t, 4, a.PollErrors)
	assert.Equal(t, "connection reset", a.LastPollError)
}

func TestGatewayFailureResolvesImmediately(t *testing.T) {
	prov := &fakeProvider{
		initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO5"},
		statuses: []payment.Status{payment.StatusPending, payment.StatusFailed, payment.StatusSuccess},
	}
	ref := &countingRefresher{}
	cfg := fastConfig()
	cfg.DismissAfter = time.Hour
	m := NewManager(cfg, prov, WithRefresher(ref))
	defer m.Close()

	_, err := m.Trigger(Request{BookingRef: "B4", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)

	a := waitState(t, m, "B4", StateFailed)
	assert.Equal(t, ReasonGatewayFailed, a.FailureReason)
	assert.Equal(t, 2, a.RetryCount)

	// terminal state absorbs any later verdict
	time.Sleep(40 * time.Millisecond)
	got, _ := m.Get("B4")
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, int32(0), ref.n.Load())
}

func TestInitiationFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.DismissAfter = time.Hour

	rejected := &fakeProvider{initErr: &payment.RejectedError{Status: "error", Message: "invalid phone"}}
	m := NewManager(cfg, rejected)
	defer m.Close()
	_, err := m.Trigger(Request{BookingRef: "R1", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)
	a := waitState(t, m, "R1", StateFailed)
	assert.Equal(t, ReasonInitiationRejected, a.FailureReason)
	assert.Empty(t, a.CheckoutID)

	broken := &fakeProvider{initErr: errors.New("dial tcp: i/o timeout")}
	m2 := NewManager(cfg, broken)
	defer m2.Close()
	_, err = m2.Trigger(Request{BookingRef: "R2", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)
	a = waitState(t, m2, "R2", StateFailed)
	assert.Equal(t, ReasonInitiationError, a.FailureReason)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rejected.checkCount())
	assert.Zero(t, broken.checkCount())
}

func TestTriggerWhileInFlight(t *testing.T) {
	gate := make(chan struct{})
	prov := &fakeProvider{
		initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO1"},
		initGate: gate,
	}
	m := NewManager(fastConfig(), prov)
	defer m.Close()

	first, err := m.Trigger(Request{BookingRef: "B5", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)

	again, err := m.Trigger(Request{BookingRef: "B5", UserID: 1, Phone: "0700000000"})
	assert.ErrorIs(t, err, ErrAttemptInFlight)
	assert.Equal(t, first.ID, again.ID)

	close(gate)
	waitState(t, m, "B5", StatePending)

	_, err = m.Trigger(Request{BookingRef: "B5", UserID: 1, Phone: "0700000000"})
	assert.ErrorIs(t, err, ErrAttemptInFlight)
	assert.Equal(t, 1, prov.initCount())

	// a different booking is independent
	_, err = m.Trigger(Request{BookingRef: "B6", UserID: 2, Phone: "0711111111"})
	assert.NoError(t, err)
}

func TestTriggerReplacesResolvedAttempt(t *testing.T) {
	prov := &fakeProvider{initErr: &payment.RejectedError{Status: "error"}}
	cfg := fastConfig()
	cfg.DismissAfter = time.Hour
	m := NewManager(cfg, prov)
	defer m.Close()

	first, err := m.Trigger(Request{BookingRef: "B7", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)
	waitState(t, m, "B7", StateFailed)

	second, err := m.Trigger(Request{BookingRef: "B7", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Eventually(t, func() bool { return prov.initCount() == 2 }, time.Second, 2*time.Millisecond)
}

func TestTriggerValidation(t *testing.T) {
	prov := &fakeProvider{}
	m := NewManager(fastConfig(), prov)
	defer m.Close()

	_, err := m.Trigger(Request{BookingRef: "B8", Phone: "0700000000", PaymentStatus: "paid"})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, err = m.Trigger(Request{BookingRef: "B8", Phone: "  "})
	assert.ErrorIs(t, err, ErrPhoneRequired)
	_, err = m.Trigger(Request{Phone: "0700000000"})
	assert.ErrorIs(t, err, ErrBookingRequired)

	assert.Zero(t, prov.initCount())
	assert.Empty(t, m.List())
}

func TestAbandonStopsPolling(t *testing.T) {
	prov := &fakeProvider{initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO2"}}
	m := NewManager(fastConfig(), prov)
	defer m.Close()

	_, err := m.Trigger(Request{BookingRef: "B9", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return prov.checkCount() >= 2 }, 2*time.Second, 2*time.Millisecond)

	assert.True(t, m.Abandon("B9"))
	assert.False(t, m.Abandon("B9"))
	checks := prov.checkCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, checks, prov.checkCount())
	_, ok := m.Get("B9")
	assert.False(t, ok)
}

func TestManagerClose(t *testing.T) {
	prov := &fakeProvider{initResp: &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO3"}}
	m := NewManager(fastConfig(), prov)

	for _, ref := range []string{"C1", "C2"} {
		_, err := m.Trigger(Request{BookingRef: ref, UserID: 1, Phone: "0700000000"})
		require.NoError(t, err)
	}
	assert.Len(t, m.List(), 2)
	require.Eventually(t, func() bool { return prov.checkCount() >= 2 }, 2*time.Second, 2*time.Millisecond)

	m.Close()
	checks := prov.checkCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, checks, prov.checkCount())
	assert.Empty(t, m.List())

	_, err := m.Trigger(Request{BookingRef: "C3", UserID: 1, Phone: "0700000000"})
	assert.ErrorIs(t, err, ErrClosed)
}

// blockingProvider holds the first status check until release is closed,
// ignoring cancellation, and answers every later check with failed.
type blockingProvider struct {
	mu      sync.Mutex
	checks  int
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) InitiatePayment(ctx context.Context, req payment.PaymentRequest) (*payment.PaymentResponse, error) {
	return &payment.PaymentResponse{Status: "success", CheckoutRequestID: "CO9"}, nil
}

func (p *blockingProvider) CheckStatus(ctx context.Context, checkoutID string) (payment.Status, error) {
	p.mu.Lock()
	p.checks++
	n := p.checks
	p.mu.Unlock()
	if n == 1 {
		close(p.started)
		<-p.release
		return payment.StatusSuccess, nil
	}
	return payment.StatusFailed, nil
}

func TestLateSuccessAfterFailureIsIgnored(t *testing.T) {
	prov := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	ref := &countingRefresher{}
	cfg := fastConfig()
	cfg.DismissAfter = time.Hour
	m := NewManager(cfg, prov, WithRefresher(ref))
	defer m.Close()
	release := sync.OnceFunc(func() { close(prov.release) })
	defer release()

	_, err := m.Trigger(Request{BookingRef: "B9", UserID: 1, Phone: "0700000000"})
	require.NoError(t, err)

	select {
	case <-prov.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first status check never started")
	}
	failed := waitState(t, m, "B9", StateFailed)
	assert.Equal(t, ReasonGatewayFailed, failed.FailureReason)

	release()
	time.Sleep(5 * cfg.PollInterval)

	a, ok := m.Get("B9")
	require.True(t, ok)
	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, ReasonGatewayFailed, a.FailureReason)
	assert.Equal(t, failed.ResolvedAt, a.ResolvedAt)
	assert.Zero(t, ref.n.Load())
}
