package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubadmin/internal/checkout"
	"hubadmin/pkg/campushub"
	"hubadmin/pkg/campushub/campushubtest"
)

func newStore(t *testing.T, upstream *campushubtest.Server, hook PaymentHook) *Store {
	t.Helper()
	st := NewStore(Options{
		UpstreamURL:     upstream.URL,
		UpstreamTimeout: 2 * time.Second,
		IdleTimeout:     time.Hour,
		Payment: checkout.Config{
			PollInterval: 10 * time.Millisecond,
			MaxPolls:     24,
			DismissAfter: 50 * time.Millisecond,
			FixedAmount:  1000,
		},
		OnPayment: hook,
	})
	t.Cleanup(st.Close)
	return st
}

func TestLoginCreatesSession(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	st := newStore(t, up, nil)

	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, st.Len())

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Equal(t, "admin@campushub.test", state.User.Email)

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestLoginRejectedKeepsAttemptsLeft(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	st := newStore(t, up, nil)

	_, err := st.Login(context.Background(), "admin@campushub.test", "000000")
	var apiErr *campushub.APIError
	require.True(t, errors.As(err, &apiErr))
	require.NotNil(t, apiErr.AttemptsLeft)
	assert.Equal(t, 2, *apiErr.AttemptsLeft)
	assert.Zero(t, st.Len())
}

func TestCheckClearsUserOnUnauthorized(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	st := newStore(t, up, nil)
	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)

	state, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsAuthenticated)

	up.ExpireSessions()
	state, err = s.Check(context.Background())
	assert.ErrorIs(t, err, campushub.ErrUnauthorized)
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
}

func TestBookingSnapshotIsReplacedWhole(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	up.Bookings = []campushub.Booking{{BookingID: 1, UserID: 42, Phone: "0712345678", Amount: 1000, PaymentStatus: "unpaid"}}
	st := newStore(t, up, nil)
	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)

	assert.Nil(t, s.Bookings())
	first, err := s.LoadBookings(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, first.Bookings, 1)

	up.SetBookings(nil)
	cached, err := s.LoadBookings(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	fresh, err := s.LoadBookings(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, fresh.Bookings)
	// the earlier snapshot is untouched
	assert.Len(t, first.Bookings, 1)
}

func TestTriggerPaymentEndToEnd(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	up.Bookings = []campushub.Booking{{BookingID: 7, UserID: 42, Phone: "0712345678", Amount: 1000, PaymentStatus: "unpaid"}}
	up.Statuses = []string{"pending", "pending", "pending", "success"}

	var mu sync.Mutex
	var seen []checkout.State
	st := newStore(t, up, func(s *Session, a checkout.Attempt) {
		mu.Lock()
		seen = append(seen, a.State)
		mu.Unlock()
	})
	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)

	a, err := s.TriggerPayment(context.Background(), 7, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "7", a.BookingRef)
	assert.Equal(t, "254712345678", a.Phone)

	require.Eventually(t, func() bool {
		got, ok := s.Payments.Get("7")
		return ok && got.State == checkout.StateSuccess
	}, 2*time.Second, 2*time.Millisecond)

	body := up.LastBody("/admin/pay")
	assert.Equal(t, "254712345678", body["phone"])
	assert.EqualValues(t, 42, body["user_id"])
	assert.EqualValues(t, 1000, body["amount"])
	assert.Equal(t, 4, up.Calls("/mpesaPaymentGetways/check_transaction_status"))
	assert.Zero(t, up.CSRFMisses())

	// success reloads bookings (initial load + reload)
	require.Eventually(t, func() bool {
		return up.Calls("/admin/get_bookings_and_requests") == 2
	}, time.Second, 2*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := s.Payments.Get("7")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, checkout.StateSuccess)
	assert.Equal(t, checkout.StateIdle, seen[len(seen)-1])
}

func TestTriggerPaymentUnknownBooking(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	st := newStore(t, up, nil)
	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)

	_, err = s.TriggerPayment(context.Background(), 99, "", 0)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestLogoutTearsDownPayments(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	up.Bookings = []campushub.Booking{{BookingID: 3, UserID: 5, Phone: "0700000000", PaymentStatus: "unpaid"}}
	st := newStore(t, up, nil)
	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)

	_, err = s.TriggerPayment(context.Background(), 3, "", 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return up.Calls("/mpesaPaymentGetways/check_transaction_status") >= 2
	}, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, st.Logout(context.Background(), s.ID))
	assert.Zero(t, st.Len())
	assert.Equal(t, 1, up.Calls("/auth/logout"))
	assert.Empty(t, s.Payments.List())

	polls := up.Calls("/mpesaPaymentGetways/check_transaction_status")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polls, up.Calls("/mpesaPaymentGetways/check_transaction_status"))

	_, ok := st.Get(s.ID)
	assert.False(t, ok)
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	st := newStore(t, up, nil)
	s, err := st.Login(context.Background(), "admin@campushub.test", "123456")
	require.NoError(t, err)

	assert.Zero(t, st.Sweep(time.Now()))
	assert.Equal(t, 1, st.Sweep(time.Now().Add(2*time.Hour)))
	_, ok := st.Get(s.ID)
	assert.False(t, ok)
	assert.False(t, s.State().IsAuthenticated)
}
