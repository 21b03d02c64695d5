// Package session holds the state of one signed-in console operator: the
// upstream login, the booking snapshot and the running payment attempts.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"hubadmin/internal/checkout"
	"hubadmin/pkg/campushub"
)

// State is what the browser needs to decide between the login screen and
// the console.
type State struct {
	User            *campushub.User `json:"user"`
	IsAuthenticated bool            `json:"is_authenticated"`
	Loading         bool            `json:"loading"`
}

// Bookings is an immutable copy of the booking collection. A reload swaps
// in a whole new snapshot.
type Bookings struct {
	Requests []campushub.BookingRequest `json:"requests"`
	Bookings []campushub.Booking        `json:"bookings"`
	LoadedAt time.Time                  `json:"loaded_at"`
}

// Find returns the booking with the given id.
func (b *Bookings) Find(bookingID int64) (campushub.Booking, bool) {
	if b == nil {
		return campushub.Booking{}, false
	}
	for _, bk := range b.Bookings {
		if bk.BookingID == bookingID {
			return bk, true
		}
	}
	return campushub.Booking{}, false
}

type Session struct {
	ID        string
	Client    *campushub.Client
	Payments  *checkout.Manager
	CreatedAt time.Time

	mu       sync.RWMutex
	user     *campushub.User
	loading  bool
	lastSeen atomic.Int64
	bookings atomic.Pointer[Bookings]
	closed   atomic.Bool
}

func (s *Session) User() *campushub.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setUser(u *campushub.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{User: s.user, IsAuthenticated: s.user != nil, Loading: s.loading}
}

// Check re-validates the upstream login. A 401 clears the user and returns
// campushub.ErrUnauthorized; other errors leave the session as it was.
func (s *Session) Check(ctx context.Context) (State, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	u, err := s.Client.Profile(ctx)

	s.mu.Lock()
	s.loading = false
	switch {
	case err == nil:
		s.user = u
	case errors.Is(err, campushub.ErrUnauthorized):
		s.user = nil
	}
	s.mu.Unlock()
	return s.State(), err
}

// Bookings returns the last loaded snapshot, nil before the first load.
func (s *Session) Bookings() *Bookings { return s.bookings.Load() }

// Reload fetches the booking collection and replaces the snapshot.
func (s *Session) Reload(ctx context.Context) error {
	data, err := s.Client.BookingsAndRequests(ctx)
	if err != nil {
		return fmt.Errorf("reload bookings: %w", err)
	}
	s.bookings.Store(&Bookings{
		Requests: data.Requests,
		Bookings: data.Bookings,
		LoadedAt: time.Now(),
	})
	return nil
}

// LoadBookings returns the snapshot, fetching it first when there is none
// or force is set.
func (s *Session) LoadBookings(ctx context.Context, force bool) (*Bookings, error) {
	if b := s.bookings.Load(); b != nil && !force {
		return b, nil
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s.bookings.Load(), nil
}

// TriggerPayment charges the payee of a booking from the current snapshot.
func (s *Session) TriggerPayment(ctx context.Context, bookingID int64, phone string, amount int64) (checkout.Attempt, error) {
	snap, err := s.LoadBookings(ctx, false)
	if err != nil {
		return checkout.Attempt{}, err
	}
	bk, ok := snap.Find(bookingID)
	if !ok {
		return checkout.Attempt{}, ErrBookingNotFound
	}
	if phone == "" {
		phone = bk.Phone
	}
	if amount <= 0 {
		amount = int64(bk.Amount)
	}
	return s.Payments.Trigger(checkout.Request{
		BookingRef:    strconv.FormatInt(bk.BookingID, 10),
		UserID:        bk.UserID,
		Phone:         phone,
		Amount:        amount,
		PaymentStatus: bk.PaymentStatus,
	})
}

var ErrBookingNotFound = errors.New("booking not found")

func (s *Session) touch()             { s.lastSeen.Store(time.Now().UnixNano()) }
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// close stops every payment attempt of the session. Safe to call twice.
func (s *Session) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.Payments.Close()
	s.setUser(nil)
}
