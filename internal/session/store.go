package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hubadmin/internal/checkout"
	"hubadmin/pkg/campushub"
	"hubadmin/pkg/payment"
)

// PaymentHook sees every payment attempt change of every session.
type PaymentHook func(s *Session, a checkout.Attempt)

type Options struct {
	UpstreamURL     string
	UpstreamTimeout time.Duration
	Payment         checkout.Config
	IdleTimeout     time.Duration
	// Provider builds the payment gateway for a session's upstream client.
	Provider func(*campushub.Client) payment.Provider
	OnPayment PaymentHook
}

// Store keeps the live operator sessions.
type Store struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(opts Options) *Store {
	if opts.Provider == nil {
		opts.Provider = func(c *campushub.Client) payment.Provider { return payment.NewCampusHubProvider(c) }
	}
	return &Store{opts: opts, sessions: make(map[string]*Session)}
}

// Login signs in upstream with a fresh cookie jar and, on success, registers
// a new session. Upstream rejections come back unchanged so the caller can
// surface attempts_left.
func (st *Store) Login(ctx context.Context, email, otp string) (*Session, error) {
	client, err := campushub.New(st.opts.UpstreamURL, st.opts.UpstreamTimeout)
	if err != nil {
		return nil, err
	}
	user, err := client.AdminLogin(ctx, email, otp)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: uuid.NewString(), Client: client, CreatedAt: time.Now(), user: user}
	opts := []checkout.Option{checkout.WithRefresher(s)}
	if hook := st.opts.OnPayment; hook != nil {
		opts = append(opts, checkout.WithObserver(func(a checkout.Attempt) { hook(s, a) }))
	}
	s.Payments = checkout.NewManager(st.opts.Payment, st.opts.Provider(client), opts...)
	s.touch()

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	log.Printf("[SESSION] created id=%s user_id=%d", s.ID, user.UserID)
	return s, nil
}

// Get returns a live session and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Delete tears a session down without telling the upstream.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.close()
		log.Printf("[SESSION] closed id=%s", id)
	}
	return ok
}

// Logout ends the upstream login and tears the session down. The session is
// removed even when the upstream call fails.
func (st *Store) Logout(ctx context.Context, id string) error {
	s, ok := st.Get(id)
	if !ok {
		return nil
	}
	err := s.Client.Logout(ctx)
	if err != nil {
		log.Printf("[SESSION] upstream logout id=%s: %v", id, err)
	}
	st.Delete(id)
	return err
}

// Sweep tears down sessions idle since before now-IdleTimeout and returns
// how many it removed.
func (st *Store) Sweep(now time.Time) int {
	if st.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-st.opts.IdleTimeout)
	var stale []string
	st.mu.RLock()
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()
	for _, id := range stale {
		st.Delete(id)
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			if n := st.Sweep(now); n > 0 {
				log.Printf("[SESSION] swept %d idle sessions", n)
			}
		}
	}
}

// Close tears down every session.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}
