// Package session holds the authenticated identity and its lifecycle
// flags. The realtime client only reads it; authentication flows own the
// writes.
package session

import (
	"sync"

	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
)

// Session is a point-in-time view of the authenticated identity.
type Session struct {
	AccountID    string
	Role         channel.Role
	IsLoggedIn   bool
	IsLoggingOut bool
}

// Active reports whether the realtime client is allowed to hold a broker
// connection for this session.
func (s Session) Active() bool {
	return s.IsLoggedIn && !s.IsLoggingOut
}

// Store is an observable session holder. Watchers are invoked
// synchronously on the mutating goroutine, in registration order, so a
// logout is fully torn down before Set returns.
type Store struct {
	mu       sync.Mutex
	current  Session
	watchers map[int]func(Session)
	nextID   int
}

// NewStore starts logged out.
func NewStore() *Store {
	return &Store{watchers: make(map[int]func(Session))}
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Watch registers fn for every subsequent session change and returns a
// cancel func. Cancel is idempotent.
func (s *Store) Watch(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Set replaces the session and notifies watchers before returning.
func (s *Store) Set(next Session) {
	s.mu.Lock()
	s.current = next
	fns := make([]func(Session), 0, len(s.watchers))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Login records a successful authentication.
func (s *Store) Login(accountID string, role channel.Role) {
	s.Set(Session{AccountID: accountID, Role: role, IsLoggedIn: true})
}

// BeginLogout flags the session as logging out; the realtime client must
// disconnect on this transition, before the tokens are revoked.
func (s *Store) BeginLogout() {
	cur := s.Snapshot()
	cur.IsLoggingOut = true
	s.Set(cur)
}

// Logout completes the logout and clears the identity.
func (s *Store) Logout() {
	s.Set(Session{})
}
