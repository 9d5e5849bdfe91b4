// Package notify is the fan-out point between the realtime client and
// its consumers: badge counters, toast popups, list screens. It holds
// exactly one slot, the latest normalized event, plus the connection
// status. There is no queue and no history; consumers treat an update as
// a "something changed, refresh now" signal and re-fetch authoritative
// state themselves.
package notify

import (
	"sync"

	"github.com/hathynn/warehouse-mobile-sub001/internal/notification"
)

// Status is the tri-state broker connection status.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "disconnected"
	}
}

// Update is what subscribers receive: the latest event (nil until the
// first publish) and the connection state at the time of the change.
type Update struct {
	Event           *notification.Event
	Status          Status
	ConnectionError string
}

// Connected reports whether live delivery is active.
func (u Update) Connected() bool {
	return u.Status == StatusConnected
}

// Store is the single-slot observable. Writes are exclusive to the
// realtime client; consumers only subscribe and read.
//
// Each subscriber owns a buffered channel of capacity one. A publish
// that finds the buffer full replaces the pending update, so a slow
// consumer skips intermediate events and always wakes to the newest one.
// Every subscriber registered at publish time observes a given event at
// most once.
type Store struct {
	mu      sync.Mutex
	latest  *notification.Event
	status  Status
	connErr string
	subs    map[int]chan Update
	nextID  int
}

// NewStore starts disconnected with no event.
func NewStore() *Store {
	return &Store{subs: make(map[int]chan Update)}
}

// Subscribe returns an update channel and a cancel func. The channel is
// closed on cancel; cancel is idempotent.
func (s *Store) Subscribe() (<-chan Update, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan Update, 1)
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Snapshot returns the current slot without subscribing.
func (s *Store) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Update{Event: s.latest, Status: s.status, ConnectionError: s.connErr}
}

// Publish replaces the latest event and fans the update out.
func (s *Store) Publish(ev notification.Event) {
	s.mu.Lock()
	s.latest = &ev
	s.broadcastLocked()
	s.mu.Unlock()
}

// SetStatus records a connection state change and fans it out. msg is
// empty unless status is StatusError.
func (s *Store) SetStatus(status Status, msg string) {
	s.mu.Lock()
	s.status = status
	s.connErr = msg
	s.broadcastLocked()
	s.mu.Unlock()
}

func (s *Store) broadcastLocked() {
	u := Update{Event: s.latest, Status: s.status, ConnectionError: s.connErr}
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
			// Drop the stale pending update; latest wins.
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}
