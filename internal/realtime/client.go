// Package realtime keeps one broker connection and one private-channel
// subscription in sync with the authenticated session, and feeds
// normalized notifications into the fan-out store.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
	"github.com/hathynn/warehouse-mobile-sub001/internal/notification"
	"github.com/hathynn/warehouse-mobile-sub001/internal/notify"
	"github.com/hathynn/warehouse-mobile-sub001/internal/session"
)

// State is the connection lifecycle of the client.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateError
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateError:
		return "error"
	case StateTornDown:
		return "torn down"
	default:
		return "idle"
	}
}

// Client owns the single broker connection for the process. It reacts
// only to session transitions: login connects and subscribes, logout (or
// logout start, or a role/account change) tears down. One connect and
// one authorization attempt per transition; failures surface as a
// connection error on the sink and wait for the next transition.
//
// All collaborators are injected so the state machine is testable with
// fakes.
type Client struct {
	dial     TransportFactory
	auth     Authorizer
	sessions *session.Store
	sink     *notify.Store
	norm     *notification.Normalizer
	log      *slog.Logger

	mu          sync.Mutex
	state       State
	gen         int // attempt generation; stale callbacks are discarded
	transport   Transport
	channelName string
	cancelAuth  context.CancelFunc
	stopWatch   func()
	closed      bool
}

// NewClient wires the client. norm may share its classifier with other
// components; log may be nil.
func NewClient(dial TransportFactory, auth Authorizer, sessions *session.Store, sink *notify.Store, norm *notification.Normalizer, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		dial:     dial,
		auth:     auth,
		sessions: sessions,
		sink:     sink,
		norm:     norm,
		log:      log,
	}
}

// Start applies the current session and begins watching for transitions.
func (c *Client) Start() {
	c.stopWatch = c.sessions.Watch(c.onSession)
	c.onSession(c.sessions.Snapshot())
}

// Close tears everything down for process shutdown. Idempotent.
func (c *Client) Close() {
	if c.stopWatch != nil {
		c.stopWatch()
	}
	c.mu.Lock()
	c.closed = true
	c.teardownLocked()
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// onSession runs synchronously on the session mutator's goroutine, so
// teardown completes before the triggering Set returns and no event can
// reach the sink under a logged-out session.
func (c *Client) onSession(s session.Session) {
	c.mu.Lock()
	c.teardownLocked()
	if c.closed || !s.Active() {
		c.mu.Unlock()
		return
	}

	name, err := channel.Resolve(s.Role, s.AccountID)
	if err != nil {
		c.state = StateError
		c.mu.Unlock()
		c.log.Error("cannot resolve notification channel", "role", s.Role, "error", err)
		c.sink.SetStatus(notify.StatusError, "cannot resolve notification channel: "+err.Error())
		return
	}

	c.gen++
	gen := c.gen
	t := c.dial()
	c.transport = t
	c.channelName = name
	c.state = StateConnecting
	c.mu.Unlock()

	c.log.Info("connecting to notification broker", "channel", name)
	cb := Callbacks{
		OnConnected:    func(socketID string) { c.onConnected(gen, socketID) },
		OnSubscribed:   func(ch string) { c.onSubscribed(gen, ch) },
		OnEvent:        func(ch, event string, data map[string]any) { c.onEvent(gen, event, data) },
		OnDisconnected: func() { c.onDisconnected(gen) },
		OnError:        func(err error) { c.fail(gen, "broker error: "+err.Error()) },
	}
	if err := t.Connect(context.Background(), cb); err != nil {
		c.fail(gen, "broker connection failed: "+err.Error())
	}
}

func (c *Client) onConnected(gen int, socketID string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	name := c.channelName
	authCtx, cancel := context.WithCancel(context.Background())
	c.cancelAuth = cancel
	c.mu.Unlock()

	go func() {
		token, err := c.auth.Authorize(authCtx, socketID, name)
		if authCtx.Err() != nil {
			// Session changed mid-flight; the new attempt owns the state.
			return
		}
		if err != nil {
			c.fail(gen, "channel authorization failed: "+err.Error())
			return
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		t := c.transport
		c.mu.Unlock()

		if err := t.Subscribe(name, token); err != nil {
			c.fail(gen, "channel subscription failed: "+err.Error())
		}
	}()
}

func (c *Client) onSubscribed(gen int, name string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateSubscribed
	c.mu.Unlock()
	c.log.Info("notification channel subscribed", "channel", name)

	// Consumers see "connected" only once delivery is actually live:
	// the socket being up without an authorized subscription delivers
	// nothing.
	c.sink.SetStatus(notify.StatusConnected, "")
}

// onEvent publishes under the client mutex so a concurrent teardown
// cannot interleave between the generation check and the publish.
func (c *Client) onEvent(gen int, name string, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if notification.IsSystem(name) {
		return
	}
	ev := c.norm.Normalize(name, data)
	c.sink.Publish(ev)
	c.log.Debug("notification published", "type", ev.Type, "category", ev.Category.String())
}

func (c *Client) onDisconnected(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()
	c.log.Warn("broker connection lost, transport redialing")
	// Clears back to connected if the transport's redial succeeds and
	// the resubscription goes through.
	c.sink.SetStatus(notify.StatusError, "broker connection lost")
}

func (c *Client) fail(gen int, msg string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateError
	c.mu.Unlock()
	c.log.Error("realtime client error", "error", msg)
	c.sink.SetStatus(notify.StatusError, msg)
}

// teardownLocked unwinds the active attempt: cancels any in-flight
// authorization, unsubscribes, closes the transport, and bumps the
// generation so late callbacks from the old attempt are ignored. Safe to
// call repeatedly.
func (c *Client) teardownLocked() {
	c.gen++
	if c.cancelAuth != nil {
		c.cancelAuth()
		c.cancelAuth = nil
	}
	if c.transport != nil {
		if c.channelName != "" {
			c.transport.Unsubscribe(c.channelName)
		}
		c.transport.Close()
		c.transport = nil
	}

	if c.state != StateIdle {
		c.state = StateTornDown
		c.sink.SetStatus(notify.StatusDisconnected, "")
	}
}
