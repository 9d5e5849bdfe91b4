package realtime

import "context"

// Callbacks receive transport lifecycle and event delivery. All callbacks
// fire on transport-owned goroutines; implementations must be safe to
// call after the consumer has moved on (the client guards with an attempt
// generation).
type Callbacks struct {
	// OnConnected fires when the broker acknowledges the connection and
	// assigns a socket id. Fires again after an automatic reconnect, with
	// the new socket id; the subscriber must re-authorize.
	OnConnected func(socketID string)

	// OnSubscribed fires when the broker acknowledges a channel
	// subscription.
	OnSubscribed func(channel string)

	// OnEvent fires for every application event delivered on a
	// subscribed channel. data is nil when the event carried no payload.
	OnEvent func(channel, event string, data map[string]any)

	// OnDisconnected fires when an established connection drops. The
	// transport keeps redialing until Close or context cancellation.
	OnDisconnected func()

	// OnError fires on broker-reported or transport-fatal errors.
	OnError func(err error)
}

// Transport is the minimal pub/sub surface the client depends on: one
// connection, channel subscribe/unsubscribe, and lifecycle callbacks.
// Exactly one Connect call per Transport instance.
type Transport interface {
	Connect(ctx context.Context, cb Callbacks) error
	Subscribe(channel, auth string) error
	Unsubscribe(channel string) error
	Close() error
}

// TransportFactory builds a fresh transport for one connection attempt.
// The client creates one per session transition.
type TransportFactory func() Transport
