// Package wire defines the JSON frames exchanged between the broker and
// realtime clients. System frames carry connection lifecycle; everything
// else is an application event on a channel.
package wire

import "encoding/json"

// System event names. The "system:" prefix is reserved for the broker;
// clients filter these out before classification.
const (
	SysConnectionEstablished = "system:connection_established"
	SysSubscribe             = "system:subscribe"
	SysSubscriptionSucceeded = "system:subscription_succeeded"
	SysUnsubscribe           = "system:unsubscribe"
	SysError                 = "system:error"
	SysPing                  = "system:ping"
	SysPong                  = "system:pong"
)

// Frame is the envelope for every message on the socket.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ConnectionEstablishedData rides on SysConnectionEstablished and tells
// the client its socket id, needed for the channel auth exchange.
type ConnectionEstablishedData struct {
	SocketID string `json:"socket_id"`
}

// SubscribeData rides on SysSubscribe. Auth is the grant returned by the
// authorization endpoint for (socket_id, channel).
type SubscribeData struct {
	Channel string `json:"channel"`
	Auth    string `json:"auth"`
}

// SubscriptionSucceededData rides on SysSubscriptionSucceeded.
type SubscriptionSucceededData struct {
	Channel string `json:"channel"`
}

// UnsubscribeData rides on SysUnsubscribe.
type UnsubscribeData struct {
	Channel string `json:"channel"`
}

// ErrorData rides on SysError.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Marshal encodes a frame with an arbitrary data payload.
func Marshal(event, channel string, data any) ([]byte, error) {
	f := Frame{Event: event, Channel: channel}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		f.Data = raw
	}
	return json.Marshal(f)
}
