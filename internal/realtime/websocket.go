package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hathynn/warehouse-mobile-sub001/internal/wire"
)

const (
	// Time allowed to write a message to the broker.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the broker.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Redial backoff after an established connection drops. The first
	// connect is a single attempt; only reconnects back off.
	reconnectBase = time.Second
	reconnectCap  = 30 * time.Second
)

// WebsocketTransport speaks the wire protocol over a single gorilla
// websocket connection. The initial dial is one attempt; once a
// connection has been established, a drop triggers capped-exponential
// redialing until Close.
type WebsocketTransport struct {
	url string
	log *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	send   chan []byte
	closed bool
	cancel context.CancelFunc

	cb Callbacks
}

// NewWebsocketTransport builds a transport dialing the given ws:// or
// wss:// URL.
func NewWebsocketTransport(url string, log *slog.Logger) *WebsocketTransport {
	if log == nil {
		log = slog.Default()
	}
	return &WebsocketTransport{url: url, log: log}
}

// Factory adapts the constructor to the client's TransportFactory.
func Factory(url string, log *slog.Logger) TransportFactory {
	return func() Transport {
		return NewWebsocketTransport(url, log)
	}
}

// Connect dials the broker once. On success it starts the read and write
// pumps and returns nil; delivery proceeds via callbacks.
func (t *WebsocketTransport) Connect(ctx context.Context, cb Callbacks) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("realtime: transport closed")
	}
	if t.cancel != nil {
		t.mu.Unlock()
		return errors.New("realtime: transport already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.cb = cb
	t.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(runCtx, t.url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("realtime: dial %s: %w", t.url, err)
	}
	t.startPumps(runCtx, conn)
	return nil
}

func (t *WebsocketTransport) startPumps(ctx context.Context, conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.send = make(chan []byte, 64)
	send := t.send
	t.mu.Unlock()

	go t.writePump(conn, send)
	go t.readPump(ctx, conn)
}

// Subscribe asks the broker for delivery on channel, presenting the auth
// grant obtained from the authorization endpoint.
func (t *WebsocketTransport) Subscribe(channel, auth string) error {
	return t.enqueue(wire.SysSubscribe, channel, wire.SubscribeData{Channel: channel, Auth: auth})
}

// Unsubscribe stops delivery on channel.
func (t *WebsocketTransport) Unsubscribe(channel string) error {
	return t.enqueue(wire.SysUnsubscribe, channel, wire.UnsubscribeData{Channel: channel})
}

func (t *WebsocketTransport) enqueue(event, channel string, data any) error {
	payload, err := wire.Marshal(event, channel, data)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.send == nil {
		return errors.New("realtime: transport not connected")
	}
	select {
	case t.send <- payload:
		return nil
	default:
		return errors.New("realtime: send buffer full")
	}
}

// Close tears the connection down. Idempotent; no callbacks fire after
// Close returns.
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cancel := t.cancel
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}
	return nil
}

func (t *WebsocketTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *WebsocketTransport) writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (t *WebsocketTransport) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		t.dispatch(msg)
	}
	conn.Close()

	if t.isClosed() || ctx.Err() != nil {
		return
	}
	if t.cb.OnDisconnected != nil {
		t.cb.OnDisconnected()
	}
	t.redial(ctx)
}

// redial re-establishes a dropped connection with capped exponential
// backoff. The broker hands out a fresh socket id on success, so the
// OnConnected callback runs the authorization exchange again.
func (t *WebsocketTransport) redial(ctx context.Context) {
	backoff := reconnectBase
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if t.isClosed() {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
		if err == nil {
			t.log.Info("broker connection re-established", "url", t.url)
			t.startPumps(ctx, conn)
			return
		}
		t.log.Warn("broker redial failed", "url", t.url, "backoff", backoff, "error", err)

		backoff *= 2
		if backoff > reconnectCap {
			backoff = reconnectCap
		}
	}
}

func (t *WebsocketTransport) dispatch(msg []byte) {
	var frame wire.Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.log.Warn("dropping unparseable broker frame", "error", err)
		return
	}

	switch frame.Event {
	case wire.SysConnectionEstablished:
		var data wire.ConnectionEstablishedData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			t.emitError(fmt.Errorf("realtime: malformed connection ack: %w", err))
			return
		}
		if t.cb.OnConnected != nil {
			t.cb.OnConnected(data.SocketID)
		}

	case wire.SysSubscriptionSucceeded:
		var data wire.SubscriptionSucceededData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			t.emitError(fmt.Errorf("realtime: malformed subscription ack: %w", err))
			return
		}
		if t.cb.OnSubscribed != nil {
			t.cb.OnSubscribed(data.Channel)
		}

	case wire.SysError:
		var data wire.ErrorData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			t.emitError(errors.New("realtime: broker error"))
			return
		}
		t.emitError(fmt.Errorf("realtime: broker error %s: %s", data.Code, data.Message))

	case wire.SysPing:
		payload, err := wire.Marshal(wire.SysPong, "", nil)
		if err == nil {
			t.mu.Lock()
			if !t.closed && t.send != nil {
				select {
				case t.send <- payload:
				default:
				}
			}
			t.mu.Unlock()
		}

	default:
		var data map[string]any
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &data); err != nil {
				// Opaque payload; deliver the raw text under a well-known key.
				data = map[string]any{"raw": string(frame.Data)}
			}
		}
		if t.cb.OnEvent != nil {
			t.cb.OnEvent(frame.Channel, frame.Event, data)
		}
	}
}

func (t *WebsocketTransport) emitError(err error) {
	if t.cb.OnError != nil {
		t.cb.OnError(err)
	}
}
