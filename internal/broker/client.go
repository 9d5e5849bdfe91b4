package broker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hathynn/warehouse-mobile-sub001/internal/wire"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Clients only send small control
	// frames; events flow the other way.
	maxMessageSize = 4096
)

// Client is one websocket connection as seen by the hub. The socket id
// is what the connecting peer presents to the authorization endpoint.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]bool

	sendClosed int32
}

// NewClient wraps an upgraded connection. Serve must be called to start
// the pumps.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:       uuid.New().String(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 64),
		channels: make(map[string]bool),
	}
}

// SocketID returns the broker-assigned connection id.
func (c *Client) SocketID() string {
	return c.id
}

// Serve registers with the hub and runs the pumps. Blocks until the
// connection drops.
func (c *Client) Serve() {
	c.hub.register <- c
	go c.writePump()
	c.readPump()
}

func (c *Client) subscriptions() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool, len(c.channels))
	for name := range c.channels {
		out[name] = true
	}
	return out
}

func (c *Client) enqueue(payload []byte) {
	if atomic.LoadInt32(&c.sendClosed) == 1 {
		return
	}
	select {
	case c.send <- payload:
	default:
		// Slow consumer; drop rather than block the hub.
	}
}

func (c *Client) closeSend() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

func (c *Client) sendConnectionEstablished() {
	payload, err := wire.Marshal(wire.SysConnectionEstablished, "",
		wire.ConnectionEstablishedData{SocketID: c.id})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) sendError(code, message string) {
	payload, err := wire.Marshal(wire.SysError, "", wire.ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleFrame(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleFrame(msg []byte) {
	var frame wire.Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		c.sendError("bad_frame", "unparseable frame")
		return
	}

	switch frame.Event {
	case wire.SysSubscribe:
		c.handleSubscribe(frame)

	case wire.SysUnsubscribe:
		var data wire.UnsubscribeData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.Channel == "" {
			c.sendError("bad_frame", "malformed unsubscribe")
			return
		}
		c.mu.Lock()
		delete(c.channels, data.Channel)
		c.mu.Unlock()
		c.hub.removeFromChannel(data.Channel, c)

	case wire.SysPing:
		if payload, err := wire.Marshal(wire.SysPong, "", nil); err == nil {
			c.enqueue(payload)
		}

	default:
		c.sendError("unsupported", "clients may only send system frames")
	}
}

func (c *Client) handleSubscribe(frame wire.Frame) {
	var data wire.SubscribeData
	if err := json.Unmarshal(frame.Data, &data); err != nil || data.Channel == "" {
		c.sendError("bad_frame", "malformed subscribe")
		return
	}

	if err := c.hub.verify(data.Auth, c.id, data.Channel); err != nil {
		c.hub.log.Warn("subscription refused", "socketID", c.id, "channel", data.Channel, "error", err)
		c.sendError("forbidden", "subscription not authorized for "+data.Channel)
		return
	}

	c.mu.Lock()
	c.channels[data.Channel] = true
	c.mu.Unlock()
	c.hub.addToChannel(data.Channel, c)

	if payload, err := wire.Marshal(wire.SysSubscriptionSucceeded, data.Channel,
		wire.SubscriptionSucceededData{Channel: data.Channel}); err == nil {
		c.enqueue(payload)
	}
	c.hub.log.Info("subscription granted", "socketID", c.id, "channel", data.Channel)
}
