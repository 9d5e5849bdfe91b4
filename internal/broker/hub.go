// Package broker is the server side of the notification pipe: it accepts
// websocket connections, gates private-channel subscriptions on auth
// grants, and fans published events out to subscribers. With redis
// configured, publishes travel through a pub/sub topic so every broker
// instance delivers them; without redis the hub delivers locally.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/hathynn/warehouse-mobile-sub001/internal/wire"
)

// redisTopic carries cross-instance publications.
const redisTopic = "warehouse:notifications"

var ErrHubClosed = fmt.Errorf("broker: hub closed")

// GrantVerifier vets the auth token a client presents when subscribing
// to a private channel.
type GrantVerifier func(auth, socketID, channel string) error

// Publication is one event addressed to a channel.
type Publication struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hub tracks connections and per-channel subscriptions.
type Hub struct {
	verify GrantVerifier
	rdb    *redis.Client // nil for single-instance deployments
	pubsub *redis.PubSub
	log    *slog.Logger

	register   chan *Client
	unregister chan *Client
	deliver    chan Publication

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.RWMutex
	clients        map[*Client]bool
	channelClients map[string]map[*Client]bool
}

// NewHub wires a hub; rdb may be nil.
func NewHub(verify GrantVerifier, rdb *redis.Client, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		verify:         verify,
		rdb:            rdb,
		log:            log,
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		deliver:        make(chan Publication, 64),
		ctx:            ctx,
		cancel:         cancel,
		clients:        make(map[*Client]bool),
		channelClients: make(map[string]map[*Client]bool),
	}
}

// Run processes registrations and deliveries until Stop.
func (h *Hub) Run() {
	h.subscribeToRedis()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case pub := <-h.deliver:
			h.deliverPublication(pub)

		case <-h.ctx.Done():
			h.log.Info("notification hub shutting down")
			return
		}
	}
}

// Stop shuts the hub down. Idempotent.
func (h *Hub) Stop() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}

// Publish routes an event to every subscriber of channel. With redis
// configured the event goes through the pub/sub topic so other broker
// instances deliver it too.
func (h *Hub) Publish(ctx context.Context, pub Publication) error {
	if h.ctx.Err() != nil {
		return ErrHubClosed
	}
	if h.rdb != nil {
		payload, err := json.Marshal(pub)
		if err != nil {
			return fmt.Errorf("broker: encode publication: %w", err)
		}
		if err := h.rdb.Publish(ctx, redisTopic, payload).Err(); err != nil {
			return fmt.Errorf("broker: redis publish: %w", err)
		}
		return nil
	}

	select {
	case h.deliver <- pub:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) subscribeToRedis() {
	if h.rdb == nil {
		return
	}
	h.pubsub = h.rdb.Subscribe(h.ctx, redisTopic)

	go func() {
		for msg := range h.pubsub.Channel() {
			var pub Publication
			if err := json.Unmarshal([]byte(msg.Payload), &pub); err != nil {
				h.log.Error("dropping malformed redis publication", "error", err)
				continue
			}
			select {
			case h.deliver <- pub:
			case <-h.ctx.Done():
				return
			}
		}
	}()
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.log.Info("client connected", "socketID", client.id)
	client.sendConnectionEstablished()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for name := range client.subscriptions() {
		h.dropFromChannelLocked(name, client)
	}
	h.mu.Unlock()

	client.closeSend()
	h.log.Info("client disconnected", "socketID", client.id)
}

// addToChannel records a verified subscription.
func (h *Hub) addToChannel(name string, client *Client) {
	h.mu.Lock()
	if h.channelClients[name] == nil {
		h.channelClients[name] = make(map[*Client]bool)
	}
	h.channelClients[name][client] = true
	h.mu.Unlock()
}

// removeFromChannel drops one subscription.
func (h *Hub) removeFromChannel(name string, client *Client) {
	h.mu.Lock()
	h.dropFromChannelLocked(name, client)
	h.mu.Unlock()
}

func (h *Hub) dropFromChannelLocked(name string, client *Client) {
	if subs, ok := h.channelClients[name]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channelClients, name)
		}
	}
}

func (h *Hub) deliverPublication(pub Publication) {
	var data any
	if len(pub.Data) > 0 {
		data = pub.Data
	}
	payload, err := wire.Marshal(pub.Event, pub.Channel, data)
	if err != nil {
		h.log.Error("cannot encode publication frame", "event", pub.Event, "error", err)
		return
	}

	h.mu.RLock()
	subs := make([]*Client, 0, len(h.channelClients[pub.Channel]))
	for client := range h.channelClients[pub.Channel] {
		subs = append(subs, client)
	}
	h.mu.RUnlock()

	for _, client := range subs {
		client.enqueue(payload)
	}
}

// SubscriberCount reports how many connections hold a subscription on
// name; used by tests and diagnostics.
func (h *Hub) SubscriberCount(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channelClients[name])
}
