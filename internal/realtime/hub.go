package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/givehub/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60

	// RoomAll receives every donation event regardless of program.
	RoomAll = "all"

	// EventDonationCreated is pushed when a donation commits.
	EventDonationCreated = "donation_created"
)

// DonationEvent is the payload pushed to feed subscribers. Anonymous donors
// are already masked; the raw donor identity never leaves the server.
type DonationEvent struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"program_id"`
	DonorName   string    `json:"donor_name"`
	DonorAvatar string    `json:"donor_avatar,omitempty"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Publisher publishes a room event to Redis for cross-instance broadcast.
type Publisher interface {
	PublishRoomEvent(room, event string, payload []byte) error
}

// Subscriber subscribes to a room's Redis channel and invokes handler for
// incoming events.
type Subscriber interface {
	SubscribeRoom(room string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains room -> set of connections and broadcasts donation events.
// Rooms are program IDs plus RoomAll. Uses Redis pub/sub for horizontal
// scaling: events are published to Redis and the subscription callback
// performs the local broadcast, so every instance (including the publisher)
// delivers exactly once.
type Hub struct {
	rooms  map[string]map[string]*Client
	subs   map[string]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for
// single-instance deployments; events then broadcast locally only.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its rooms. Starts a Redis subscription for each
// room when its first client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	for _, room := range c.Rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[string]*Client)
			if h.sub != nil {
				room := room
				cancel, err := h.sub.SubscribeRoom(room, func(event string, payload []byte) {
					h.broadcast(room, event, json.RawMessage(payload))
				})
				if err != nil {
					h.logger.Warn("room subscription failed", zap.Error(err), zap.String("room", room))
				} else {
					h.subs[room] = cancel
				}
			}
		}
		h.rooms[room][c.ID] = c
	}
	h.mu.Unlock()
	h.logger.Debug("feed client joined", zap.String("client_id", c.ID), zap.Strings("rooms", c.Rooms))
}

// Unregister removes a client from its rooms. Cancels the Redis subscription
// when a room's last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for _, room := range c.Rooms {
		if m, ok := h.rooms[room]; ok {
			delete(m, c.ID)
			if len(m) == 0 {
				delete(h.rooms, room)
				if cancel, ok := h.subs[room]; ok {
					cancel()
					delete(h.subs, room)
				}
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("feed client left", zap.String("client_id", c.ID), zap.Strings("rooms", c.Rooms))
}

// DonationCreated pushes a committed donation to its program room and the
// global room.
func (h *Hub) DonationCreated(d *models.Donation) {
	ev := DonationEvent{
		ID:        d.ID.Hex(),
		ProgramID: d.ProgramID.Hex(),
		DonorName: d.DisplayName(),
		Amount:    d.Amount,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt,
	}
	if !d.IsAnonymous {
		ev.DonorAvatar = d.DonorAvatar
	}
	h.publish(d.ProgramID.Hex(), EventDonationCreated, ev)
	h.publish(RoomAll, EventDonationCreated, ev)
}

// SubscriberCount returns the number of connected clients in a room.
func (h *Hub) SubscriberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// publish sends via Redis when configured so the subscription callback
// broadcasts once per instance; otherwise it broadcasts locally.
func (h *Hub) publish(room, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.pub != nil {
		if err := h.pub.PublishRoomEvent(room, event, data); err == nil {
			return
		}
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("room", room))
	}
	h.broadcast(room, event, json.RawMessage(data))
}

// broadcast sends a message to all local clients in a room.
func (h *Hub) broadcast(room, event string, payload json.RawMessage) {
	msg := WSMessage{Event: event, Data: payload}

	// Copy under the lock: Unregister mutates the room map concurrently and
	// iterating it unlocked is a fatal runtime error.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}
