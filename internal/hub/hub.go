package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single client connection (one socket of a user).
// The socket write pump drains it.
type Client chan []byte

// clientBuffer is how many undelivered frames a client may queue before new
// ones are dropped.
const clientBuffer = 32

// Bridge carries encoded events between processes. Every process subscribed to
// the bridge delivers envelopes to its own clients.
type Bridge interface {
	Publish(ctx context.Context, env Envelope) error
}

// Envelope is an encoded event addressed to one user, or to everyone when
// UserID is zero.
type Envelope struct {
	UserID uint            `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// Hub manages the rooms of connected users. Each user has one room holding all
// of their clients.
type Hub struct {
	rooms      map[uint]map[Client]bool
	mu         sync.RWMutex
	bridge     Bridge
	onPresence func(userID uint, online bool)
	log        *logrus.Logger
}

// NewHub creates a new Hub.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		rooms: make(map[uint]map[Client]bool),
		log:   log,
	}
}

// SetBridge routes SendToUser and Broadcast through b. Must be called before
// clients connect.
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

// OnPresence registers fn to run when a user's first client connects or last
// client leaves. fn runs outside the hub lock.
func (h *Hub) OnPresence(fn func(userID uint, online bool)) {
	h.onPresence = fn
}

// Subscribe adds a new client to the user's room.
func (h *Hub) Subscribe(userID uint) Client {
	client := make(Client, clientBuffer)

	h.mu.Lock()
	clients, ok := h.rooms[userID]
	if !ok {
		clients = make(map[Client]bool)
		h.rooms[userID] = clients
	}
	clients[client] = true
	first := len(clients) == 1
	h.mu.Unlock()

	if first && h.onPresence != nil {
		h.onPresence(userID, true)
	}
	return client
}

// Unsubscribe removes a client from the user's room and closes it.
func (h *Hub) Unsubscribe(userID uint, client Client) {
	h.mu.Lock()
	last := false
	if clients, ok := h.rooms[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client) // Close the channel to signal the write pump to stop.
			if len(clients) == 0 {
				delete(h.rooms, userID)
				last = true
			}
		}
	}
	h.mu.Unlock()

	if last && h.onPresence != nil {
		h.onPresence(userID, false)
	}
}

// SendToUser delivers an event to every client of the user, on this process or,
// with a bridge, on any process.
func (h *Hub) SendToUser(userID uint, event Event) {
	h.dispatch(userID, event)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	h.dispatch(0, event)
}

func (h *Hub) dispatch(userID uint, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).WithField("type", event.Type).Error("hub: failed to encode event")
		return
	}

	if h.bridge != nil {
		err := h.bridge.Publish(context.Background(), Envelope{UserID: userID, Data: data})
		if err == nil {
			return
		}
		h.log.WithError(err).Warn("hub: bridge publish failed, delivering locally")
	}
	h.Deliver(Envelope{UserID: userID, Data: data})
}

// Deliver writes an encoded envelope to the matching local clients.
func (h *Hub) Deliver(env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if env.UserID == 0 {
		for _, clients := range h.rooms {
			send(clients, env.Data)
		}
		return
	}
	if clients, ok := h.rooms[env.UserID]; ok {
		send(clients, env.Data)
	}
}

func send(clients map[Client]bool, data []byte) {
	for client := range clients {
		// Use a non-blocking send to prevent a slow client from blocking the hub.
		select {
		case client <- data:
		default:
		}
	}
}

// IsOnline reports whether the user has at least one local client.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[userID]
	return ok
}

// Online lists the connected user ids in ascending order.
func (h *Hub) Online() []uint {
	h.mu.RLock()
	ids := make([]uint, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
