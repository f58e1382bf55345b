package handlers

import (
	"encoding/json"
	"sync"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const outboxSize = 256

// client is one websocket connection. roomID is guarded by the hub's lock.
type client struct {
	userID uuid.UUID
	roomID uuid.UUID
	out    chan []byte
	cancel func()
}

// Hub fans events out to connected clients. It implements flow.Emitter.
type Hub struct {
	log *logrus.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{log: logger, clients: make(map[*client]struct{})}
}

func (h *Hub) register(userID uuid.UUID, cancel func()) *client {
	c := &client{userID: userID, out: make(chan []byte, outboxSize), cancel: cancel}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// attach subscribes c to roomID. uuid.Nil detaches it.
func (h *Hub) attach(c *client, roomID uuid.UUID) {
	h.mu.Lock()
	c.roomID = roomID
	h.mu.Unlock()
}

func (h *Hub) room(c *client) uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.roomID
}

// detachUser detaches every connection of userID from roomID.
func (h *Hub) detachUser(userID, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.userID == userID && c.roomID == roomID {
			c.roomID = uuid.Nil
		}
	}
}

// EmitRoom sends ev to every connection attached to roomID. game_state
// payloads are redacted per viewer. room_destroyed detaches the room's
// connections after delivery.
func (h *Hub) EmitRoom(roomID uuid.UUID, ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	encoded := make(map[uuid.UUID][]byte)
	for c := range h.clients {
		if c.roomID != roomID {
			continue
		}
		data, ok := encoded[c.userID]
		if !ok {
			data = h.encode(c.userID, ev)
			encoded[c.userID] = data
		}
		h.deliver(c, data)
		if ev.Type == models.EventRoomDestroyed {
			c.roomID = uuid.Nil
		}
	}
}

// EmitPlayer sends ev to every connection of playerID.
func (h *Hub) EmitPlayer(playerID uuid.UUID, ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var data []byte
	for c := range h.clients {
		if c.userID != playerID {
			continue
		}
		if data == nil {
			data = h.encode(playerID, ev)
		}
		h.deliver(c, data)
	}
}

// Broadcast sends ev to every connection, in a room or not.
func (h *Hub) Broadcast(ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var data []byte
	for c := range h.clients {
		if data == nil {
			data = h.encode(uuid.Nil, ev)
		}
		h.deliver(c, data)
	}
}

func (h *Hub) send(c *client, ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(c, h.encode(c.userID, ev))
}

func (h *Hub) encode(viewer uuid.UUID, ev models.Event) []byte {
	if g, ok := ev.Payload.(*models.Game); ok && g != nil {
		ev.Payload = g.RedactFor(viewer)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("type", ev.Type).Error("failed to marshal event")
		return nil
	}
	return data
}

// deliver never blocks. A client whose outbox is full is too slow to keep
// up with the table and gets disconnected.
func (h *Hub) deliver(c *client, data []byte) {
	if data == nil {
		return
	}
	select {
	case c.out <- data:
	default:
		h.log.WithField("user", c.userID).Warn("client outbox full, dropping connection")
		if c.cancel != nil {
			c.cancel()
		}
	}
}
