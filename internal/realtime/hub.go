package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// Hub tracks every live realtime client by connection handle and by room
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
	rooms   map[model.RoomID]map[model.ConnectionID]struct{}
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With(slog.String("component", "realtime")),
		clients: make(map[model.ConnectionID]*Client),
		rooms:   make(map[model.RoomID]map[model.ConnectionID]struct{}),
	}
}

// Register adds a client
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("realtime client registered",
		slog.String("connection", string(c.id)),
		slog.Int("total_clients", count))
}

// Unregister removes a client and closes its send queue. It reports whether
// the client was still registered.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	current, ok := h.clients[c.id]
	if !ok || current != c {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.id)
	for roomID, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	h.logger.Info("realtime client unregistered",
		slog.String("connection", string(c.id)),
		slog.Duration("connected_for", time.Since(c.connectedAt)),
		slog.Int("total_clients", count))
	return true
}

// SyncRoom replaces the set of connections that receive a room's broadcasts
func (h *Hub) SyncRoom(roomID model.RoomID, conns []model.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := make(map[model.ConnectionID]struct{}, len(conns))
	for _, conn := range conns {
		if _, ok := h.clients[conn]; ok {
			members[conn] = struct{}{}
		}
	}
	if len(members) == 0 {
		delete(h.rooms, roomID)
		return
	}
	h.rooms[roomID] = members
}

// LeaveRoom stops a connection receiving a room's broadcasts
func (h *Hub) LeaveRoom(roomID model.RoomID, conn model.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// DropRoom forgets a room entirely
func (h *Hub) DropRoom(roomID model.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

// Send queues a message for one connection. It reports whether the message
// was queued.
func (h *Hub) Send(conn model.ConnectionID, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[conn]
	if !ok {
		return false
	}
	return h.enqueueLocked(c, message)
}

// BroadcastRoom queues a message for every connection in a room
func (h *Hub) BroadcastRoom(roomID model.RoomID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[roomID] {
		if c, ok := h.clients[conn]; ok {
			h.enqueueLocked(c, message)
		}
	}
}

// BroadcastAll queues a message for every connection
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueueLocked(c, message)
	}
}

func (h *Hub) enqueueLocked(c *Client, message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		h.logger.Warn("realtime message dropped - client buffer full",
			slog.String("connection", string(c.id)))
		return false
	}
}

// RoomMembers returns the connections receiving a room's broadcasts
func (h *Hub) RoomMembers(roomID model.RoomID) []model.ConnectionID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.ConnectionID, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		out = append(out, conn)
	}
	return out
}

// IsConnected reports whether a connection is live
func (h *Hub) IsConnected(conn model.ConnectionID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[conn]
	return ok
}

// ClientCount returns the number of live clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[model.ConnectionID]*Client)
	h.rooms = make(map[model.RoomID]map[model.ConnectionID]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}
	h.logger.Info("realtime hub stopped", slog.Int("disconnected_clients", len(clients)))
}
