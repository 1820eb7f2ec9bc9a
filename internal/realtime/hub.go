package realtime

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// PairKey names the room shared by two users. It depends only on the two
// ids, so both sides always derive the same key.
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("pair:%d:%d", a, b)
}

type Message struct {
	Type string      `json:"type"`
	Room string      `json:"room,omitempty"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks one live connection per user.
type Hub struct {
	connections map[int64]*client
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]*client),
	}
}

func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if old, exists := h.connections[userID]; exists && old.conn != conn {
		_ = old.conn.Close()
	}
	h.connections[userID] = &client{conn: conn}
}

// Unregister drops conn if it is still the user's current connection.
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if c, exists := h.connections[userID]; exists && c.conn == conn {
		_ = c.conn.Close()
		delete(h.connections, userID)
	}
}

func (h *Hub) SendToUser(userID int64, msg Message) bool {
	h.mutex.RLock()
	c, exists := h.connections[userID]
	h.mutex.RUnlock()

	if !exists {
		return false
	}
	if err := c.write(msg); err != nil {
		h.Unregister(userID, c.conn)
		return false
	}
	return true
}

// SendToPair delivers msg to both users on their shared room key.
func (h *Hub) SendToPair(a, b int64, msg Message) int {
	msg.Room = PairKey(a, b)
	sent := 0
	for _, id := range []int64{a, b} {
		if h.SendToUser(id, msg) {
			sent++
		}
	}
	return sent
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.connections[userID]
	return exists
}

func (h *Hub) OnlineCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for userID, c := range h.connections {
		_ = c.conn.Close()
		delete(h.connections, userID)
	}
}
