package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Hub pushes repository and stream change notifications to connected UI
// clients over websocket. It implements both chat.Notifier and
// stream.Observer.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket event feed.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/ws/events", h.handleEvents)
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[events] websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Printf("[events] client connected (%d total)", h.clientCount())

	// The feed is one-way; the read loop only detects disconnects.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) broadcast(eventType string, data interface{}) {
	msg := outgoingMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// SessionsChanged implements chat.Notifier.
func (h *Hub) SessionsChanged() {
	h.broadcast("sessionsChanged", nil)
}

// ActiveChanged implements chat.Notifier.
func (h *Hub) ActiveChanged(id string) {
	h.broadcast("activeChanged", map[string]string{"id": id})
}

// OnFragment implements stream.Observer.
func (h *Hub) OnFragment(content string) {
	h.broadcast("fragment", map[string]string{"content": content})
}

// OnComplete implements stream.Observer.
func (h *Hub) OnComplete(content string) {
	h.broadcast("complete", map[string]string{"content": content})
}

// OnCancelled implements stream.Observer.
func (h *Hub) OnCancelled(partial string) {
	h.broadcast("cancelled", map[string]string{"content": partial})
}
