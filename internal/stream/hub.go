// Package stream pushes simulation snapshots to browser clients over websockets.
package stream

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/strategy-sim/internal/simulation"
)

// Message types
const (
	MessageInitial = "INITIAL"
	MessageUpdate  = "UPDATE"
)

// Message is the JSON frame sent to clients
type Message struct {
	Type     string              `json:"type"`
	Snapshot simulation.Snapshot `json:"snapshot"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans job snapshots out to connected clients. A client that cannot keep
// up is disconnected rather than allowed to block the hub.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan simulation.Snapshot
	clients    map[*Client]struct{}
	done       chan struct{}
	logger     *logrus.Entry

	stateMu sync.RWMutex
	latest  *simulation.Snapshot
	count   int
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan simulation.Snapshot, 256),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
		logger:     log.WithField("component", "stream"),
	}
}

// Run is the hub loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.setCount(0)
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			// Send current state on connect
			if latest := h.Latest(); latest != nil {
				client.send <- Message{Type: MessageInitial, Snapshot: *latest}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
			}

		case snap := <-h.broadcast:
			msg := Message{Type: MessageUpdate, Snapshot: snap}
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Client too slow, disconnect
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Publish records snap as the latest state and queues it for broadcast.
// It is suitable as a simulation.Client observer.
func (h *Hub) Publish(snap simulation.Snapshot) {
	h.stateMu.Lock()
	h.latest = &snap
	h.stateMu.Unlock()

	select {
	case h.broadcast <- snap:
	default:
		h.logger.Warn("Broadcast queue full, dropping snapshot")
	}
}

// Latest returns the most recently published snapshot
func (h *Hub) Latest() *simulation.Snapshot {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.stateMu.Lock()
	h.count = n
	h.stateMu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade websocket")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		// Buffered channel to prevent blocking the hub loop
		send: make(chan Message, 64),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
