package events

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write
	writeWait = 5 * time.Second
	// sendBufferSize is how many events a subscriber may fall behind
	// before it is dropped
	sendBufferSize = 16
)

// Event is one gateway happening pushed to connected ops clients
type Event struct {
	Type      string            `json:"type"`
	Channel   string            `json:"channel,omitempty"`
	Identity  string            `json:"identity,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// subscriber is one websocket client. All frame writes go through the
// send channel and a single writer goroutine, keeping Broadcast
// non-blocking and the connection single-writer.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
}

// Hub fans gateway events out to websocket subscribers. Slow or dead
// connections are dropped, never waited on: Broadcast hands each
// subscriber the event through a bounded buffer and a full buffer
// evicts the subscriber.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{
		conn: conn,
		send: make(chan Event, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[s] = true
	h.mu.Unlock()

	go h.writeLoop(s)

	// the read loop only exists to notice the close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(s)
				return
			}
		}
	}()
}

// writeLoop is the only goroutine that writes frames to the connection
func (h *Hub) writeLoop(s *subscriber) {
	for {
		select {
		case ev := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				h.drop(s)
				return
			}
		case <-s.done:
			return
		}
	}
}

// Broadcast pushes an event to every subscriber without waiting on any
// of them. A subscriber whose buffer is full has stopped reading and is
// dropped.
func (h *Hub) Broadcast(ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.send <- ev:
		default:
			h.logger.Warn("Dropping subscriber that stopped reading")
			h.drop(s)
		}
	}
}

// Subscribers returns the number of connected clients
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// drop deregisters the subscriber, stops its writer and closes the
// connection. Idempotent: the read loop, write loop and Broadcast can
// all race to it.
func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	if !h.subs[s] {
		h.mu.Unlock()
		return
	}
	delete(h.subs, s)
	h.mu.Unlock()

	close(s.done)
	s.conn.Close()
}
