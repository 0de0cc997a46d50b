package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultBroadcastInterval paces the snapshot feed at about 15 messages a second.
const DefaultBroadcastInterval = 66 * time.Millisecond

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Hub fans the latest published value out to websocket clients. Publish is
// cheap and never blocks the caller; a ticker broadcasts the newest value
// when it has changed since the previous broadcast.
type Hub struct {
	interval time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]uint64 // last sequence sent to each client
	latest  any
	seq     uint64

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewHub creates a Hub and starts its broadcast loop. A non-positive interval
// uses DefaultBroadcastInterval.
func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	h := &Hub{
		interval: interval,
		clients:  make(map[*websocket.Conn]uint64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Publish replaces the value sent to clients.
func (h *Hub) Publish(v any) {
	h.mu.Lock()
	h.latest = v
	h.seq++
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests. A new client receives the
// latest value immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = 0
	if h.latest != nil {
		if msg, err := json.Marshal(h.latest); err == nil && send(conn, msg) == nil {
			h.clients[conn] = h.seq
		}
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close stops the broadcast loop and disconnects every client.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.stop)
		<-h.done

		h.mu.Lock()
		defer h.mu.Unlock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
	})
}

func (h *Hub) broadcast() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		h.mu.Lock()
		h.sendPendingLocked()
		h.mu.Unlock()
	}
}

func (h *Hub) sendPendingLocked() {
	if h.latest == nil {
		return
	}
	var msg []byte
	for conn, seen := range h.clients {
		if seen == h.seq {
			continue
		}
		if msg == nil {
			var err error
			if msg, err = json.Marshal(h.latest); err != nil {
				log.Printf("server: encode event: %v", err)
				return
			}
		}
		if err := send(conn, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
			continue
		}
		h.clients[conn] = h.seq
	}
}

func send(conn *websocket.Conn, msg []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
