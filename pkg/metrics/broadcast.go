package metrics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/flowforge/dagmanager/pkg/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broadcaster relays every event on an Emitter to connected websocket
// clients, for an external live dashboard. It is optional: nothing in
// the core depends on it.
type Broadcaster struct {
	emitter *Emitter
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewBroadcaster wires a Broadcaster to emitter. Call Run in its own
// goroutine to start relaying, and ServeHTTP as the handler for the
// websocket upgrade endpoint.
func NewBroadcaster(emitter *Emitter) *Broadcaster {
	return &Broadcaster{
		emitter: emitter,
		logger:  slog.Default(),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it as a client.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()

	go b.readLoop(conn)
}

// readLoop drains and discards client frames purely to detect
// disconnects promptly, then deregisters the connection.
func (b *Broadcaster) readLoop(conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run relays events from the emitter to every connected client until
// stop is closed.
func (b *Broadcaster) Run(stop <-chan struct{}) {
	ch := b.emitter.Subscribe()
	defer b.emitter.Unsubscribe(ch)

	for {
		select {
		case <-stop:
			return
		case ev := <-ch:
			b.broadcast(ev)
		}
	}
}

func (b *Broadcaster) broadcast(ev core.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("failed to marshal event for broadcast", "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(b.clients, conn)
		}
	}
}
