package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/skyhigh-crash/game"
	"github.com/Ashenafi-pixel/skyhigh-crash/round"
)

const writeWait = 2 * time.Second

// ClientMsg is what a websocket client may send.
type ClientMsg struct {
	Type string `json:"type"`
}

// hello is the first frame a client receives.
type hello struct {
	Type  string         `json:"type"`
	Round round.Snapshot `json:"round"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(b)
}

func (c *client) writeLocked(b []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub pushes every session event to all connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	session  *game.Session
	log      *zap.Logger
	onCount  func(n int)

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a hub. onCount, if set, sees the client count after every
// connect and disconnect.
func NewHub(session *game.Session, allowOrigin func(r *http.Request) bool, log *zap.Logger, onCount func(n int)) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if onCount == nil {
		onCount = func(int) {}
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		session:  session,
		log:      log,
		onCount:  onCount,
		clients:  make(map[*client]struct{}),
	}
}

// register adds c to the broadcast set and then sends it the hello frame.
// The client's write lock is held across both, so a broadcast racing the
// connect lands after hello instead of being missed.
func (h *Hub) register(c *client) error {
	c.mu.Lock()
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	b, _ := json.Marshal(hello{Type: "hello", Round: h.session.Snapshot()})
	err := c.writeLocked(b)
	c.mu.Unlock()
	h.onCount(n)
	return err
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.onCount(n)
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the connection, sends the current snapshot and then
// answers pings until the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	defer h.remove(c)
	if err := h.register(c); err != nil {
		return
	}

	pong, _ := json.Marshal(map[string]string{"type": "pong"})
	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "ping" {
			if err := c.write(pong); err != nil {
				break
			}
		}
	}
}

// Broadcast sends ev to every client. Clients that fail the write are
// dropped.
func (h *Hub) Broadcast(ev game.Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("ws encode failed", zap.Error(err))
		return
	}
	for _, c := range clients {
		if err := c.write(b); err != nil {
			_ = c.conn.Close()
		}
	}
}

// Run broadcasts events until ctx is done or events is closed.
func (h *Hub) Run(ctx context.Context, events <-chan game.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(ev)
		}
	}
}
