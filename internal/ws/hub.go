package ws

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/metrics"
	"github.com/hamed0406/pingmonitor/internal/session"
)

var _ session.Subscriber = (*Client)(nil)

// Hub tracks live websocket clients. Sessions started over HTTP take a
// snapshot of the hub as their subscriber set.
type Hub struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool

	seq     atomic.Uint64
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub builds a hub. An empty origin list accepts any Origin header.
func NewHub(logger *zap.Logger, m *metrics.Metrics, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:         logger,
		metrics:        m,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		clients:        make(map[*Client]bool),
	}
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		h.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			h.allowedHosts[parsed.Host] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws_upgrade_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c := h.Register(conn)
	h.logger.Info("ws_connected", zap.String("client", c.ID()), zap.String("remote", r.RemoteAddr))
	c.OnClose(func() {
		h.logger.Info("ws_disconnected", zap.String("client", c.ID()), zap.String("remote", r.RemoteAddr))
	})
	go c.readPump()
}

// Register adopts conn and starts its writer.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := newClient("ws-"+strconv.FormatUint(h.seq.Add(1), 10), conn, h)

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)

	go c.writePump()
	return c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)
}

// Snapshot returns the clients connected right now.
func (h *Hub) Snapshot() []session.Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]session.Subscriber, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client after its queued messages are written.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 || h.allowedOrigins["*"] {
		return true
	}
	if h.allowedOrigins[origin] {
		return true
	}
	if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
		return h.allowedHosts[parsed.Host]
	}
	return false
}
