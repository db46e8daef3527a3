package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/metrics"
	"github.com/hamed0406/pingmonitor/internal/session"
)

func newTestHub(origins ...string) *Hub {
	return NewHub(zap.NewNop(), metrics.New(), origins)
}

// dialHub serves h and connects one client to it.
func dialHub(t *testing.T, h *Hub) (*httptest.Server, *websocket.Conn) {
	t.Helper()
	srv := httptest.NewServer(h)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	waitCount(t, h, 1)
	return srv, conn
}

// dialTestWS returns the server side of a fresh websocket connection that no
// hub owns yet.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = clientConn.Close() })

	select {
	case serverConn := <-connCh:
		return srv, serverConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil
	}
}

func waitCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub client count = %d, want %d", h.Count(), want)
}

func TestHub_SendDeliversJSON(t *testing.T) {
	h := newTestHub()
	srv, conn := dialHub(t, h)
	defer srv.Close()
	defer conn.Close()

	subs := h.Snapshot()
	if len(subs) != 1 {
		t.Fatalf("snapshot len = %d", len(subs))
	}
	if err := subs[0].Send(session.Info("Started monitoring example.com")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got session.Notice
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "info" || got.Message != "Started monitoring example.com" {
		t.Fatalf("unexpected frame %+v", got)
	}
}

func TestHub_PeerDisconnectRunsOnClose(t *testing.T) {
	h := newTestHub()
	srv, conn := dialHub(t, h)
	defer srv.Close()

	fired := make(chan struct{})
	h.Snapshot()[0].OnClose(func() { close(fired) })

	_ = conn.Close()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose callback not run after peer went away")
	}
	waitCount(t, h, 0)
}

func TestClient_SlowClientIsDisconnected(t *testing.T) {
	srv, serverConn := dialTestWS(t)
	defer srv.Close()

	h := newTestHub()
	// No writePump: the queue never drains.
	c := newClient("slow", serverConn, h)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	closed := make(chan struct{})
	c.OnClose(func() { close(closed) })

	for i := 0; i < sendBuffer; i++ {
		if err := c.Send(session.Info("x")); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := c.Send(session.Info("overflow")); !errors.Is(err, ErrSlowClient) {
		t.Fatalf("want ErrSlowClient, got %v", err)
	}
	select {
	case <-closed:
	default:
		t.Fatal("slow client should have been closed")
	}
	if h.Count() != 0 {
		t.Fatalf("slow client still registered")
	}
	if err := c.Send(session.Info("late")); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("want ErrClientClosed, got %v", err)
	}
	_ = serverConn.Close()
}

func TestClient_OnCloseAfterCloseRunsImmediately(t *testing.T) {
	srv, serverConn := dialTestWS(t)
	defer srv.Close()
	defer serverConn.Close()

	c := newClient("c", serverConn, nil)
	c.close()

	ran := false
	c.OnClose(func() { ran = true })
	if !ran {
		t.Fatal("OnClose on a closed client must run fn right away")
	}
}

func TestHub_CloseFlushesQueuedMessages(t *testing.T) {
	h := newTestHub()
	srv, conn := dialHub(t, h)
	defer srv.Close()
	defer conn.Close()

	sub := h.Snapshot()[0]
	if err := sub.Send(session.Finished()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	h.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got session.Notice
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("queued terminal event lost: %v", err)
	}
	if got != session.Finished() {
		t.Fatalf("unexpected frame %+v", got)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("want normal close, got %v", err)
	}
	waitCount(t, h, 0)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no header", []string{"https://ui.example"}, "", true},
		{"no allow list", nil, "https://evil.example", true},
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"exact", []string{"https://ui.example"}, "https://ui.example", true},
		{"same host other scheme", []string{"https://ui.example"}, "http://ui.example", true},
		{"rejected", []string{"https://ui.example"}, "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(tt.allowed...)
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := h.checkOrigin(r); got != tt.want {
				t.Fatalf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
