package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/welfare/internal/auth"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, sessionID int64) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastSkipsOrigin(t *testing.T) {
	hub := NewHub(slog.Default())

	origin := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(origin)
	hub.Register(other)

	hub.Broadcast(NewMessage("member", "removed", "abc"), 1)

	select {
	case data := <-other.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "member_removed" || got.Entity != "member" || got.ID != "abc" {
			t.Errorf("message = %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}

	select {
	case <-origin.send:
		t.Error("origin session must not receive its own change")
	default:
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewMessage("member", "updated", "1"), 0)
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("member", "updated", "fill"), 0)
	}
	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("member", "updated", "dropped"), 0)

	count := 0
	for len(c.send) > 0 {
		<-c.send
		count++
	}
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestDisconnect(t *testing.T) {
	hub := NewHub(slog.Default())
	a1 := mockClient(hub, 1)
	a2 := mockClient(hub, 1)
	b := mockClient(hub, 2)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)

	hub.Disconnect(1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
	if _, ok := <-a1.send; ok {
		t.Error("send channel of disconnected client should be closed")
	}
	hub.Unregister(a1)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c := mockClient(hub, id)
			hub.Register(c)
			hub.Broadcast(NewMessage("member", "removed", "x"), id)
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocketRequiresSession(t *testing.T) {
	hub := NewHub(slog.Default())
	rec := httptest.NewRecorder()
	HandleWebSocket(hub, slog.Default())(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleWebSocketDelivers(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{SessionID: 5})
		h(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	hub.Broadcast(NewMessage("member", "updated", "m1"), 9)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "member_updated" || got.ID != "m1" {
		t.Errorf("message = %+v", got)
	}
}

func TestDisconnectClosesWithSessionEnded(t *testing.T) {
	hub := NewHub(slog.Default())
	h := HandleWebSocket(hub, slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{SessionID: 5})
		h(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	hub.Disconnect(5)

	_, _, err = conn.Read(ctx)
	if got := ws.CloseStatus(err); got != StatusSessionEnded {
		t.Errorf("close status = %v, want %v (err %v)", got, StatusSessionEnded, err)
	}
}
