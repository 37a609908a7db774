package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// newServer routes /ws through a stub auth that trusts ?user= and ?role=.
func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.GET("/ws", hub.ServeWS, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", c.QueryParam("user"))
			c.Set("role", c.QueryParam("role"))
			return next(c)
		}
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var evt wsEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		t.Fatal(err)
	}
	return evt
}

func waitConnected(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected() != n {
		if time.Now().After(deadline) {
			t.Fatalf("connected = %d, want %d", hub.Connected(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotifyReachesOwnerAndAdmins(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	owner := dial(t, srv, "user=u1&role=user")
	other := dial(t, srv, "user=u2&role=user")
	admin := dial(t, srv, "user=a1&role=admin")
	for _, c := range []*websocket.Conn{owner, other, admin} {
		if evt := readEvent(t, c); evt.Type != "hello" {
			t.Fatalf("first event = %s", evt.Type)
		}
	}
	waitConnected(t, hub, 3)

	hub.Notify(context.Background(), wallet.Event{
		Kind:        wallet.EventCompleted,
		Transaction: wallet.Transaction{ID: "t1", UserID: "u1", Status: wallet.StatusCompleted},
		Account:     wallet.Account{ID: "u1", WalletBalance: decimal.NewFromInt(50)},
	})

	for name, c := range map[string]*websocket.Conn{"owner": owner, "admin": admin} {
		evt := readEvent(t, c)
		if evt.Type != "transaction_updated" {
			t.Fatalf("%s got %s", name, evt.Type)
		}
		data, _ := evt.Data.(map[string]interface{})
		if data["event"] != string(wallet.EventCompleted) {
			t.Fatalf("%s data = %v", name, data)
		}
	}

	_ = other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("unrelated user received an event")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	conn := dial(t, srv, "user=u1&role=user")
	readEvent(t, conn)
	waitConnected(t, hub, 1)

	conn.Close()
	waitConnected(t, hub, 0)
}

func TestServeWSRequiresUser(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("resp = %v", resp)
	}
}

// stalledClient registers a connection for u1 whose writer never runs.
func stalledClient(t *testing.T, hub *Hub) *client {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)
	dial(t, srv, "")

	cl := newClient(<-conns, 1)
	hub.register("u1", false, cl)
	return cl
}

func TestNotifyDropsStalledClient(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub)

	healthy := dial(t, srv, "user=u1&role=user")
	readEvent(t, healthy)
	waitConnected(t, hub, 1)

	stalled := stalledClient(t, hub)
	waitConnected(t, hub, 2)

	evt := wallet.Event{
		Kind:        wallet.EventCreated,
		Transaction: wallet.Transaction{ID: "t1", UserID: "u1", Status: wallet.StatusPending},
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			hub.Notify(context.Background(), evt)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a stalled client")
	}

	waitConnected(t, hub, 1)
	select {
	case <-stalled.done:
	default:
		t.Fatal("stalled client was not closed")
	}
	for i := 0; i < 3; i++ {
		if got := readEvent(t, healthy); got.Type != "transaction_updated" {
			t.Fatalf("event %d = %s", i, got.Type)
		}
	}
}
