// Package stream pushes committed ledger events to connected websocket
// clients. Each user sees their own transactions; admins see all of them.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// client owns one connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{conn: conn, send: make(chan []byte, buffer), done: make(chan struct{})}
}

// enqueue hands payload to the writer without blocking. It reports false when
// the client is closed or its buffer is full.
func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	defer c.close()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debugf("stream: write failed: %v", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

type Hub struct {
	mu     sync.RWMutex
	users  map[string]map[*client]bool
	admins map[*client]bool

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		users:  make(map[string]map[*client]bool),
		admins: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) register(userID string, admin bool, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if admin {
		h.admins[c] = true
		return
	}
	if h.users[userID] == nil {
		h.users[userID] = make(map[*client]bool)
	}
	h.users[userID][c] = true
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.admins, c)
	if set, ok := h.users[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, userID)
		}
	}
}

// recipients returns the owner's connections plus every admin connection.
func (h *Hub) recipients(userID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.users[userID])+len(h.admins))
	for c := range h.users[userID] {
		out = append(out, c)
	}
	for c := range h.admins {
		out = append(out, c)
	}
	return out
}

func (h *Hub) publish(userID string, evt wsEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Errorf("stream: encode %s: %v", evt.Type, err)
		return
	}
	for _, c := range h.recipients(userID) {
		if !c.enqueue(payload) {
			logger.Debugf("stream: dropping slow or closed client of %s", userID)
			h.unregister(userID, c)
			c.close()
		}
	}
}

// Notify implements wallet.Notifier. It never waits on a socket.
func (h *Hub) Notify(_ context.Context, evt wallet.Event) {
	h.publish(evt.Transaction.UserID, wsEvent{
		Type: "transaction_updated",
		Data: echo.Map{
			"event":         evt.Kind,
			"transaction":   evt.Transaction,
			"walletBalance": evt.Account.WalletBalance,
		},
	})
}

// Connected reports how many sockets are open, admins included.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.admins)
	for _, set := range h.users {
		n += len(set)
	}
	return n
}

// ServeWS - GET /ws, upgrades and streams events for the caller
func (h *Hub) ServeWS(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	admin := wallet.Role(role) == wallet.RoleAdmin

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := newClient(ws, sendBuffer)
	h.register(userID, admin, cl)
	go cl.writePump()
	defer func() {
		h.unregister(userID, cl)
		cl.close()
	}()

	hello, _ := json.Marshal(wsEvent{Type: "hello", Data: echo.Map{"user_id": userID, "admin": admin}})
	if !cl.enqueue(hello) {
		return nil
	}

	// Read loop (discard client messages; protocol is server push)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}
