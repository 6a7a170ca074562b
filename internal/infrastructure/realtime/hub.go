// Package realtime pushes post change events to connected websocket
// listeners.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/pkg/metrics"
)

// Channel is the name every post event is sent under.
const Channel = "posts"

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type envelope struct {
	Channel string `json:"channel"`
	Action  string `json:"action"`
	Post    any    `json:"post"`
}

// Encode renders event as the frame sent to listeners.
func Encode(event domain.PostEvent) ([]byte, error) {
	b, err := json.Marshal(envelope{Channel: Channel, Action: event.Action, Post: event.Post})
	if err != nil {
		return nil, fmt.Errorf("encode post event: %w", err)
	}
	return b, nil
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected listeners and delivers every frame to all
// of them. A listener whose buffer is full misses the frame.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub returns an empty Hub. All origins are accepted.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log.With().Str("component", "realtime_hub").Logger(),
		clients: make(map[*client]struct{}),
	}
}

// Publish encodes event and delivers it to local listeners.
func (h *Hub) Publish(_ context.Context, event domain.PostEvent) error {
	frame, err := Encode(event)
	if err != nil {
		return err
	}
	h.Deliver(frame)
	return nil
}

// Deliver hands an encoded frame to every listener without blocking.
func (h *Hub) Deliver(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			metrics.EventsDroppedTotal.Inc()
		}
	}
}

// Len reports the number of connected listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle upgrades the request and keeps the connection registered until the
// peer goes away.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(cl)

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Close disconnects every listener.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ListenersConnected.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.ListenersConnected.Dec()
	}
	h.mu.Unlock()
}

// readPump discards inbound frames; it exists to process control frames and
// notice when the peer disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("listener read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
