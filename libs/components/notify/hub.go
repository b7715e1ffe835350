// Package notify pushes submission lifecycle events to websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/shared/logging"
	"github.com/matapang/platform/libs/shared/mq"
	"github.com/matapang/platform/libs/shared/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// ErrClosed is returned when publishing to a stopped hub.
var ErrClosed = errors.New("notify: hub closed")

// Event is a submission lifecycle event as delivered to clients.
type Event struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submissionId"`
	FormID       string    `json:"formId"`
	FormName     string    `json:"formName,omitempty"`
	Status       string    `json:"status"`
	Level        int       `json:"level,omitempty"`
	Decision     string    `json:"decision,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	At           time.Time `json:"at"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	formID string
}

// Hub fans events out to connected clients. All client bookkeeping happens
// on the Run goroutine.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}
	closeOnce  sync.Once
	connected  atomic.Int64

	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logging.OrNop(logger),
	}
}

// Run delivers events until ctx is cancelled or Close is called.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return ctx.Err()
		case <-h.done:
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.track()
		case c := <-h.unregister:
			h.drop(c)
		case e := <-h.broadcast:
			h.deliver(e)
		}
	}
}

// Close stops the hub and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Publish hands an event to the hub, waiting until Run accepts it.
func (h *Hub) Publish(ctx context.Context, e Event) error {
	select {
	case h.broadcast <- e:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast publishes without a deadline. Events sent after Close are dropped.
func (h *Hub) Broadcast(e Event) {
	_ = h.Publish(context.Background(), e)
}

// HandleMessage adapts a bus message into a broadcast. The event_type header
// fills in a missing type.
func (h *Hub) HandleMessage(ctx context.Context, msg mq.Message) error {
	var e Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return fmt.Errorf("notify: decode event: %w", err)
	}
	if e.Type == "" {
		e.Type = msg.Headers["event_type"]
	}
	if e.Type == "" {
		return errors.New("notify: event without type")
	}
	return h.Publish(ctx, e)
}

// Mount registers the websocket endpoint.
func (h *Hub) Mount(router chi.Router, path string) {
	if strings.TrimSpace(path) == "" {
		path = "/ws"
	}
	router.Get(path, h.ServeWS)
}

// ServeWS upgrades the request. A formId query parameter limits delivery to
// that form's events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		formID: strings.TrimSpace(r.URL.Query().Get("formId")),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		h.logger.Warn("notify: encode event", zap.Error(err))
		return
	}
	for c := range h.clients {
		if c.formID != "" && c.formID != e.FormID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("notify: dropping slow client")
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.track()
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.track()
}

func (h *Hub) track() {
	h.connected.Store(int64(len(h.clients)))
	observability.NotifyClients.Set(float64(len(h.clients)))
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards client frames and returns when the connection drops.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
