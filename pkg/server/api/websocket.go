package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
	"github.com/TejasMate/Quantra-sub003/pkg/server/engine"
)

// EventHub streams engine events to WebSocket clients. It implements engine.EventSink.
type EventHub struct {
	addr     string
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*EventClient]bool

	updates chan engine.SecurityEvent

	ctx    context.Context
	cancel context.CancelFunc
}

var _ engine.EventSink = (*EventHub)(nil)

// EventClient is a connected WebSocket client.
type EventClient struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *EventHub
	subscribedAll  bool
	subscribedKeys map[string]bool
	mu             sync.RWMutex
}

// ClientMessage is a message sent by a client.
type ClientMessage struct {
	Type   string   `json:"type"`   // "subscribe", "unsubscribe", "ping"
	Assets []string `json:"assets"` // empty or ["*"] means all assets
}

// EventMessage is sent to clients for every engine event.
type EventMessage struct {
	Type  string               `json:"type"` // "security_event"
	Event engine.SecurityEvent `json:"event"`
}

// NewEventHub creates a new event hub.
func NewEventHub(addr string, logger *logging.Logger) *EventHub {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &EventHub{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*EventClient]bool),
		updates: make(chan engine.SecurityEvent, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler returns the upgrade handler.
func (h *EventHub) Handler() http.Handler {
	return http.HandlerFunc(h.handleWebSocket)
}

// Start serves /ws on the hub address until Stop is called.
func (h *EventHub) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.Handler())

	server := &http.Server{
		Addr:              h.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go h.broadcastUpdates()

	h.logger.Info("Starting WebSocket server", "addr", h.addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("WebSocket server error", "error", err)
		}
	}()

	<-h.ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Stop stops the hub.
func (h *EventHub) Stop() {
	h.cancel()
}

// Publish queues an event for broadcast. It never blocks; events are dropped
// when the queue is full.
func (h *EventHub) Publish(event engine.SecurityEvent) {
	select {
	case h.updates <- event:
	default:
		h.logger.Warn("Event queue full, dropping event", "kind", event.Kind, "asset", event.Asset)
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &EventClient{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            h,
		subscribedAll:  true,
		subscribedKeys: make(map[string]bool),
	}

	h.registerClient(client)

	go client.writePump()
	go client.readPump()

	h.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr().String())
}

func (h *EventHub) registerClient(client *EventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *EventHub) unregisterClient(client *EventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *EventHub) broadcastUpdates() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case event := <-h.updates:
			h.broadcast(event)
		}
	}
}

func (h *EventHub) broadcast(event engine.SecurityEvent) {
	data, err := json.Marshal(EventMessage{Type: "security_event", Event: event})
	if err != nil {
		h.logger.Error("Failed to marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.shouldReceive(event) {
			select {
			case client.send <- data:
			default:
				h.logger.Warn("Client send buffer full, skipping event")
			}
		}
	}
}

func (c *EventClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *EventClient) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *EventClient) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subscribe(msg.Assets)
	case "unsubscribe":
		c.unsubscribe(msg.Assets)
	case "ping":
		c.sendPong()
	default:
		c.hub.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

func (c *EventClient) subscribe(assets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(assets) == 0 || (len(assets) == 1 && assets[0] == "*") {
		c.subscribedAll = true
		c.subscribedKeys = make(map[string]bool)
	} else {
		c.subscribedAll = false
		for _, asset := range assets {
			c.subscribedKeys[asset] = true
		}
	}

	c.hub.logger.Debug("Client subscribed", "assets", assets)
}

func (c *EventClient) unsubscribe(assets []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(assets) == 0 || (len(assets) == 1 && assets[0] == "*") {
		c.subscribedAll = false
		c.subscribedKeys = make(map[string]bool)
	} else {
		for _, asset := range assets {
			delete(c.subscribedKeys, asset)
		}
	}

	c.hub.logger.Debug("Client unsubscribed", "assets", assets)
}

// shouldReceive reports whether the event matches the client's subscription.
// Engine-wide events (no asset) go to every subscribed client.
func (c *EventClient) shouldReceive(event engine.SecurityEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subscribedAll {
		return true
	}
	if event.Asset == "" {
		return len(c.subscribedKeys) > 0
	}
	return c.subscribedKeys[event.Asset]
}

func (c *EventClient) sendPong() {
	data, _ := json.Marshal(map[string]string{"type": "pong"})
	select {
	case c.send <- data:
	default:
	}
}
