package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/internal/model"
)

// Client represents a WebSocket client. Send is never closed; the hub
// closes done when it drops the client.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte

	done chan struct{}
	once sync.Once
}

// NewClient creates a client for conn
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

// Done is closed once the hub has dropped the client
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// trySend queues msg unless the client is gone or its buffer is full
func (c *Client) trySend(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// Hub fans presenter views and notices out to every connected browser
type Hub struct {
	clients map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Broadcast messages to all clients
	broadcast chan []byte

	// last view message, replayed to clients on connect
	last []byte

	// closed when Run returns
	done chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			last := h.last
			h.mu.Unlock()
			if last != nil {
				client.trySend(last)
			}
			h.logger.Debug().Int("clients", h.Count()).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Debug().Int("clients", h.Count()).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(msg) {
					// slow client
					client.close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastView sends a presenter snapshot to all clients
func (h *Hub) BroadcastView(v model.View) {
	data, err := json.Marshal(model.WSViewMessage{Type: model.WSMessageTypeView, View: v})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal view message")
		return
	}

	h.mu.Lock()
	h.last = data
	h.mu.Unlock()

	h.send(data)
}

// Notify sends a user-facing notice to all clients
func (h *Hub) Notify(message string) {
	data, err := json.Marshal(model.WSNoticeMessage{Type: model.WSMessageTypeNotice, Message: message})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal notice message")
		return
	}
	h.send(data)
}

func (h *Hub) send(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Msg("broadcast queue full, dropping message")
	}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn) {
	client := NewClient(c)

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-client.done:
				_ = c.WriteMessage(websocket.CloseMessage, []byte{})
				return

			case message := <-client.Send:
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("websocket error")
			}
			break
		}
		h.handleMessage(client, message)
	}
}

// handleMessage answers a client message; only ping is understood
func (h *Hub) handleMessage(client *Client, message []byte) {
	var msg model.WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if msg.Type == model.WSMessageTypePing {
		pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
		client.trySend(pong)
	}
}
