package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zencontrol/zengateway/internal/infrastructure/config"
	"github.com/zencontrol/zengateway/internal/infrastructure/logging"
)

// Event channels clients can subscribe to. Device state changes and
// device events share the devices channel; the others carry controller
// status, scene activations, and discovery progress.
const (
	ChannelDevices     = "devices"
	ChannelControllers = "controllers"
	ChannelScenes      = "scenes"
	ChannelDiscovery   = "discovery"
)

// validChannel reports whether name is a known event channel.
func validChannel(name string) bool {
	switch name {
	case ChannelDevices, ChannelControllers, ChannelScenes, ChannelDiscovery:
		return true
	default:
		return false
	}
}

// Client protocol message types.
const (
	wsTypeSubscribe   = "subscribe"
	wsTypeUnsubscribe = "unsubscribe"
	wsTypePing        = "ping"
	wsTypePong        = "pong"
	wsTypeEvent       = "event"
	wsTypeAck         = "ack"
	wsTypeError       = "error"
)

// wsSendBufferSize is the per-client outbound buffer. A client that
// falls this many messages behind is disconnected rather than allowed
// to stall broadcasts.
const wsSendBufferSize = 256

// wsEnvelope is the wire format for every message in both directions.
// Client requests carry type and, for subscribe/unsubscribe, channels.
// Server events carry type "event", the channel, and a payload.
type wsEnvelope struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Channel   string   `json:"channel,omitempty"`
	Channels  []string `json:"channels,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Payload   any      `json:"payload,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Hub fans gateway events out to WebSocket clients by channel.
// The bridge, scene engine, and discovery manager all broadcast
// through it.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// NewHub creates a WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// Broadcast sends an event to every client subscribed to the channel.
// Clients whose send buffer is full are disconnected: a stalled reader
// must not force the gateway to queue unbounded state.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(wsEnvelope{
		Type:      wsTypeEvent,
		Channel:   channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling websocket event", "channel", channel, "error", err)
		return
	}

	// Snapshot under the read lock; sends happen outside it so a slow
	// disconnect cannot block registration.
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.subscribed(channel) {
			continue
		}
		if !client.enqueue(data) {
			h.logger.Warn("disconnecting slow websocket client", "channel", channel)
			h.remove(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// add registers a client.
func (h *Hub) add(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// remove deregisters a client and tears its connection down. Safe to
// call from both the read pump and Broadcast; only the first caller
// closes the connection.
func (h *Hub) remove(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	client.close()
	if existed {
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// WSClient is one connected WebSocket client and its channel
// subscriptions. Clients start with no subscriptions and opt in per
// channel.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn

	send chan []byte
	done chan struct{}

	channels  map[string]struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
}

// close shuts the client down, releasing both pumps. Abandoned send
// queue entries are garbage collected with the client.
func (c *WSClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// enqueue queues data for the write pump, returning false when the
// client's buffer is full.
func (c *WSClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// subscribed reports whether the client listens on the channel.
func (c *WSClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// upgrader accepts all origins; browser access is governed by the CORS
// middleware and the single-use connection ticket.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the connection. Authentication is a
// single-use ticket from POST /auth/ws-ticket passed as a query
// parameter, since browsers cannot set headers on a WS upgrade.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	if !s.validateTicket(ticket) {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		done:     make(chan struct{}),
		channels: make(map[string]struct{}),
	}
	s.hub.add(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump consumes client messages until the connection drops, keeping
// the read deadline refreshed from pongs and client traffic alike.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer c.hub.remove(c)

	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

// writePump drains the send queue and keeps the connection alive with
// protocol pings.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case <-c.done:
			//nolint:errcheck // Best-effort close message
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case message := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one client request.
func (c *WSClient) handleMessage(data []byte) {
	var msg wsEnvelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(wsEnvelope{Type: wsTypeError, Error: "invalid JSON message"})
		return
	}

	switch msg.Type {
	case wsTypeSubscribe:
		c.updateSubscriptions(msg, true)
	case wsTypeUnsubscribe:
		c.updateSubscriptions(msg, false)
	case wsTypePing:
		c.reply(wsEnvelope{Type: wsTypePong, ID: msg.ID})
	default:
		c.reply(wsEnvelope{Type: wsTypeError, ID: msg.ID, Error: "unknown message type: " + msg.Type})
	}
}

// updateSubscriptions adds or removes the requested channels. Unknown
// channel names reject the whole request so a typo is never silently
// half-applied. The ack carries the client's resulting subscription
// set.
func (c *WSClient) updateSubscriptions(msg wsEnvelope, add bool) {
	if len(msg.Channels) == 0 {
		c.reply(wsEnvelope{Type: wsTypeError, ID: msg.ID, Error: "channels list is required"})
		return
	}
	for _, name := range msg.Channels {
		if !validChannel(name) {
			c.reply(wsEnvelope{Type: wsTypeError, ID: msg.ID, Error: "unknown channel: " + name})
			return
		}
	}

	c.mu.Lock()
	for _, name := range msg.Channels {
		if add {
			c.channels[name] = struct{}{}
		} else {
			delete(c.channels, name)
		}
	}
	current := make([]string, 0, len(c.channels))
	for name := range c.channels {
		current = append(current, name)
	}
	c.mu.Unlock()

	c.reply(wsEnvelope{Type: wsTypeAck, ID: msg.ID, Channels: current})
}

// reply queues a protocol response for the client. Replies share the
// event buffer; if the client is too slow to take even its own ack it
// will be dropped by the next broadcast.
func (c *WSClient) reply(msg wsEnvelope) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(data)
}
