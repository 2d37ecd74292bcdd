package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yegors/metar-reader/internal/observability"
	"github.com/yegors/metar-reader/pkg/logger"
)

// Message types
const (
	MessageTypeSubscribe   = "subscribe"    // client -> server: airport filter
	MessageTypeSubscribed  = "subscribed"   // server -> client: filter acknowledged
	MessageTypeMETARUpdate = "metar_update" // server -> client: decoded report
	MessageTypeError       = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	conn     *websocket.Conn
	send     chan *Message
	server   *Server
	mu       sync.Mutex
	closed   bool
	airports map[string]bool // nil means every airport
}

// Server fans decoded reports out to connected clients
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	upgrader   websocket.Upgrader
	metrics    *observability.Metrics
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(metrics *observability.Metrics, logger *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		metrics: metrics,
		logger:  logger.Named("web-socket"),
	}
}

// Run services the hub until ctx is cancelled, then disconnects every client.
// It must be called at most once.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case <-ctx.Done():
			close(s.done)
			s.closeAll()
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.metrics.LiveFeedClients.Set(float64(clientCount))
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.removeClient(client)

		case message := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				if !client.wants(message) {
					continue
				}
				if !client.SendMessage(message) {
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			for _, client := range clientsToRemove {
				s.removeClient(client)
			}
		}
	}
}

func (s *Server) removeClient(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		client.mu.Lock()
		if !client.closed {
			client.closed = true
			close(client.send)
		}
		client.mu.Unlock()
	}
	clientCount := len(s.clients)
	s.mu.Unlock()

	s.metrics.LiveFeedClients.Set(float64(clientCount))
	s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))
}

func (s *Server) closeAll() {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		s.removeClient(client)
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleConnection upgrades the request and starts the client pumps
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	s.logger.Debug("WebSocket client connected",
		logger.String("remote_addr", r.RemoteAddr))

	client := &Client{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: s,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// Broadcast queues a message for every interested client. Messages sent
// after the hub has stopped are dropped.
func (s *Server) Broadcast(message *Message) {
	s.logger.Debug("Broadcasting message",
		logger.String("message_type", message.Type))
	select {
	case s.broadcast <- message:
	case <-s.done:
	}
}

// PublishUpdate broadcasts a decoded report for one airport
func (s *Server) PublishUpdate(airportCode string, payload any) {
	s.Broadcast(&Message{
		Type: MessageTypeMETARUpdate,
		Data: map[string]any{
			"airport_code": strings.ToUpper(airportCode),
			"lookup":       payload,
		},
	})
}

// readPump reads client messages until the connection drops
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Warn("Failed to parse WebSocket message", logger.Error(err))
			c.SendMessage(errorMessage("invalid message"))
			continue
		}

		c.handleMessage(&message)
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypeSubscribe:
		airports := parseAirports(message.Data["airports"])
		c.UpdateAirports(airports)
		c.server.logger.Debug("Client subscription updated",
			logger.Any("airports", airports))
		c.SendMessage(&Message{
			Type: MessageTypeSubscribed,
			Data: map[string]any{"airports": airports},
		})
	default:
		c.SendMessage(errorMessage("unknown message type: " + message.Type))
	}
}

func errorMessage(text string) *Message {
	return &Message{Type: MessageTypeError, Data: map[string]any{"error": text}}
}

// parseAirports reads a JSON array of codes. Anything else clears the filter.
func parseAirports(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return []string{}
	}
	airports := make([]string, 0, len(list))
	for _, item := range list {
		code, ok := item.(string)
		if !ok {
			continue
		}
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			airports = append(airports, code)
		}
	}
	return airports
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		data, err := json.Marshal(message)
		if err != nil {
			c.server.logger.Error("Failed to marshal message", logger.Error(err))
			continue
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// SendMessage queues a message for this client without blocking.
// It returns false when the client is closed or its buffer is full.
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// UpdateAirports replaces the client's airport filter. An empty list
// subscribes to every airport.
func (c *Client) UpdateAirports(airports []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(airports) == 0 {
		c.airports = nil
		return
	}
	c.airports = make(map[string]bool, len(airports))
	for _, code := range airports {
		c.airports[strings.ToUpper(code)] = true
	}
}

// wants reports whether the message passes the client's airport filter
func (c *Client) wants(message *Message) bool {
	if message.Type != MessageTypeMETARUpdate {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.airports == nil {
		return true
	}
	code, _ := message.Data["airport_code"].(string)
	return c.airports[code]
}
