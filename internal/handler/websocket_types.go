// internal/handler/websocket_types.go
package handler

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client types served by the WebSocket endpoints.
const (
	ClientTypeTerminal = "terminal"
	ClientTypeEvents   = "events"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	Type        string          `json:"type"` // terminal, events
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`

	sendMu sync.Mutex
	closed bool
}

// trySend queues a frame unless the client is closed or backed up.
// Event forwarders run concurrently with unregistration, so the send
// channel is only written while holding the guard that close takes.
func (c *Client) trySend(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes the send channel
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ConnectionManager tracks WebSocket clients and enforces the
// configured connection limit. Registration must answer synchronously
// so a client over the limit can be refused during the handshake.
type ConnectionManager struct {
	clients    map[string]*Client
	maxClients int
	mutex      sync.RWMutex
}

// NewConnectionManager creates a new connection manager. A limit of
// zero or less means unlimited.
func NewConnectionManager(maxClients int) *ConnectionManager {
	return &ConnectionManager{
		clients:    make(map[string]*Client),
		maxClients: maxClients,
	}
}

// Register adds a client unless the connection limit is reached
func (cm *ConnectionManager) Register(client *Client) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.maxClients > 0 && len(cm.clients) >= cm.maxClients {
		return fmt.Errorf("connection limit reached (%d)", cm.maxClients)
	}

	cm.clients[client.ID] = client
	return nil
}

// Unregister removes a client and closes its send channel
func (cm *ConnectionManager) Unregister(client *Client) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if _, ok := cm.clients[client.ID]; ok {
		delete(cm.clients, client.ID)
		client.closeSend()
	}
}

// ClientsByType returns the connected clients of one type
func (cm *ConnectionManager) ClientsByType(clientType string) []*Client {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var clients []*Client
	for _, client := range cm.clients {
		if client.Type == clientType {
			clients = append(clients, client)
		}
	}
	return clients
}

// GetStats returns connection statistics
func (cm *ConnectionManager) GetStats() *ConnectionStats {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(cm.clients),
		ByType:           make(map[string]int),
	}

	for _, client := range cm.clients {
		stats.ByType[client.Type]++
	}

	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ByType           map[string]int `json:"by_type"`
}
