// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/model"
	"minitel-service/internal/service"
	"minitel-service/internal/utils"
)

// WebSocketHandler bridges the terminal session to WebSocket clients.
// The terminal socket carries framed keyboard input outward and write
// frames inward; the events socket streams every session event.
type WebSocketHandler struct {
	upgrader        websocket.Upgrader
	connections     *ConnectionManager
	terminalService *service.TerminalService
	eventBus        *EventBus
	config          *config.WebSocketConfig
	logger          *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	terminalService *service.TerminalService,
	eventBus *EventBus,
	cfg *config.WebSocketConfig,
	logger *zap.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// In production, implement proper origin checking
			return true
		},
	}

	return &WebSocketHandler{
		upgrader:        upgrader,
		connections:     NewConnectionManager(cfg.MaxClients),
		terminalService: terminalService,
		eventBus:        eventBus,
		config:          cfg,
		logger:          utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Keyboard input stream plus write frames
	router.GET("/terminal", h.HandleTerminalConnection)

	// Full session event stream
	router.GET("/events", h.HandleEventConnection)
}

// HandleTerminalConnection serves the bidirectional terminal socket
func (h *WebSocketHandler) HandleTerminalConnection(c *gin.Context) {
	client := h.accept(c, ClientTypeTerminal)
	if client == nil {
		return
	}

	subID, events := h.eventBus.Subscribe()

	// Tell the client where the session stands before input flows.
	go h.sendInitialSessionState(client)

	go h.forwardTerminalEvents(client, events)
	go h.handleClientRead(client, subID)
	go h.handleClientWrite(client)
}

// HandleEventConnection serves the session event stream
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	client := h.accept(c, ClientTypeEvents)
	if client == nil {
		return
	}

	subID, events := h.eventBus.Subscribe()

	go h.forwardSessionEvents(client, events)
	go h.handleClientRead(client, subID)
	go h.handleClientWrite(client)
}

// accept upgrades the connection and registers the client, refusing it
// when the connection limit is reached
func (h *WebSocketHandler) accept(c *gin.Context, clientType string) *Client {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return nil
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        clientType,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	if err := h.connections.Register(client); err != nil {
		h.logger.Warn("WebSocket client refused",
			zap.String("client_id", client.ID),
			zap.Error(err),
		)
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		conn.Close()
		return nil
	}

	stats := h.connections.GetStats()
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("client_type", clientType),
		zap.String("remote_addr", client.RemoteAddr),
		zap.Int("total_clients", stats.TotalConnections),
	)

	return client
}

// forwardTerminalEvents relays framed keyboard input to the client.
// Only input events travel on the terminal socket; lifecycle noise
// stays on the events socket.
func (h *WebSocketHandler) forwardTerminalEvents(client *Client, events <-chan *model.SessionEvent) {
	for event := range events {
		if event.EventType != model.EventKeyPressed && event.EventType != model.EventInputReceived {
			continue
		}

		h.sendMessage(client, &WebSocketMessage{
			Type:      strings.ToLower(string(event.EventType)),
			Data:      event.Data,
			Timestamp: event.Timestamp,
		})
	}
}

// forwardSessionEvents relays every session event to the client
func (h *WebSocketHandler) forwardSessionEvents(client *Client, events <-chan *model.SessionEvent) {
	for event := range events {
		h.sendMessage(client, &WebSocketMessage{
			Type:      "session_event",
			Data:      event,
			Timestamp: event.Timestamp,
		})
	}
}

// sendInitialSessionState tells a fresh terminal client whether a
// session is open
func (h *WebSocketHandler) sendInitialSessionState(client *Client) {
	data := map[string]interface{}{
		"connected": h.terminalService.IsConnected(),
	}
	if session, err := h.terminalService.Session(); err == nil {
		data["session"] = session
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "session_state",
		Data:      data,
		Timestamp: time.Now(),
	})
}

// handleClientRead reads client frames until the connection drops
func (h *WebSocketHandler) handleClientRead(client *Client, subID uuid.UUID) {
	defer func() {
		h.eventBus.Unsubscribe(subID)
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	pongWait := 2 * h.config.PingInterval
	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Warn("Failed to parse WebSocket message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			h.sendError(client, "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite drains the send channel and keeps the link alive
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client frames
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "write":
		h.handleWrite(client, message)
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, fmt.Sprintf("unknown message type: %s", message.Type))
	}
}

// handleWrite validates a write frame and hands it to the service
func (h *WebSocketHandler) handleWrite(client *Client, message *WebSocketMessage) {
	if client.Type != ClientTypeTerminal {
		h.sendError(client, "write frames are only accepted on the terminal socket")
		return
	}

	data, ok := message.Data.(map[string]interface{})
	if !ok {
		h.sendError(client, "invalid write data")
		return
	}

	text, ok := data["text"].(string)
	if !ok || text == "" {
		h.sendError(client, "text is required")
		return
	}

	go h.executeWrite(client, text, message.RequestID)
}

// executeWrite writes client text to the terminal screen
func (h *WebSocketHandler) executeWrite(client *Client, text, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := h.terminalService.WriteText(ctx, text)

	response := &WebSocketMessage{
		Type: "write_response",
		Data: map[string]interface{}{
			"success": err == nil,
		},
		Timestamp: time.Now(),
		RequestID: requestID,
	}
	if err != nil {
		response.Data.(map[string]interface{})["error"] = err.Error()
	}

	h.sendMessage(client, response)
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !client.trySend(messageBytes) {
		h.logger.Warn("Client not accepting messages, dropping",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
	})
}

// GetConnectionStats returns connection statistics
func (h *WebSocketHandler) GetConnectionStats() *ConnectionStats {
	return h.connections.GetStats()
}
