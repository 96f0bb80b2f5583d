package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/echo/server/domain/entities"
	"github.com/satriahrh/echo/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024

	// Time allowed to persist a finished run.
	saveTimeout = 5 * time.Second
)

// Transfer endpoints announced in run_started
const (
	downloadPathFormat = "/speedtest/download/%d"
	uploadPath         = "/speedtest/upload"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub tracks one connected client and one run session per session ID.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Run state per session, kept across reconnects of the same session.
	sessions map[string]*entities.RunSession

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	quit     chan struct{}
	stopOnce sync.Once

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	service   *usecase.SpeedTestService
	validator *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(service *usecase.SpeedTestService, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]*entities.RunSession),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		service:    service,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if previous, ok := h.clients[client.sessionID]; ok && previous != client {
				previous.conn.Close()
				h.logger.Info("Client replaced by a new connection", zap.String("sessionID", client.sessionID))
			}
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.sessionID]; ok && current == client {
				delete(h.clients, client.sessionID)
				delete(h.sessions, client.sessionID)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))

		case <-h.quit:
			h.mu.Lock()
			for sessionID, client := range h.clients {
				client.conn.Close()
				delete(h.clients, sessionID)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every connection and ends the main loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) runSession(sessionID string) *entities.RunSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[sessionID]
	if !ok {
		session = entities.NewRunSession(sessionID)
		h.sessions[sessionID] = session
	}
	return session
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed when readPump exits; readPump is the only sender on send.
	done chan struct{}

	sessionID string
	session   *entities.RunSession

	logger *zap.Logger
}

// HandleWebSocket upgrades an authenticated request and serves the run
// protocol for sessionID.
func HandleWebSocket(hub *Hub, c echo.Context, sessionID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 64),
		done:      make(chan struct{}),
		sessionID: sessionID,
		session:   hub.runSession(sessionID),
		logger:    logger.With(zap.String("sessionID", sessionID)),
	}

	select {
	case hub.register <- client:
	case <-hub.quit:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
			c.sendError("unsupported_frame", "only text messages are accepted", "")
			continue
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// processMessage dispatches a validated message from the browser
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Invalid message", zap.Error(err))
		c.sendError("invalid_message", "message rejected", err.Error())
		return
	}

	switch msg := parsed.(type) {
	case *RunStartMessage:
		c.handleRunStart(msg)
	case *RunResultMessage:
		c.handleRunResult(msg)
	case *RunFailedMessage:
		c.handleRunFailed(msg)
	case *PingMessage:
		c.sendJSON(CreatePongMessage(msg.Data))
	}
}

func (c *Client) handleRunStart(msg *RunStartMessage) {
	run, err := c.hub.service.StartRun(c.session, msg.PayloadBytes())
	if err != nil {
		c.logger.Warn("Failed to start run", zap.Error(err))
		c.sendError("invalid_size", "cannot start run", err.Error())
		return
	}

	c.sendJSON(&RunStartedMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRunStarted,
			Timestamp: run.StartedAt.Format(time.RFC3339),
			MessageID: msg.MessageID,
		},
		RunID:       run.ID,
		SizeBytes:   run.PayloadSizeBytes,
		DownloadURL: fmt.Sprintf(downloadPathFormat, run.PayloadSizeBytes),
		UploadURL:   uploadPath,
	})
}

func (c *Client) handleRunResult(msg *RunResultMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	download := entities.NewTransferResult(entities.DirectionDownload, msg.Download.Bytes, msg.Download.ElapsedSeconds)
	upload := entities.NewTransferResult(entities.DirectionUpload, msg.Upload.Bytes, msg.Upload.ElapsedSeconds)

	report, err := c.hub.service.CompleteRun(ctx, c.session, msg.RunID, download, upload)
	if errors.Is(err, entities.ErrStaleRun) {
		c.sendDiscarded(msg.RunID, "a newer run replaced this one")
		return
	}
	if err != nil {
		c.logger.Error("Failed to complete run", zap.String("runID", msg.RunID), zap.Error(err))
		c.sendError("run_failed", "cannot complete run", err.Error())
		return
	}

	c.sendJSON(&RunReportMessage{
		BaseMessage: newBaseMessage(MessageTypeRunReport),
		RunID:       msg.RunID,
		Report:      report,
		Display:     usecase.NewReportView(report),
	})
}

func (c *Client) handleRunFailed(msg *RunFailedMessage) {
	if err := c.hub.service.FailRun(c.session, msg.RunID, msg.Reason); err != nil {
		c.sendDiscarded(msg.RunID, "run is not in flight")
	}
}

func (c *Client) sendDiscarded(runID, reason string) {
	c.sendJSON(&RunDiscardedMessage{
		BaseMessage: newBaseMessage(MessageTypeRunDiscarded),
		RunID:       runID,
		Reason:      reason,
	})
}

func (c *Client) sendError(code, message, details string) {
	c.sendJSON(CreateErrorMessage(code, message, details))
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping message")
	}
}
