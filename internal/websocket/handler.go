// Package websocket serves the live latest-feedback stream.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/config"
	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ErrHubClosed is returned by Register once the hub has shut down.
var ErrHubClosed = errors.New("websocket hub is shut down")

// Event type constants for messages
const (
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeLatest = "latest"
	MessageTypeError  = "error"
)

// Handler handles WebSocket connections.
type Handler struct {
	log            *zap.SugaredLogger
	hub            *Hub
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
}

func NewHandler(hub *Hub, serverCfg *config.ServerConfig) *Handler {
	h := &Handler{
		log:            logger.GetLogger().Named("websocket_handler"),
		hub:            hub,
		pingInterval:   hub.pingInterval,
		writeTimeout:   hub.writeTimeout,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
	if d := serverCfg.WSPingInterval(); d > 0 {
		h.pingInterval = d
	}
	return h
}

// getAcceptOptions allows every origin in development and only the
// configured origins otherwise.
func (h *Handler) getAcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}

	if h.isDevelopment {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = originPatterns(h.allowedOrigins)
	}

	return opts
}

// originPatterns strips the scheme, since origin patterns match the origin host.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// ClientMessage represents a message from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message to the client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HandleWebSocket upgrades the request and streams projection states until
// either side closes the connection.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

// ServeHTTP allows the handler to be used directly with http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.getAcceptOptions())
	if err != nil {
		h.log.Warnw("Failed to accept WebSocket connection", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	connection, err := h.hub.Register(ctx, conn)
	if err != nil {
		_ = conn.Close(websocket.StatusTryAgainLater, "server shutting down")
		return
	}
	defer h.hub.Unregister(connection.ID)

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, conn) }()
	go func() { errCh <- h.writeLoop(ctx, conn, connection) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	err = <-errCh
	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
		h.log.Warnw("WebSocket connection error", "connectionID", connection.ID, "error", err)
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}

		switch msg.Type {
		case MessageTypePing:
			if err := h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypePong}); err != nil {
				return err
			}
		default:
			h.log.Debugw("Unknown message type from client", "type", msg.Type)
		}
	}
}

// writeLoop forwards projection states to the client.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, connection *Connection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-connection.States():
			if !ok {
				return nil
			}
			if err := h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypeLatest, Payload: state}); err != nil {
				return err
			}
		}
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) sendMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
