package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/logger"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Hub tracks the live-stream connections. Every connection owns one watcher
// on the latest-feedback projection for as long as it is open.
type Hub struct {
	log          *zap.SugaredLogger
	watcher      LatestWatcher
	connections  map[string]*Connection
	mu           sync.RWMutex
	shutdownOnce sync.Once
	closed       bool
	pingInterval time.Duration
	writeTimeout time.Duration
}

// LatestWatcher streams latest-feedback states until ctx is done.
type LatestWatcher interface {
	Watch(ctx context.Context) <-chan types.LatestState
}

// Connection is a single live-stream client.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	states <-chan types.LatestState
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

// HubConfig contains configuration options for the Hub.
type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// DefaultHubConfig returns sensible defaults for Hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func NewHub(watcher LatestWatcher, cfg ...HubConfig) *Hub {
	config := DefaultHubConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}

	return &Hub{
		log:          logger.GetLogger().Named("websocket_hub"),
		watcher:      watcher,
		connections:  make(map[string]*Connection),
		pingInterval: config.PingInterval,
		writeTimeout: config.WriteTimeout,
	}
}

// Register starts a watcher for conn. The watcher is released when ctx is
// done or the connection is unregistered.
func (h *Hub) Register(ctx context.Context, conn *websocket.Conn) (*Connection, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	watchCtx, cancel := context.WithCancel(ctx)
	connection := &Connection{
		ID:     uuid.NewString(),
		Conn:   conn,
		cancel: cancel,
	}
	h.connections[connection.ID] = connection
	h.mu.Unlock()

	connection.states = h.watcher.Watch(watchCtx)

	h.log.Debugw("WebSocket connection registered", "connectionID", connection.ID)
	return connection, nil
}

// Unregister releases the connection's watcher and closes it.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	conn, ok := h.connections[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, id)
	h.mu.Unlock()

	h.closeConnection(conn, websocket.StatusNormalClosure, "unregistered")
}

func (h *Hub) closeConnection(conn *Connection, code websocket.StatusCode, reason string) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	conn.mu.Unlock()

	conn.cancel()
	if conn.Conn != nil {
		_ = conn.Conn.Close(code, reason)
	}

	h.log.Debugw("WebSocket connection closed",
		"connectionID", conn.ID,
		"reason", reason)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown closes every connection and refuses new ones.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		connections := make([]*Connection, 0, len(h.connections))
		for _, conn := range h.connections {
			connections = append(connections, conn)
		}
		h.connections = make(map[string]*Connection)
		h.mu.Unlock()

		for _, conn := range connections {
			h.closeConnection(conn, websocket.StatusGoingAway, "server shutdown")
		}
	})

	h.log.Info("WebSocket hub shutdown complete")
	return nil
}

// States returns the projection states for this connection.
func (c *Connection) States() <-chan types.LatestState {
	return c.states
}

// IsClosed returns whether the connection is closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
