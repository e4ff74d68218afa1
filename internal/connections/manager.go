package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TimeoutConfig holds the timeout settings for chat websocket connections
type TimeoutConfig struct {
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
}

// Manager tracks live chat websockets so shutdown can close them. Hijacked
// connections are not closed by http.Server.Shutdown.
type Manager struct {
	connections sync.Map
	timeouts    TimeoutConfig
}

var DefaultTimeouts = TimeoutConfig{
	HandshakeTimeout: 10 * time.Second,
	WriteWait:        10 * time.Second,
}

func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a new WebSocket connection
func (m *Manager) AddConnection(conn *websocket.Conn) {
	m.connections.Store(conn, struct{}{})
}

// RemoveConnection removes a WebSocket connection
func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// HasConnection checks if a specific connection exists
func (m *Manager) HasConnection(conn *websocket.Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

// WriteJSON sends one frame with the configured write deadline
func (m *Manager) WriteJSON(conn *websocket.Conn, v interface{}) error {
	if m.timeouts.WriteWait > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(m.timeouts.WriteWait)); err != nil {
			return err
		}
	}
	return conn.WriteJSON(v)
}

// CloseAll sends a going-away close frame to every connection and closes it
func (m *Manager) CloseAll(reason string) int {
	closed := 0
	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	deadline := time.Now().Add(m.timeouts.WriteWait)

	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*websocket.Conn)
		if err := conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
			log.Debug().Err(err).Msg("Failed to send close frame")
		}
		_ = conn.Close()
		m.connections.Delete(conn)
		closed++
		return true
	})

	if closed > 0 {
		log.Info().Int("connections", closed).Str("reason", reason).Msg("Closed chat websockets")
	}
	return closed
}
