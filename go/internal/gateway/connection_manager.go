package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Authorizer decides whether an identity may publish progress for a player in a round
type Authorizer interface {
	AuthorizePublisher(ctx context.Context, roundID, playerID uuid.UUID, authID string) (*models.Player, error)
}

// ConnectionManager manages WebSocket connections grouped by the round they watch
type ConnectionManager struct {
	// Connection pools organized by round ID; every live connection is in all
	roundConnections map[uuid.UUID]map[*Connection]bool
	all              map[*Connection]bool
	mu               sync.RWMutex

	upgrader   websocket.Upgrader
	config     ConnectionConfig
	clock      clockwork.Clock
	authorizer Authorizer
	bus        ProgressBus

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	AuthID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// roundID is guarded by Manager.mu
	roundID uuid.UUID

	// publisher authorization cache, only touched by readPump
	authorizedRound  uuid.UUID
	authorizedPlayer uuid.UUID
	playerName       string

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	AuthorizeTimeout time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
	SendBufferSize   int
	CheckOrigin      func(r *http.Request) bool
	// Clock stamps connections and progress envelopes
	Clock clockwork.Clock
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	RoundID uuid.UUID
	All     bool // deliver to every connection regardless of round
	Event   *events.RoundEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		AuthorizeTimeout: 5 * time.Second,
		MaxMessageSize:   4096,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		SendBufferSize:   256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		Clock: clockwork.NewRealClock(),
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, authorizer Authorizer, bus ProgressBus) *ConnectionManager {
	clock := config.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		roundConnections: make(map[uuid.UUID]map[*Connection]bool),
		all:              make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		authorizer:  authorizer,
		bus:         bus,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket for a verified identity
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, authID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		AuthID:      authID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("auth_id", authID).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.all[conn] = true
}

// unregisterConnection removes a connection from every pool and closes its send queue once
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.all[conn] {
		return
	}
	delete(cm.all, conn)
	cm.leaveRoundLocked(conn)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("auth_id", conn.AuthID).
		Msg("connection unregistered")
}

// subscribe moves a connection into roundID's pool. uuid.Nil leaves all rounds.
func (cm *ConnectionManager) subscribe(conn *Connection, roundID uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.all[conn] || conn.roundID == roundID {
		return
	}
	cm.leaveRoundLocked(conn)

	conn.roundID = roundID
	if roundID == uuid.Nil {
		return
	}
	if cm.roundConnections[roundID] == nil {
		cm.roundConnections[roundID] = make(map[*Connection]bool)
	}
	cm.roundConnections[roundID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("round_id", roundID.String()).
		Int("round_connections", len(cm.roundConnections[roundID])).
		Msg("connection subscribed")
}

func (cm *ConnectionManager) leaveRoundLocked(conn *Connection) {
	if conn.roundID == uuid.Nil {
		return
	}
	if pool, ok := cm.roundConnections[conn.roundID]; ok {
		delete(pool, conn)
		if len(pool) == 0 {
			delete(cm.roundConnections, conn.roundID)
		}
	}
	conn.roundID = uuid.Nil
}

func (cm *ConnectionManager) currentRound(conn *Connection) uuid.UUID {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return conn.roundID
}

// BroadcastToRound sends an event to all connections watching a round
func (cm *ConnectionManager) BroadcastToRound(roundID uuid.UUID, event *events.RoundEvent) {
	cm.enqueue(BroadcastMessage{RoundID: roundID, Event: event})
}

// BroadcastAll sends an event to every connection
func (cm *ConnectionManager) BroadcastAll(event *events.RoundEvent) {
	cm.enqueue(BroadcastMessage{All: true, Event: event})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().
			Str("round_id", message.Event.RoundID).
			Str("event_type", string(message.Event.Type)).
			Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	pool := cm.all
	if !message.All {
		pool = cm.roundConnections[message.RoundID]
	}
	// snapshot to avoid holding the lock while sending
	targets := make([]*Connection, 0, len(pool))
	for conn := range pool {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !cm.trySend(conn, eventData) {
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("round_id", message.Event.RoundID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// trySend queues data unless the connection is slow or already unregistered.
func (cm *ConnectionManager) trySend(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.all[conn] {
		return true
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

// ConnectionStats summarises live connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRounds     int            `json:"active_rounds"`
	RoundConnections map[string]int `json:"round_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	counts := make(map[string]int, len(cm.roundConnections))
	for roundID, pool := range cm.roundConnections {
		counts[roundID.String()] = len(pool)
	}
	return ConnectionStats{
		TotalConnections: len(cm.all),
		ActiveRounds:     len(cm.roundConnections),
		RoundConnections: counts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
