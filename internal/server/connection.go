package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	sessionID   string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	coordinator *Coordinator
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, coordinator *Coordinator) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:        conn,
		send:        make(chan *Message, 256),
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
		coordinator: coordinator,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			// Log at debug level to avoid spam during tests
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetSession associates this connection with a battle session
func (c *Connection) SetSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
}

// GetSession returns the associated session ID
func (c *Connection) GetSession() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeJoinQueue:
		var data JoinQueueData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join queue data")
			return
		}
		c.handleJoinQueue(data)

	case MessageTypeLeaveQueue:
		c.handleLeaveQueue()

	case MessageTypeSubmitTurn:
		var data SubmitTurnData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse submit turn data")
			return
		}
		c.handleSubmitTurn(data)

	case MessageTypeExecuteRound:
		var data ExecuteRoundData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse execute round data")
			return
		}
		c.handleExecuteRound(data)

	case MessageTypeGetState:
		var data GetStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse get state data")
			return
		}
		c.handleGetState(data)

	case MessageTypeLeaderboard:
		var data LeaderboardRequestData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leaderboard data")
			return
		}
		c.handleLeaderboard(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	// Simple authentication - just accept any player name
	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.SetPlayer(data.PlayerName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleJoinQueue(data JoinQueueData) {
	c.logger.Info("Join queue request", "player", c.GetPlayer(), "stake", data.Stake)

	if c.coordinator == nil {
		c.sendError("service_unavailable", "Coordinator not available")
		return
	}

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	position, waiting, err := c.coordinator.JoinQueue(playerName, data.Stake, data.Character)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeQueueUpdate, QueueUpdateData{
		Position: position,
		Waiting:  waiting,
		Stake:    data.Stake,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLeaveQueue() {
	c.logger.Info("Leave queue request", "player", c.GetPlayer())

	if c.coordinator == nil {
		c.sendError("service_unavailable", "Coordinator not available")
		return
	}

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	c.coordinator.LeaveQueue(playerName)

	response, _ := NewMessage(MessageTypeQueueUpdate, QueueUpdateData{
		Position: -1,
		Waiting:  c.coordinator.QueueLength(),
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleSubmitTurn(data SubmitTurnData) {
	c.logger.Info("Submit turn", "player", c.GetPlayer(), "session", data.SessionID,
		"round", data.Round, "slot", data.Slot, "stance", data.Stance)

	if c.coordinator == nil {
		c.sendError("service_unavailable", "Coordinator not available")
		return
	}

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	err := c.coordinator.SubmitTurn(playerName, data)
	if err != nil {
		c.sendError("submit_failed", err.Error())
		return
	}

	// No response needed - the coordinator broadcasts turn results
}

func (c *Connection) handleExecuteRound(data ExecuteRoundData) {
	c.logger.Info("Execute round request", "player", c.GetPlayer(), "session", data.SessionID)

	if c.coordinator == nil {
		c.sendError("service_unavailable", "Coordinator not available")
		return
	}

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	err := c.coordinator.ExecuteRound(playerName, data.SessionID)
	if err != nil {
		c.sendError("execute_failed", err.Error())
		return
	}
}

func (c *Connection) handleGetState(data GetStateData) {
	c.logger.Info("Get state request", "player", c.GetPlayer(), "session", data.SessionID)

	if c.coordinator == nil {
		c.sendError("service_unavailable", "Coordinator not available")
		return
	}

	snap, err := c.coordinator.SessionState(data.SessionID)
	if err != nil {
		c.sendError("session_not_found", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeBattleState, BattleStateData{
		SessionID: data.SessionID,
		State:     snap,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLeaderboard(data LeaderboardRequestData) {
	c.logger.Info("Leaderboard request", "player", c.GetPlayer())

	if c.coordinator == nil {
		c.sendError("service_unavailable", "Coordinator not available")
		return
	}

	players, err := c.coordinator.Leaderboard(data.Limit)
	if err != nil {
		c.sendError("leaderboard_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeLeaderboardData, LeaderboardResponseData{
		Players: players,
	})
	_ = c.SendMessage(response) // Ignore send errors
}
