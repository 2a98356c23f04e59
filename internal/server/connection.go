package server

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// A peer that hasn't answered a ping within this window is treated as
	// disconnected, which hands its turns to the auto-progress machinery.
	pongWait = 30 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// newSessionID generates the session handle for one connection. It is
// stable for the connection's lifetime; reconnects get a fresh one and
// rebind by (roomCode, playerName).
func newSessionID() string {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		panic("failed to generate session id: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}

// Connection wraps one websocket session
type Connection struct {
	sessionID string
	conn      *websocket.Conn
	send      chan *Message
	orch      *Orchestrator
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a connection wrapper with a fresh session id
func NewConnection(conn *websocket.Conn, orch *Orchestrator, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := newSessionID()
	return &Connection{
		sessionID: id,
		conn:      conn,
		send:      make(chan *Message, 256),
		orch:      orch,
		logger:    logger.WithPrefix("conn").With("session", id[:8]),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SessionID returns the connection's session handle
func (c *Connection) SessionID() string {
	return c.sessionID
}

// Start begins the read and write pumps
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

// Done exposes connection teardown to the server's unregister path
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// SendMessage queues a message for the client. A full buffer means the
// client has stopped draining; the connection is dropped rather than
// letting one slow reader stall a room transition. A send racing the
// channel close is reported as undelivered.
func (c *Connection) SendMessage(msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "recover", r)
			err = websocket.ErrCloseSent
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return websocket.ErrCloseSent
	}
}

// readPump handles incoming messages until the peer goes away
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

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
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages and keepalive pings
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
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

// handleMessage dispatches one client event to the orchestrator.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type)

	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if !c.decode(msg, &data) {
			return
		}
		code, err := c.orch.CreateRoom(c.sessionID, data.PlayerName, data.GameMode)
		c.sendAck(msg.RequestID, AckData{Success: err == nil, Error: errString(err), RoomCode: code})

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if !c.decode(msg, &data) {
			return
		}
		reconnected, err := c.orch.JoinRoom(c.sessionID, data.RoomCode, data.PlayerName)
		ack := AckData{Success: err == nil, Error: errString(err), Reconnected: reconnected}
		if err == nil {
			ack.RoomCode = data.RoomCode
		}
		c.sendAck(msg.RequestID, ack)

	case MessageTypeToggleReady:
		var data RoomOnlyData
		if c.decode(msg, &data) {
			c.orch.ToggleReady(c.sessionID, data.RoomCode)
		}

	case MessageTypeSetGameMode:
		var data SetGameModeData
		if c.decode(msg, &data) {
			c.orch.SetGameMode(c.sessionID, data.RoomCode, data.GameMode)
		}

	case MessageTypeAssignTeam:
		var data AssignTeamData
		if c.decode(msg, &data) {
			c.orch.AssignTeam(c.sessionID, data.RoomCode, data.PlayerName, data.TeamName)
		}

	case MessageTypeUpdateTeams:
		var data UpdateTeamsData
		if c.decode(msg, &data) {
			c.orch.UpdateTeams(c.sessionID, data.RoomCode, data.NumTeams)
		}

	case MessageTypeLeaveRoom:
		var data RoomOnlyData
		if c.decode(msg, &data) {
			c.orch.LeaveRoom(c.sessionID, data.RoomCode)
		}

	case MessageTypeStartGame:
		var data RoomOnlyData
		if !c.decode(msg, &data) {
			return
		}
		err := c.orch.StartGame(c.sessionID, data.RoomCode)
		c.sendAck(msg.RequestID, AckData{Success: err == nil, Error: errString(err), RoomCode: data.RoomCode})

	case MessageTypeNilDecision:
		var data NilDecisionData
		if c.decode(msg, &data) {
			c.orch.NilDecision(c.sessionID, data.RoomCode, data.GoNil)
		}

	case MessageTypePlaceBid:
		var data PlaceBidData
		if c.decode(msg, &data) {
			c.orch.PlaceBid(c.sessionID, data.RoomCode, data.Bid)
		}

	case MessageTypePlayCard:
		var data PlayCardData
		if c.decode(msg, &data) {
			c.orch.PlayCard(c.sessionID, data.RoomCode, data.CardID)
		}

	case MessageTypeNextRound:
		var data RoomOnlyData
		if c.decode(msg, &data) {
			c.orch.NextRound(c.sessionID, data.RoomCode)
		}

	case MessageTypeRestartGame:
		var data RoomOnlyData
		if c.decode(msg, &data) {
			c.orch.RestartGame(c.sessionID, data.RoomCode)
		}

	case MessageTypeEndGame:
		var data RoomOnlyData
		if c.decode(msg, &data) {
			c.orch.EndGame(c.sessionID, data.RoomCode)
		}

	case MessageTypeLeaveGame:
		var data RoomOnlyData
		if c.decode(msg, &data) {
			c.orch.LeaveGame(c.sessionID, data.RoomCode)
		}

	default:
		c.sendError("unknown_message_type", "unknown message type: "+string(msg.Type))
	}
}

// decode unmarshals an event payload, reporting malformed data back to
// the client.
func (c *Connection) decode(msg *Message, v interface{}) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError("invalid_message", "failed to parse "+string(msg.Type)+" data")
		return false
	}
	return true
}

func (c *Connection) sendAck(requestID string, data AckData) {
	msg, err := NewMessage(MessageTypeAck, data)
	if err != nil {
		c.logger.Error("failed to create ack", "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
