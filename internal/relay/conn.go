package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/katro-game/katro/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from a peer.
	maxMessageSize = 4096

	sendBuffer = 64
)

// Conn wraps one client WebSocket. Messages from a single connection
// are handled strictly in arrival order by its read pump; connections
// are independent of each other.
type Conn struct {
	ws        *websocket.Conn
	server    *Server
	send      chan *protocol.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, server *Server, logger *log.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		ws:     ws,
		server: server,
		send:   make(chan *protocol.Message, sendBuffer),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Conn) start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down once; safe to call from any path.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.ws.Close()
	})
	return err
}

// Send queues a message for delivery. Delivery is best effort: a dead
// or saturated connection swallows the frame and is closed, it never
// blocks the caller.
func (c *Conn) Send(msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			// The send channel was closed under us during shutdown.
			c.logger.Debug("send on closed connection", "type", msg.Type)
		}
	}()

	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
	}
}

// sendTyped builds an envelope stamped by the server clock and queues it.
func (c *Conn) sendTyped(t protocol.MessageType, data any) {
	msg, err := protocol.NewMessageAt(c.server.clock.Now().UTC(), t, data)
	if err != nil {
		c.logger.Error("failed to build message", "type", t, "error", err)
		return
	}
	c.Send(msg)
}

func (c *Conn) sendError(reason string) {
	c.sendTyped(protocol.TypeError, protocol.ErrorData{Reason: reason})
}

func (c *Conn) readPump() {
	defer func() {
		c.server.drop(c)
		_ = c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg protocol.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		if done := c.handleMessage(&msg); done {
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one inbound frame. Returning true ends the
// connection's stream (an explicit leave).
func (c *Conn) handleMessage(msg *protocol.Message) bool {
	c.logger.Debug("received message", "type", msg.Type)

	switch msg.Type {
	case protocol.TypeCreateRoom:
		var data protocol.CreateRoomData
		if msg.Data != nil {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError(protocol.ReasonBadPayload)
				return false
			}
		}
		c.server.rooms.Create(c, data.Name)

	case protocol.TypeJoinRoom:
		var data protocol.JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(protocol.ReasonBadPayload)
			return false
		}
		c.server.rooms.Join(c, data.Code, data.Name)

	case protocol.TypeMove:
		// The relay never validates rules; the frame is rebroadcast raw
		// to both seats, sender included.
		c.server.rooms.Broadcast(c, msg)

	case protocol.TypeLeave:
		return true

	case protocol.TypeLobbyHello:
		var data protocol.LobbyHelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(protocol.ReasonBadPayload)
			return false
		}
		c.server.lobby.Hello(c, data.Name, data.Avatar)

	case protocol.TypeLobbyBye:
		c.server.lobby.Goodbye(c)

	case protocol.TypeInvite:
		var data protocol.InviteData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(protocol.ReasonBadPayload)
			return false
		}
		c.server.lobby.Invite(c, data.To)

	case protocol.TypeInviteReply:
		var data protocol.InviteReplyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(protocol.ReasonBadPayload)
			return false
		}
		c.server.lobby.Reply(c, data.To, data.Accepted)

	default:
		c.sendError(protocol.ReasonUnknownType)
	}
	return false
}
