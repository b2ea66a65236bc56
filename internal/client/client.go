// Package client implements the sync client: the device-side WebSocket
// connection to the relay, the move stream binding that keeps a local
// session in lockstep with the peer, and the lobby surface.
package client

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/katro-game/katro/internal/protocol"
)

// Handler is a function that handles incoming messages.
type Handler func(*protocol.Message)

// Client is a WebSocket client for the relay server. Handlers run
// synchronously on the read loop, one frame at a time, so relayed moves
// are delivered in arrival order.
type Client struct {
	serverURL string
	logger    *log.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	handlers  map[protocol.MessageType][]Handler
	connected bool
	stop      chan struct{}
	done      chan struct{}
}

// New creates a client for the given server URL. http/https URLs are
// accepted and converted to their WebSocket schemes on Connect.
func New(serverURL string, logger *log.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		logger:    logger.WithPrefix("client"),
		handlers:  make(map[protocol.MessageType][]Handler),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// wsURL normalizes a server URL to a WebSocket endpoint: http becomes
// ws, https becomes wss, and a bare host gets the /ws path.
func wsURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Connect establishes the WebSocket connection and starts the read loop.
func (c *Client) Connect() error {
	target, err := wsURL(c.serverURL)
	if err != nil {
		return err
	}

	c.logger.Info("connecting to relay", "url", target)
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// Disconnect closes the connection. Safe to call when not connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	close(c.stop)

	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return c.conn.Close()
	}
	return nil
}

// IsConnected reports whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Done is closed when the read loop exits, whether by Disconnect or by
// the server going away.
func (c *Client) Done() <-chan struct{} { return c.done }

// Send wraps data in an envelope and writes it to the server.
func (c *Client) Send(msgType protocol.MessageType, data any) error {
	msg, err := protocol.NewMessage(msgType, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

// On registers a handler for a message type. Safe to call while
// connected; frames already being dispatched keep the handler set they
// started with.
func (c *Client) On(msgType protocol.MessageType, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = append(c.handlers[msgType], handler)
}

// CreateRoom asks the relay for a fresh room with the caller in seat A.
func (c *Client) CreateRoom(name string) error {
	return c.Send(protocol.TypeCreateRoom, protocol.CreateRoomData{Name: name})
}

// JoinRoom asks the relay to seat the caller in an existing room.
func (c *Client) JoinRoom(code, name string) error {
	return c.Send(protocol.TypeJoinRoom, protocol.JoinRoomData{Code: code, Name: name})
}

// Leave tells the relay to clear the caller's seat.
func (c *Client) Leave() error {
	return c.Send(protocol.TypeLeave, nil)
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}
		c.dispatch(&msg)
	}
}

// dispatch runs every handler for the frame's type in registration
// order. Handlers are called inline: a relayed move must be fully
// applied before the next frame is read.
func (c *Client) dispatch(msg *protocol.Message) {
	c.mu.RLock()
	handlers := make([]Handler, len(c.handlers[msg.Type]))
	copy(handlers, c.handlers[msg.Type])
	c.mu.RUnlock()

	for _, handler := range handlers {
		handler(msg)
	}
}
