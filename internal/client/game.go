package client

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/katro-game/katro/internal/engine"
	"github.com/katro-game/katro/internal/protocol"
	"github.com/katro-game/katro/internal/session"
)

// seenNonceLimit bounds the duplicate-detection set. On overflow the set
// is cleared wholesale; the echo filter below still catches the one
// nonce that matters after a clear.
const seenNonceLimit = 2000

// remoteBuffer holds admitted peer moves until the controller's owner
// drains them. Turn-taking means at most one move is ever pending from
// a well-behaved peer.
const remoteBuffer = 16

// Game binds a session controller to the relay connection. Locally
// originated moves are published with a fresh nonce; relayed frames are
// filtered on the read loop (own echoes and duplicates dropped) and the
// survivors queued on Remote. The controller itself is only ever
// touched by the goroutine that owns it: that goroutine drains Remote
// and calls Apply.
type Game struct {
	client *Client
	ctrl   *session.Controller
	logger *log.Logger

	remote chan protocol.MoveData

	mu        sync.Mutex
	seen      map[string]struct{}
	lastLocal string
}

// NewGame wires a controller to the relay for the given seat. The
// controller is put in online mode and the move handler is registered.
func NewGame(c *Client, ctrl *session.Controller, seat protocol.Seat, logger *log.Logger) *Game {
	g := &Game{
		client: c,
		ctrl:   ctrl,
		logger: logger.WithPrefix("sync"),
		remote: make(chan protocol.MoveData, remoteBuffer),
		seen:   make(map[string]struct{}, 64),
	}
	ctrl.BindSeat(seat.Player(), g)
	c.On(protocol.TypeMove, g.handleMove)
	return g
}

// Remote returns the stream of admitted peer moves. The goroutine that
// owns the controller must drain it and hand each move to Apply.
func (g *Game) Remote() <-chan protocol.MoveData { return g.remote }

// Apply replays an admitted peer move. Call only from the goroutine
// that owns the controller.
func (g *Game) Apply(data protocol.MoveData) error {
	return g.ctrl.ApplyRemote(data.Idx, data.Step)
}

// PublishMove implements session.MovePublisher.
func (g *Game) PublishMove(idx, step int, player engine.Player, nonce string) error {
	g.mu.Lock()
	g.lastLocal = nonce
	g.remember(nonce)
	g.mu.Unlock()

	return g.client.Send(protocol.TypeMove, protocol.MoveData{
		Idx:    idx,
		Step:   step,
		Player: int(player),
		Nonce:  nonce,
	})
}

// handleMove runs on the client read loop. It never touches the
// controller; admitted moves are queued for the owner. A full queue
// blocks the read loop, which back-pressures a flooding peer.
func (g *Game) handleMove(msg *protocol.Message) {
	var data protocol.MoveData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		g.logger.Warn("discarding malformed move frame", "error", err)
		return
	}
	if !g.admit(data.Nonce) {
		g.logger.Debug("discarding move frame", "nonce", data.Nonce)
		return
	}
	g.remote <- data
}

// admit reports whether a relayed move should be replayed: this device's
// own echo and previously seen nonces are discarded. A frame without a
// nonce is always admitted.
func (g *Game) admit(nonce string) bool {
	if nonce == "" {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if nonce == g.lastLocal {
		return false
	}
	if _, dup := g.seen[nonce]; dup {
		return false
	}
	g.remember(nonce)
	return true
}

func (g *Game) remember(nonce string) {
	if len(g.seen) >= seenNonceLimit {
		g.seen = make(map[string]struct{}, 64)
	}
	g.seen[nonce] = struct{}{}
}
