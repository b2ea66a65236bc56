// Package session owns one device's view of a match: whose turn it is,
// how a direction is chosen, and whether a move originated locally or
// arrived from the peer. It drives the engine and reports results to the
// presentation layer through callbacks.
package session

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/katro-game/katro/internal/engine"
)

// DirectionMode controls how the sow direction is fixed for a move.
type DirectionMode int

const (
	// ModeFixed always sows forward along the path.
	ModeFixed DirectionMode = iota
	// ModeFree requires a second selection, a path neighbour of the
	// start pit, to choose forward or backward.
	ModeFree
)

// ParseDirectionMode maps the config strings to a DirectionMode.
func ParseDirectionMode(s string) (DirectionMode, error) {
	switch s {
	case "fixed", "":
		return ModeFixed, nil
	case "free":
		return ModeFree, nil
	}
	return ModeFixed, errors.New("direction mode must be \"fixed\" or \"free\"")
}

var (
	ErrBusy               = errors.New("a move is already resolving")
	ErrNotYourTurn        = errors.New("not the local player's turn")
	ErrGameOver           = errors.New("the game is over")
	ErrNoPendingStart     = errors.New("no start pit awaiting a direction")
	ErrNotNeighbour       = errors.New("pick the forward or backward neighbour of the start pit")
	ErrAwaitingDirection  = errors.New("a direction choice is pending")
	ErrRemoteBadDirection = errors.New("remote move carried an invalid step")
)

// Callbacks are how the controller drives the presentation layer. Nil
// members are skipped.
type Callbacks struct {
	BoardChanged func(engine.Board)
	StepResolved func(engine.Step)
	TurnEnded    func(next engine.Player)
	GameOver     func(winner engine.Player)
}

// MovePublisher receives locally-originated moves for relay to the
// peer. The sync client implements it in online mode.
type MovePublisher interface {
	PublishMove(idx, step int, player engine.Player, nonce string) error
}

// Controller validates and executes moves for one device. It is not
// safe for concurrent use: there is exactly one mutator per device, and
// the busy flag only guards re-entry from callbacks.
type Controller struct {
	logger *log.Logger

	board   engine.Board
	current engine.Player
	winner  engine.Player
	mode    DirectionMode

	busy         bool
	pendingStart int
	awaitingDir  bool

	localSeat engine.Player // 0 when both seats play on this device
	publisher MovePublisher

	lastLocalNonce string

	cb Callbacks
}

// New creates a controller for a fresh board. Player 1 moves first.
func New(seedsPerPit int, mode DirectionMode, cb Callbacks, logger *log.Logger) *Controller {
	return &Controller{
		logger:       logger.WithPrefix("session"),
		board:        engine.NewBoard(seedsPerPit),
		current:      engine.Player1,
		mode:         mode,
		pendingStart: -1,
		cb:           cb,
	}
}

// BindSeat fixes which player this device controls and, when publisher
// is non-nil, puts the controller in online mode: every local move is
// published before it is played.
func (c *Controller) BindSeat(p engine.Player, publisher MovePublisher) {
	c.localSeat = p
	c.publisher = publisher
}

// Board returns the current board.
func (c *Controller) Board() engine.Board { return c.board }

// Current returns the player to move.
func (c *Controller) Current() engine.Player { return c.current }

// Winner returns the winning player, or 0 while the game continues.
func (c *Controller) Winner() engine.Player { return c.winner }

// GameOver reports whether the match has been decided.
func (c *Controller) GameOver() bool { return c.winner != 0 }

// AwaitingDirection reports whether a free-mode start pit is waiting
// for its direction selection.
func (c *Controller) AwaitingDirection() bool { return c.awaitingDir }

// LastLocalNonce returns the nonce of the most recent locally
// originated move. The sync client compares it against relayed moves to
// discard this device's own echo.
func (c *Controller) LastLocalNonce() string { return c.lastLocalNonce }

// ChoosePit handles the player selecting a start pit. In fixed mode the
// move plays immediately; in free mode the controller waits for
// ChooseDirection. Rejections never reach the engine and never leave
// the device.
func (c *Controller) ChoosePit(idx int) error {
	if c.winner != 0 {
		return ErrGameOver
	}
	if c.busy {
		return ErrBusy
	}
	if c.awaitingDir {
		return ErrAwaitingDirection
	}
	if c.localSeat != 0 && c.current != c.localSeat {
		return ErrNotYourTurn
	}
	if !c.current.OwnsPit(idx) {
		return engine.ErrNotYourPit
	}
	if c.board[idx] == 0 {
		return engine.ErrEmptyPit
	}

	if c.mode == ModeFree {
		c.pendingStart = idx
		c.awaitingDir = true
		return nil
	}
	return c.play(idx, engine.Forward, false)
}

// ChooseDirection completes a free-mode move: idx must be the forward
// or backward path neighbour of the pending start pit. Any other pit is
// rejected and the direction choice stays pending for a re-prompt.
func (c *Controller) ChooseDirection(idx int) error {
	if !c.awaitingDir {
		return ErrNoPendingStart
	}

	path := engine.SowPath(c.current)
	pos := 0
	for i, p := range path {
		if p == c.pendingStart {
			pos = i
			break
		}
	}

	var dir engine.Direction
	switch idx {
	case path[(pos+1)%engine.PathLen]:
		dir = engine.Forward
	case path[(pos-1+engine.PathLen)%engine.PathLen]:
		dir = engine.Backward
	default:
		return ErrNotNeighbour
	}

	start := c.pendingStart
	c.pendingStart = -1
	c.awaitingDir = false
	return c.play(start, dir, false)
}

// CancelDirection abandons a pending free-mode start pit.
func (c *Controller) CancelDirection() {
	c.pendingStart = -1
	c.awaitingDir = false
}

// ApplyRemote replays a move received from the peer. The move is played
// for whichever player holds the turn and is never re-published.
func (c *Controller) ApplyRemote(idx, step int) error {
	if c.winner != 0 {
		return ErrGameOver
	}
	if c.busy {
		return ErrBusy
	}
	if step != 1 && step != -1 {
		return ErrRemoteBadDirection
	}
	return c.play(idx, engine.Direction(step), true)
}

func (c *Controller) play(start int, dir engine.Direction, remote bool) error {
	c.busy = true
	defer func() { c.busy = false }()

	if !remote && c.publisher != nil {
		nonce := uuid.NewString()
		c.lastLocalNonce = nonce
		if err := c.publisher.PublishMove(start, int(dir), c.current, nonce); err != nil {
			// Best effort: the local game keeps going offline.
			c.logger.Warn("failed to publish move", "error", err)
		}
	}

	rt, err := engine.ResolveMove(c.board, c.current, start, dir)
	if err != nil {
		return err
	}
	c.board = rt.Board

	if c.cb.StepResolved != nil {
		for _, step := range rt.Steps {
			c.cb.StepResolved(step)
		}
	}
	if c.cb.BoardChanged != nil {
		c.cb.BoardChanged(c.board)
	}

	if rt.Winner != 0 {
		c.winner = rt.Winner
		c.logger.Info("game over", "winner", int(rt.Winner))
		if c.cb.GameOver != nil {
			c.cb.GameOver(rt.Winner)
		}
		return nil
	}

	c.current = c.current.Opponent()
	if c.cb.TurnEnded != nil {
		c.cb.TurnEnded(c.current)
	}
	return nil
}
