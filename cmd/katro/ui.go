package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/katro-game/katro/internal/client"
	"github.com/katro-game/katro/internal/display"
	"github.com/katro-game/katro/internal/engine"
	"github.com/katro-game/katro/internal/protocol"
	"github.com/katro-game/katro/internal/session"
)

var errQuit = errors.New("quit")

// gameUI drives one match on the terminal: it prints the board, reads
// pit selections, and reacts to the controller's callbacks.
type gameUI struct {
	ctrl   *session.Controller
	mode   session.DirectionMode
	names  map[engine.Player]string
	in     *bufio.Scanner
	logger *log.Logger

	turns chan engine.Player
	over  chan engine.Player
}

func newGameUI(seedsPerPit int, mode session.DirectionMode, logger *log.Logger) *gameUI {
	ui := &gameUI{
		mode:   mode,
		names:  map[engine.Player]string{engine.Player1: "Player 1", engine.Player2: "Player 2"},
		in:     bufio.NewScanner(os.Stdin),
		logger: logger,
		turns:  make(chan engine.Player, 8),
		over:   make(chan engine.Player, 1),
	}
	ui.ctrl = session.New(seedsPerPit, mode, session.Callbacks{
		StepResolved: func(step engine.Step) {
			if step.Kind != engine.StepSow {
				fmt.Println(display.InfoStyle.Render("  " + display.RenderStep(step)))
			}
		},
		TurnEnded: func(next engine.Player) { ui.turns <- next },
		GameOver:  func(winner engine.Player) { ui.over <- winner },
	}, logger)
	return ui
}

func (ui *gameUI) setNames(a, b string) {
	ui.names[engine.Player1] = a
	ui.names[engine.Player2] = b
}

func (ui *gameUI) printBoard(pov engine.Player) {
	fmt.Println()
	fmt.Println(display.RenderBoard(ui.ctrl.Board(), pov))
	fmt.Println(display.RenderScore(ui.ctrl.Board(), ui.names[engine.Player1], ui.names[engine.Player2]))
}

func (ui *gameUI) printWinner(winner engine.Player) {
	ui.printBoard(winner)
	fmt.Println(display.WinStyle.Render(fmt.Sprintf("%s wins!", ui.names[winner])))
}

// readPit prompts until the player enters a pit number or quits.
func (ui *gameUI) readPit(prompt string) (int, error) {
	for {
		fmt.Print(display.PromptStyle.Render(prompt + " "))
		if !ui.in.Scan() {
			return 0, errQuit
		}
		line := strings.TrimSpace(ui.in.Text())
		switch line {
		case "q", "quit", "exit":
			return 0, errQuit
		case "c", "cancel":
			return -1, nil
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println(display.ErrorStyle.Render("enter a pit number, c to cancel, or q to quit"))
			continue
		}
		return idx, nil
	}
}

// promptMove runs one complete local move for p, re-prompting on every
// rejection. Only errQuit escapes.
func (ui *gameUI) promptMove(p engine.Player) error {
	for {
		idx, err := ui.readPit(fmt.Sprintf("[%s] pit:", ui.names[p]))
		if err != nil {
			return err
		}
		if idx < 0 {
			continue
		}
		if err := ui.ctrl.ChoosePit(idx); err != nil {
			fmt.Println(display.ErrorStyle.Render(err.Error()))
			continue
		}

		for ui.ctrl.AwaitingDirection() {
			next, err := ui.readPit("direction (neighbour pit):")
			if err != nil {
				return err
			}
			if next < 0 {
				ui.ctrl.CancelDirection()
				break
			}
			if err := ui.ctrl.ChooseDirection(next); err != nil {
				fmt.Println(display.ErrorStyle.Render(err.Error()))
			}
		}
		if ui.ctrl.AwaitingDirection() {
			continue
		}
		return nil
	}
}

// aiMove plays one move for p with a random non-empty start pit, always
// sowing forward.
func (ui *gameUI) aiMove(p engine.Player, rng *rand.Rand) error {
	start, ok := engine.RandomOpening(ui.ctrl.Board(), p, rng)
	if !ok {
		return fmt.Errorf("%s has no seeds to sow", ui.names[p])
	}
	if err := ui.ctrl.ChoosePit(start); err != nil {
		return err
	}
	if ui.ctrl.AwaitingDirection() {
		path := engine.SowPath(p)
		for i, pit := range path {
			if pit == start {
				return ui.ctrl.ChooseDirection(path[(i+1)%engine.PathLen])
			}
		}
	}
	return nil
}

// runLocal plays a hotseat match on this terminal, optionally with the
// machine in seat two.
func (ui *gameUI) runLocal(vsAI bool, rng *rand.Rand) error {
	for {
		// Hotseat play consumes turn events here; only the winner event
		// matters.
		select {
		case <-ui.turns:
		default:
		}
		select {
		case winner := <-ui.over:
			ui.printWinner(winner)
			return nil
		default:
		}

		p := ui.ctrl.Current()
		if vsAI && p == engine.Player2 {
			if err := ui.aiMove(p, rng); err != nil {
				return err
			}
			continue
		}

		ui.printBoard(p)
		if err := ui.promptMove(p); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

// runOnline plays one networked match from the given seat. The read
// loop only queues admitted remote moves on g.Remote(); this loop is
// the sole goroutine that touches the controller, applying peer moves
// between its own prompts.
func (ui *gameUI) runOnline(ctx context.Context, c *client.Client, g *client.Game, seat protocol.Seat) error {
	me := seat.Player()
	ui.printBoard(me)

	if me == engine.Player1 {
		if err := ui.promptMove(me); err != nil {
			if errors.Is(err, errQuit) {
				return c.Leave()
			}
			return err
		}
	} else {
		fmt.Println(display.InfoStyle.Render("waiting for the opponent's move..."))
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-c.Done():
			if ui.ctrl.GameOver() {
				return nil
			}
			return errors.New("connection to relay lost")

		case mv := <-g.Remote():
			if err := g.Apply(mv); err != nil {
				ui.logger.Warn("discarding inapplicable peer move", "pit", mv.Idx, "error", err)
			}

		case winner := <-ui.over:
			ui.printWinner(winner)
			return nil

		case next := <-ui.turns:
			ui.printBoard(me)
			if next != me {
				fmt.Println(display.InfoStyle.Render("waiting for the opponent's move..."))
				continue
			}
			if err := ui.promptMove(me); err != nil {
				if errors.Is(err, errQuit) {
					return c.Leave()
				}
				return err
			}
		}
	}
}
