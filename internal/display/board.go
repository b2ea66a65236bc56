// Package display renders the board and match status for the terminal.
// Rendering is plain strings; the command loop decides when to print.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/katro-game/katro/internal/engine"
)

// boardRows returns the pit indexes laid out for one player's point of
// view, top row first. Seat A reads the board as stored; seat B sees it
// rotated half a turn so their own rows sit at the bottom.
func boardRows(pov engine.Player) [][]int {
	rows := make([][]int, engine.Rows)
	for r := 0; r < engine.Rows; r++ {
		rows[r] = make([]int, engine.Cols)
		for c := 0; c < engine.Cols; c++ {
			if pov == engine.Player2 {
				rows[r][c] = (engine.Rows-1-r)*engine.Cols + (engine.Cols - 1 - c)
			} else {
				rows[r][c] = r*engine.Cols + c
			}
		}
	}
	return rows
}

func pitCell(b engine.Board, idx int, pov engine.Player) string {
	cell := fmt.Sprintf("%2d:%-2d", idx, b[idx])
	switch {
	case b[idx] == 0:
		return EmptyPitStyle.Render(cell)
	case pov.OwnsPit(idx):
		return OwnPitStyle.Render(cell)
	default:
		return OpponentPitStyle.Render(cell)
	}
}

// RenderBoard draws the 4x8 board from pov's side of the table, with
// the opponent's rows on top and a gap between the two territories.
func RenderBoard(b engine.Board, pov engine.Player) string {
	rows := boardRows(pov)

	var sb strings.Builder
	for r, row := range rows {
		cells := make([]string, 0, engine.Cols)
		for _, idx := range row {
			cells = append(cells, pitCell(b, idx, pov))
		}
		sb.WriteString("  " + lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(cells, "  ")))
		sb.WriteString("\n")
		if r == engine.Rows/2-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderScore shows both players' seed totals.
func RenderScore(b engine.Board, nameA, nameB string) string {
	return ScoreStyle.Render(fmt.Sprintf("%s: %d seeds   %s: %d seeds",
		nameA, b.SideSum(engine.Player1), nameB, b.SideSum(engine.Player2)))
}

// RenderStep describes one resolution step for the move log.
func RenderStep(step engine.Step) string {
	switch step.Kind {
	case engine.StepCapture:
		return fmt.Sprintf("capture at pit %d empties pit %d, %d seeds in hand", step.From, step.Captured, step.Seeds)
	case engine.StepRelay:
		return fmt.Sprintf("relay from pit %d with %d seeds", step.From, step.Seeds)
	default:
		return fmt.Sprintf("sow %d seeds from pit %d", step.Seeds, step.From)
	}
}
