package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katro-game/katro/internal/engine"
)

func TestBoardRowsSeatAReadsBoardAsStored(t *testing.T) {
	rows := boardRows(engine.Player1)
	require.Len(t, rows, engine.Rows)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, rows[0])
	assert.Equal(t, []int{16, 17, 18, 19, 20, 21, 22, 23}, rows[2])
	assert.Equal(t, []int{24, 25, 26, 27, 28, 29, 30, 31}, rows[3])
}

func TestBoardRowsSeatBSeesHalfTurnRotation(t *testing.T) {
	rows := boardRows(engine.Player2)

	// The rotation puts player 2's back row on the bottom, reversed.
	assert.Equal(t, []int{31, 30, 29, 28, 27, 26, 25, 24}, rows[0])
	assert.Equal(t, []int{15, 14, 13, 12, 11, 10, 9, 8}, rows[2])
	assert.Equal(t, []int{7, 6, 5, 4, 3, 2, 1, 0}, rows[3])
}

func TestBothPointsOfViewCoverEveryPitOnce(t *testing.T) {
	for _, pov := range []engine.Player{engine.Player1, engine.Player2} {
		seen := make(map[int]bool)
		for _, row := range boardRows(pov) {
			for _, idx := range row {
				assert.False(t, seen[idx], "pit %d rendered twice", idx)
				seen[idx] = true
			}
		}
		assert.Len(t, seen, engine.Pits)
	}
}

func TestRenderBoardShowsEveryCount(t *testing.T) {
	b := engine.NewBoard(3)
	out := RenderBoard(b, engine.Player1)
	assert.Contains(t, out, "16:3")
	assert.Contains(t, out, "31:3")
}

func TestRenderStep(t *testing.T) {
	assert.Contains(t, RenderStep(engine.Step{Kind: engine.StepCapture, From: 19, Captured: 11, Seeds: 7}), "capture")
	assert.Contains(t, RenderStep(engine.Step{Kind: engine.StepRelay, From: 31, Seeds: 6}), "relay")
	assert.Contains(t, RenderStep(engine.Step{Kind: engine.StepSow, From: 16, Seeds: 3}), "sow")
}
