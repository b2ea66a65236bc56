package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSowPathShape(t *testing.T) {
	p1 := SowPath(Player1)
	assert.Equal(t, [PathLen]int{16, 17, 18, 19, 20, 21, 22, 23, 31, 30, 29, 28, 27, 26, 25, 24}, p1)

	p2 := SowPath(Player2)
	assert.Equal(t, [PathLen]int{8, 9, 10, 11, 12, 13, 14, 15, 7, 6, 5, 4, 3, 2, 1, 0}, p2)
}

func TestResolveMovePreconditions(t *testing.T) {
	b := NewBoard(3)
	b[16] = 0

	_, err := ResolveMove(b, Player1, 8, Forward) // player 2's pit
	assert.ErrorIs(t, err, ErrNotYourPit)

	_, err = ResolveMove(b, Player1, 16, Forward)
	assert.ErrorIs(t, err, ErrEmptyPit)

	_, err = ResolveMove(b, Player1, 17, 2)
	assert.ErrorIs(t, err, ErrBadDirection)
}

func TestStartPitReceivesNoSeed(t *testing.T) {
	var b Board
	b[16] = 3
	b[8] = 1 // player 2 stays alive

	rt, err := ResolveMove(b, Player1, 16, Forward)
	require.NoError(t, err)
	assert.Equal(t, 0, rt.Board[16], "lifted pit must not receive a seed during its own sow")
	assert.Equal(t, 1, rt.Board[17])
	assert.Equal(t, 1, rt.Board[18])
}

func TestBackwardSowing(t *testing.T) {
	var b Board
	b[16] = 3
	b[8] = 1 // player 2 stays alive

	rt, err := ResolveMove(b, Player1, 16, Backward)
	require.NoError(t, err)
	// Walking backward from path position 0 wraps into the back row.
	assert.Equal(t, 1, rt.Board[24])
	assert.Equal(t, 1, rt.Board[25])
	assert.Equal(t, 1, rt.Board[26])
	assert.True(t, rt.Passed)
}

// On the fresh 3-seed board the opening move from the first front-row
// pit drops 3 seeds along the path, then the landing pit (front row,
// opposite a loaded opponent pit) captures rather than relays.
func TestOpeningMoveCapturesBeforeRelay(t *testing.T) {
	b := NewBoard(3)

	rt, err := ResolveMove(b, Player1, 16, Forward)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rt.Steps), 2)

	sow := rt.Steps[0]
	assert.Equal(t, StepSow, sow.Kind)
	assert.Equal(t, 4, sow.Board[17])
	assert.Equal(t, 4, sow.Board[18])
	assert.Equal(t, 4, sow.Board[19])

	// Landing pit 19 holds 4 (>1), so relay would also fire; capture
	// must win: the opposite pit 11 plus the landing pit, 3+4 seeds.
	cap := rt.Steps[1]
	assert.Equal(t, StepCapture, cap.Kind)
	assert.Equal(t, 19, cap.From)
	assert.Equal(t, 11, cap.Captured)
	assert.Equal(t, 7, cap.Seeds)
	assert.Equal(t, 0, cap.Board[11])
}

func TestRelayFromBackRow(t *testing.T) {
	var b Board
	b[31] = 2
	b[29] = 5
	b[8] = 1

	rt, err := ResolveMove(b, Player1, 31, Forward)
	require.NoError(t, err)
	// Sow 2 from pit 31 lands on pit 29 which held 5: relay picks up 6.
	require.GreaterOrEqual(t, len(rt.Steps), 2)
	assert.Equal(t, StepRelay, rt.Steps[1].Kind)
	assert.Equal(t, 29, rt.Steps[1].From)
	assert.Equal(t, 6, rt.Steps[1].Seeds)
	assert.Equal(t, 1, rt.Continuations)
}

// A single-seed landing in the front row opposite five opponent seeds
// captures 5+1=6 and keeps sowing. After the opponent's front row is
// emptied, capture eligibility falls back to their back row.
func TestSingleSeedCaptureAndEffectiveRowFallback(t *testing.T) {
	var b Board
	b[16] = 1
	b[9] = 5 // opponent front row, column 1
	b[2] = 4 // opponent back row survivor

	rt, err := ResolveMove(b, Player1, 16, Forward)
	require.NoError(t, err)

	require.Len(t, rt.Steps, 2)
	cap := rt.Steps[1]
	assert.Equal(t, StepCapture, cap.Kind)
	assert.Equal(t, 9, cap.Captured)
	assert.Equal(t, 6, cap.Seeds)

	// The 6 captured seeds sow onto pits 18..23; pit 23 lands with a
	// single seed opposite the opponent's *effective* front row, which
	// is now their back row (row 0), whose column 7 is empty: stop.
	assert.Equal(t, 0, rt.Board.EffectiveFrontRow(Player2)) // literal front row emptied
	assert.Equal(t, 1, rt.Board[23])
	assert.True(t, rt.Passed)
	assert.Zero(t, rt.Winner)
}

func TestEffectiveFrontRowFallbackCaptures(t *testing.T) {
	var b Board
	b[16] = 1
	b[1] = 3 // only the opponent's back row is loaded, column 1
	b[2] = 2

	rt, err := ResolveMove(b, Player1, 16, Forward)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rt.Steps), 2)
	assert.Equal(t, StepCapture, rt.Steps[1].Kind)
	assert.Equal(t, 1, rt.Steps[1].Captured)
}

func TestWinDetectionStopsResolution(t *testing.T) {
	var b Board
	b[16] = 1
	b[9] = 2 // the opponent's only seeds

	rt, err := ResolveMove(b, Player1, 16, Forward)
	require.NoError(t, err)

	// The capture empties player 2's side; once its seeds are re-sown
	// the win check fires and no further stage runs.
	assert.Equal(t, Player1, rt.Winner)
	assert.False(t, rt.Passed)
	assert.Equal(t, StepCapture, rt.Steps[len(rt.Steps)-1].Kind)
	assert.Equal(t, 0, rt.Board.SideSum(Player2))
}

func TestSeedConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		var b Board
		for j := range b {
			b[j] = rng.Intn(5)
		}
		player := Player1
		if i%2 == 0 {
			player = Player2
		}
		start, ok := RandomOpening(b, player, rng)
		if !ok {
			continue
		}
		dir := Forward
		if rng.Intn(2) == 0 {
			dir = Backward
		}

		before := b.Total()
		rt, err := ResolveMove(b, player, start, dir)
		require.NoError(t, err)
		assert.Equal(t, before, rt.Board.Total(), "seeds must be conserved across resolution")
		for _, step := range rt.Steps {
			// Mid-chain snapshots exclude the seeds still in hand.
			assert.LessOrEqual(t, step.Board.Total(), before)
		}
	}
}

func TestDeterminism(t *testing.T) {
	b := NewBoard(2)
	first, err := ResolveMove(b, Player2, 10, Backward)
	require.NoError(t, err)
	second, err := ResolveMove(b, Player2, 10, Backward)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSowingNeverFeedsOpponent(t *testing.T) {
	b := NewBoard(3)
	rt, err := ResolveMove(b, Player2, 8, Forward)
	require.NoError(t, err)

	// Deposits only ever land on the mover's side, so the opponent's
	// side total can shrink (captures) but never grow.
	prev := b.SideSum(Player1)
	for _, step := range rt.Steps {
		cur := step.Board.SideSum(Player1)
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}
