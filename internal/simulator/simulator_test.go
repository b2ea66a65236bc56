package simulator

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRunPlaysEveryGame(t *testing.T) {
	res, err := Run(context.Background(), Options{Games: 50, Seed: 42, Workers: 4}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 50, res.Games)
	assert.Equal(t, 50, res.Player1Wins+res.Player2Wins+res.Stalled)
	assert.Greater(t, res.TotalMoves, 0)
	assert.Greater(t, res.MaxChain, 0)
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	a, err := Run(context.Background(), Options{Games: 20, Seed: 7, Workers: 1}, testLogger())
	require.NoError(t, err)
	b, err := Run(context.Background(), Options{Games: 20, Seed: 7, Workers: 1}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Games: 100000, Seed: 1, Workers: 2}, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTwoSeedVariant(t *testing.T) {
	res, err := Run(context.Background(), Options{Games: 10, Seed: 3, SeedsPerPit: 2, Workers: 2}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 10, res.Games)
}

func TestAverageMoves(t *testing.T) {
	r := &Result{Games: 4, TotalMoves: 10}
	assert.InDelta(t, 2.5, r.AverageMoves(), 1e-9)
	assert.Zero(t, (&Result{}).AverageMoves())
}
