package main

import (
	"fmt"

	"github.com/katro-game/katro/cmd/katro/shared"
	"github.com/katro-game/katro/internal/simulator"
)

// SimulateCmd plays random self-play games and reports the outcomes.
type SimulateCmd struct {
	Games   int   `kong:"default='1000',help='Number of games to simulate'"`
	Seeds   int   `kong:"default='3',help='Seeds per pit (2 or 3)'"`
	Workers int   `kong:"help='Worker goroutines (default one per CPU)'"`
	Seed    int64 `kong:"help='Deterministic RNG seed (0 for random)'"`
	Debug   bool  `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	if c.Seeds != 2 && c.Seeds != 3 {
		return fmt.Errorf("seeds per pit must be 2 or 3, got %d", c.Seeds)
	}

	ctx := shared.SetupSignalHandler()

	res, err := simulator.Run(ctx, simulator.Options{
		Games:       c.Games,
		SeedsPerPit: c.Seeds,
		Workers:     c.Workers,
		Seed:        c.Seed,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("games:          %d\n", res.Games)
	fmt.Printf("player 1 wins:  %d (%.1f%%)\n", res.Player1Wins, pct(res.Player1Wins, res.Games))
	fmt.Printf("player 2 wins:  %d (%.1f%%)\n", res.Player2Wins, pct(res.Player2Wins, res.Games))
	if res.Stalled > 0 {
		fmt.Printf("stalled:        %d\n", res.Stalled)
	}
	fmt.Printf("average moves:  %.1f\n", res.AverageMoves())
	fmt.Printf("longest chain:  %d steps\n", res.MaxChain)
	return nil
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
