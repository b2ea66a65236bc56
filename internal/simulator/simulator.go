// Package simulator plays random self-play matches in parallel, for
// exercising the rules and for rough balance numbers between the two
// seats.
package simulator

import (
	"context"
	"math/rand"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/katro-game/katro/internal/engine"
)

// Options configure a simulation run.
type Options struct {
	Games       int
	SeedsPerPit int
	Workers     int   // 0 means one per CPU
	Seed        int64 // 0 means a random seed per run
	MaxMoves    int   // per-game guard, 0 means 10000
}

// Result aggregates a full simulation run.
type Result struct {
	Games       int
	Player1Wins int
	Player2Wins int
	Stalled     int
	TotalMoves  int
	MaxChain    int // longest capture/relay chain seen in a single move
}

// AverageMoves returns the mean number of moves per game.
func (r *Result) AverageMoves() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.TotalMoves) / float64(r.Games)
}

type gameResult struct {
	winner   engine.Player
	moves    int
	maxChain int
}

// playOne plays a single match with uniformly random openings, always
// sowing forward.
func playOne(seedsPerPit, maxMoves int, rng *rand.Rand) gameResult {
	board := engine.NewBoard(seedsPerPit)
	current := engine.Player1

	var res gameResult
	for res.moves < maxMoves {
		start, ok := engine.RandomOpening(board, current, rng)
		if !ok {
			// No seeds left to sow: the win was not reached through a
			// capture, so the game is stuck. Counted separately.
			return res
		}

		rt, err := engine.ResolveMove(board, current, start, engine.Forward)
		if err != nil {
			// RandomOpening only offers legal starts.
			panic(err)
		}
		res.moves++
		if len(rt.Steps) > res.maxChain {
			res.maxChain = len(rt.Steps)
		}

		board = rt.Board
		if rt.Winner != 0 {
			res.winner = rt.Winner
			return res
		}
		current = current.Opponent()
	}
	return res
}

// Run plays opts.Games random matches across a worker pool and
// aggregates the outcomes. Cancelling ctx stops the workers between
// games and Run returns the context's error.
func Run(ctx context.Context, opts Options, logger *log.Logger) (*Result, error) {
	if opts.Games <= 0 {
		opts.Games = 1
	}
	if opts.SeedsPerPit == 0 {
		opts.SeedsPerPit = engine.DefaultSeedsPerPit
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Workers > opts.Games {
		opts.Workers = opts.Games
	}
	if opts.MaxMoves <= 0 {
		opts.MaxMoves = 10000
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	logger.Info("starting simulation",
		"games", opts.Games,
		"seeds_per_pit", opts.SeedsPerPit,
		"workers", opts.Workers,
		"seed", seed)

	gamesPerWorker := opts.Games / opts.Workers
	remainder := opts.Games % opts.Workers

	g, ctx := errgroup.WithContext(ctx)
	results := make(chan Result, opts.Workers)

	for w := 0; w < opts.Workers; w++ {
		workerGames := gamesPerWorker
		if w < remainder {
			workerGames++
		}

		// Independent RNG per worker to avoid contention.
		workerSeed := rng.Int63()

		g.Go(func() error {
			workerRng := rand.New(rand.NewSource(workerSeed))
			var partial Result
			for i := 0; i < workerGames; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				gr := playOne(opts.SeedsPerPit, opts.MaxMoves, workerRng)
				partial.Games++
				partial.TotalMoves += gr.moves
				if gr.maxChain > partial.MaxChain {
					partial.MaxChain = gr.maxChain
				}
				switch gr.winner {
				case engine.Player1:
					partial.Player1Wins++
				case engine.Player2:
					partial.Player2Wins++
				default:
					partial.Stalled++
				}
			}

			select {
			case results <- partial:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	go func() {
		defer close(results)
		_ = g.Wait()
	}()

	total := &Result{}
	for partial := range results {
		total.Games += partial.Games
		total.Player1Wins += partial.Player1Wins
		total.Player2Wins += partial.Player2Wins
		total.Stalled += partial.Stalled
		total.TotalMoves += partial.TotalMoves
		if partial.MaxChain > total.MaxChain {
			total.MaxChain = partial.MaxChain
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return total, nil
}
