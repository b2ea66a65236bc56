package engine

import "errors"

// Direction of travel along the sow path.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

var (
	ErrNotYourPit   = errors.New("pit is not in the mover's rows")
	ErrEmptyPit     = errors.New("pit is empty")
	ErrBadDirection = errors.New("direction must be +1 or -1")
)

// StepKind classifies one stage of a resolution chain.
type StepKind int

const (
	StepSow StepKind = iota
	StepCapture
	StepRelay
)

func (k StepKind) String() string {
	switch k {
	case StepSow:
		return "sow"
	case StepCapture:
		return "capture"
	case StepRelay:
		return "relay"
	}
	return "unknown"
}

// Step is one stage of a resolved move: the seeds picked up, where the
// hand started, and the board after the stage's sowing completed.
// Capture steps also record the opponent pit that was emptied.
type Step struct {
	Kind     StepKind
	From     int // pit the seeds were lifted from
	Seeds    int // seeds sown in this stage
	Captured int // opponent pit emptied by a capture, -1 otherwise
	Board    Board
}

// ResolvedTurn is the full effect of one player-initiated move.
type ResolvedTurn struct {
	Board         Board
	Steps         []Step
	Continuations int    // capture/relay stages beyond the opening sow
	Passed        bool   // turn moved to the opponent
	Winner        Player // 0 while the game continues
}

// ResolveMove computes the complete effect of the mover lifting pit
// start and sowing in dir: the opening sow plus any chained captures
// and relays, down to either a win or the turn passing. The chain is an
// explicit loop; every intermediate board is recorded in Steps.
//
// Resolution priority at each landing pit: win check, then capture,
// then relay, then stop. Capture eligibility uses the mover's literal
// front row but the opponent's effective front row; the asymmetry is
// part of the rules.
func ResolveMove(b Board, p Player, start int, dir Direction) (ResolvedTurn, error) {
	if dir != Forward && dir != Backward {
		return ResolvedTurn{}, ErrBadDirection
	}
	if !p.OwnsPit(start) {
		return ResolvedTurn{}, ErrNotYourPit
	}
	if b[start] == 0 {
		return ResolvedTurn{}, ErrEmptyPit
	}

	path := SowPath(p)
	pos := pathIndex(path, start)
	opp := p.Opponent()

	rt := ResolvedTurn{}
	seeds := b[start]
	b[start] = 0
	kind, from, captured := StepSow, start, -1

	for {
		// Drops begin at the next pit in the path; the lifted pit
		// itself receives nothing.
		for i := 0; i < seeds; i++ {
			pos = (pos + int(dir) + PathLen) % PathLen
			b[path[pos]]++
		}
		rt.Steps = append(rt.Steps, Step{Kind: kind, From: from, Seeds: seeds, Captured: captured, Board: b})

		last := path[pos]

		// Win check runs before any capture or relay continuation.
		if b.SideSum(Player1) == 0 || b.SideSum(Player2) == 0 {
			if b.SideSum(Player1) == 0 {
				rt.Winner = Player2
			} else {
				rt.Winner = Player1
			}
			rt.Board = b
			return rt, nil
		}

		landed := b[last] // count after the deposit

		// Capture: landing on the mover's front row opposite a
		// non-empty pit in the opponent's effective front row.
		if last/Cols == p.FrontRow() {
			oppIdx := b.EffectiveFrontRow(opp)*Cols + last%Cols
			if b[oppIdx] > 0 {
				seeds = b[oppIdx] + b[last]
				b[oppIdx] = 0
				b[last] = 0
				kind, from, captured = StepCapture, last, oppIdx
				rt.Continuations++
				continue
			}
		}

		// Relay: the landing pit held seeds before this deposit.
		if landed > 1 {
			seeds = landed
			b[last] = 0
			kind, from, captured = StepRelay, last, -1
			rt.Continuations++
			continue
		}

		rt.Passed = true
		rt.Board = b
		return rt, nil
	}
}
