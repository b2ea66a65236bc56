// Package engine implements the Katro move-resolution rules: sowing,
// capture, relay chaining and win detection over the 4x8 board. It is a
// pure state machine with no I/O; both peers of an online match run it
// independently and must derive identical boards from identical moves.
package engine

// Board geometry. Rows 2-3 belong to Player 1 (bottom), rows 1-0 to
// Player 2 (top). Each player's front row faces the opponent.
const (
	Rows = 4
	Cols = 8
	Pits = Rows * Cols

	// PathLen is the number of pits in one player's circular sow path.
	PathLen = 2 * Cols

	DefaultSeedsPerPit = 3
)

// Board holds the seed count of every pit, indexed row*Cols+col.
type Board [Pits]int

// NewBoard returns a board with every pit holding seedsPerPit seeds.
func NewBoard(seedsPerPit int) Board {
	var b Board
	for i := range b {
		b[i] = seedsPerPit
	}
	return b
}

// Total returns the number of seeds on the whole board.
func (b Board) Total() int {
	sum := 0
	for _, n := range b {
		sum += n
	}
	return sum
}

// Player identifies one of the two sides.
type Player int

const (
	Player1 Player = 1
	Player2 Player = 2
)

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// FrontRow returns the row of p adjacent to the opponent's territory.
func (p Player) FrontRow() int {
	if p == Player1 {
		return 2
	}
	return 1
}

// BackRow returns the row of p farthest from the opponent's territory.
func (p Player) BackRow() int {
	if p == Player1 {
		return 3
	}
	return 0
}

// Rows returns p's two owned rows, front row first.
func (p Player) Rows() [2]int {
	return [2]int{p.FrontRow(), p.BackRow()}
}

// OwnsPit reports whether pit idx lies in one of p's rows.
func (p Player) OwnsPit(idx int) bool {
	row := idx / Cols
	return row == p.FrontRow() || row == p.BackRow()
}

// SideSum returns the seed total across p's two rows. A player has lost
// exactly when their side sums to zero.
func (b Board) SideSum(p Player) int {
	sum := 0
	for _, row := range p.Rows() {
		for c := 0; c < Cols; c++ {
			sum += b[row*Cols+c]
		}
	}
	return sum
}

// SowPath returns p's circular sowing order: the front row left to
// right, then the back row right to left. Sowing only ever visits the
// mover's own sixteen pits.
func SowPath(p Player) [PathLen]int {
	var path [PathLen]int
	front, back := p.FrontRow(), p.BackRow()
	for c := 0; c < Cols; c++ {
		path[c] = front*Cols + c
		path[Cols+c] = back*Cols + (Cols - 1 - c)
	}
	return path
}

// pathIndex returns the position of pit idx within path.
func pathIndex(path [PathLen]int, idx int) int {
	for i, p := range path {
		if p == idx {
			return i
		}
	}
	return -1
}

// EffectiveFrontRow returns the row captures read on p's side: the
// literal front row unless it is empty across all eight columns, in
// which case the back row stands in for it.
func (b Board) EffectiveFrontRow(p Player) int {
	front := p.FrontRow()
	for c := 0; c < Cols; c++ {
		if b[front*Cols+c] > 0 {
			return front
		}
	}
	return p.BackRow()
}
