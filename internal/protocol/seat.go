package protocol

import "github.com/katro-game/katro/internal/engine"

// Seat identifies one of a room's two seats. It is a closed enumeration
// mapped to a player exactly once at session start; nothing downstream
// compares the wire strings directly.
type Seat string

const (
	SeatA Seat = "a"
	SeatB Seat = "b"
)

// Valid reports whether s is one of the two seats.
func (s Seat) Valid() bool { return s == SeatA || s == SeatB }

// Player maps the seat to its side: seat A hosts player 1.
func (s Seat) Player() engine.Player {
	if s == SeatB {
		return engine.Player2
	}
	return engine.Player1
}

// Other returns the opposite seat.
func (s Seat) Other() Seat {
	if s == SeatA {
		return SeatB
	}
	return SeatA
}
