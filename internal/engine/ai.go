package engine

import "math/rand"

// RandomOpening picks a uniformly random non-empty pit from p's rows,
// for the built-in computer opponent. Returns false when p has no seeds
// left to play.
func RandomOpening(b Board, p Player, rng *rand.Rand) (int, bool) {
	var choices []int
	for _, row := range p.Rows() {
		for c := 0; c < Cols; c++ {
			if idx := row*Cols + c; b[idx] > 0 {
				choices = append(choices, idx)
			}
		}
	}
	if len(choices) == 0 {
		return 0, false
	}
	return choices[rng.Intn(len(choices))], true
}
