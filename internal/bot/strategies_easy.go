package bot

import (
	"sort"
)

// EasyPolicy plays the smallest legal move it can find: the lowest single
// on a lead, the cheapest beat when responding. It never protects hand
// structure and never chooses to pass while a beat exists.
type EasyPolicy struct{}

// Decide implements Policy.
func (EasyPolicy) Decide(view View) Move {
	moves := legalMoves(view)
	if len(moves) == 0 {
		return Move{Pass: true}
	}

	sort.Slice(moves, func(i, j int) bool {
		a, b := moves[i].Combo, moves[j].Combo
		if a.Size() != b.Size() {
			return a.Size() < b.Size()
		}
		return a.Key < b.Key
	})

	return Move{Cards: moves[0].Cards}
}
