package internal

import (
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// ValidMove is one legal play candidate with its classification attached.
type ValidMove struct {
	Cards []domain.Card
	Combo domain.Combination
}

// ValidMoves returns every legal play for the hand. A nil last combination
// means the seat leads and may open with any kind; otherwise only
// combinations of matching size that beat it qualify. Five-card plays can
// be answered by any stronger five-card kind.
func ValidMoves(hand []domain.Card, last *domain.Combination) []ValidMove {
	if last == nil {
		return leadMoves(hand)
	}
	return beatingMoves(hand, *last)
}

func leadMoves(hand []domain.Card) []ValidMove {
	var moves []ValidMove
	moves = appendKind(moves, hand, domain.Single)
	moves = appendKind(moves, hand, domain.Pair)
	moves = appendKind(moves, hand, domain.Triple)
	for _, kind := range domain.FiveCardKinds {
		moves = appendKind(moves, hand, kind)
	}
	return moves
}

func beatingMoves(hand []domain.Card, last domain.Combination) []ValidMove {
	kinds := []domain.Kind{last.Kind}
	if last.Size() == 5 {
		kinds = domain.FiveCardKinds
	}

	var moves []ValidMove
	for _, kind := range kinds {
		for _, combo := range domain.Enumerate(hand, kind) {
			if domain.CanBeat(last, combo) {
				moves = append(moves, ValidMove{Cards: combo.Cards, Combo: combo})
			}
		}
	}
	return moves
}

func appendKind(moves []ValidMove, hand []domain.Card, kind domain.Kind) []ValidMove {
	for _, combo := range domain.Enumerate(hand, kind) {
		moves = append(moves, ValidMove{Cards: combo.Cards, Combo: combo})
	}
	return moves
}

// MovesWithCard narrows moves to those containing the required card.
func MovesWithCard(moves []ValidMove, required domain.Card) []ValidMove {
	var out []ValidMove
	for _, m := range moves {
		if domain.ContainsCard(m.Cards, required) {
			out = append(out, m)
		}
	}
	return out
}

// HighestSingle returns the strongest single among moves.
func HighestSingle(moves []ValidMove) (ValidMove, bool) {
	var best ValidMove
	found := false
	for _, m := range moves {
		if m.Combo.Kind != domain.Single {
			continue
		}
		if !found || m.Combo.Key > best.Combo.Key {
			best = m
			found = true
		}
	}
	return best, found
}
