package domain

import "sort"

// FiveCardKinds lists the five-card kinds in ascending strength order.
var FiveCardKinds = []Kind{Straight, Flush, FullHouse, FourOfAKind, StraightFlush}

// Enumerate returns every combination of the given kind formable from hand,
// ordered by ascending key. Selections whose classification lands on a
// different kind are dropped, so enumerating Straight never yields straight
// flushes.
func Enumerate(hand []Card, kind Kind) []Combination {
	var out []Combination
	keep := func(cards []Card) {
		combo := Classify(cards)
		if combo.Kind == kind {
			out = append(out, combo)
		}
	}

	switch kind {
	case Single:
		for _, c := range hand {
			keep([]Card{c})
		}
	case Pair:
		for _, group := range groupByRank(hand) {
			chooseSubsets(group, 2, keep)
		}
	case Triple:
		for _, group := range groupByRank(hand) {
			chooseSubsets(group, 3, keep)
		}
	case Straight, StraightFlush:
		enumerateSequences(hand, keep)
	case Flush:
		for _, group := range groupBySuit(hand) {
			chooseSubsets(group, 5, keep)
		}
	case FullHouse:
		groups := groupByRank(hand)
		for ra, ga := range groups {
			if len(ga) < 3 {
				continue
			}
			chooseSubsets(ga, 3, func(triple []Card) {
				for rb, gb := range groups {
					if rb == ra || len(gb) < 2 {
						continue
					}
					chooseSubsets(gb, 2, func(pair []Card) {
						keep(append(append([]Card(nil), triple...), pair...))
					})
				}
			})
		}
	case FourOfAKind:
		for r, group := range groupByRank(hand) {
			if len(group) < 4 {
				continue
			}
			for _, kicker := range hand {
				if kicker.Rank == r {
					continue
				}
				keep(append(append([]Card(nil), group...), kicker))
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// enumerateSequences walks every straight sequence, picking each available
// suit per rank. Hands cap at 13 cards, so the products stay small.
func enumerateSequences(hand []Card, fn func([]Card)) {
	byRank := groupByRank(hand)
	pick := make([]Card, 0, 5)
	var walk func(seq [5]Rank, pos int)
	walk = func(seq [5]Rank, pos int) {
		if pos == 5 {
			fn(append([]Card(nil), pick...))
			return
		}
		for _, c := range byRank[seq[pos]] {
			pick = append(pick, c)
			walk(seq, pos+1)
			pick = pick[:len(pick)-1]
		}
	}
	for _, seq := range straightSequences {
		complete := true
		for _, r := range seq {
			if len(byRank[r]) == 0 {
				complete = false
				break
			}
		}
		if complete {
			walk(seq, 0)
		}
	}
}

// chooseSubsets invokes fn with every r-element subset of cards.
func chooseSubsets(cards []Card, r int, fn func([]Card)) {
	if r > len(cards) {
		return
	}
	pick := make([]Card, 0, r)
	var walk func(start int)
	walk = func(start int) {
		if len(pick) == r {
			fn(append([]Card(nil), pick...))
			return
		}
		for i := start; i <= len(cards)-(r-len(pick)); i++ {
			pick = append(pick, cards[i])
			walk(i + 1)
			pick = pick[:len(pick)-1]
		}
	}
	walk(0)
}

func groupByRank(cards []Card) map[Rank][]Card {
	groups := make(map[Rank][]Card)
	for _, c := range cards {
		groups[c.Rank] = append(groups[c.Rank], c)
	}
	return groups
}

func groupBySuit(cards []Card) map[Suit][]Card {
	groups := make(map[Suit][]Card)
	for _, c := range cards {
		groups[c.Suit] = append(groups[c.Suit], c)
	}
	return groups
}
