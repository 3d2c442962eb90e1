package domain

import (
	"math/rand"
	"sort"
)

// NewDeck returns the full 52-card deck ordered by ascending power.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for r := Rank(0); r < RankCount; r++ {
		for s := Suit(0); s < SuitCount; s++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortCards orders cards in place by ascending power.
func SortCards(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Power() < cards[j].Power()
	})
}

// SortedCopy returns a power-sorted copy, leaving the input untouched.
func SortedCopy(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	SortCards(out)
	return out
}

// ContainsAll reports whether hand holds every card in cards. Each hand card
// satisfies at most one requested card, so duplicated requests fail.
func ContainsAll(hand, cards []Card) bool {
	used := make([]bool, len(hand))
	for _, c := range cards {
		found := false
		for i, h := range hand {
			if !used[i] && h == c {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RemoveCards returns hand without the given cards, each removed at most once.
func RemoveCards(hand, cards []Card) []Card {
	out := make([]Card, 0, len(hand))
	remove := make(map[Card]int, len(cards))
	for _, c := range cards {
		remove[c]++
	}
	for _, h := range hand {
		if n := remove[h]; n > 0 {
			remove[h] = n - 1
			continue
		}
		out = append(out, h)
	}
	return out
}

// ContainsCard reports whether cards holds c.
func ContainsCard(cards []Card, c Card) bool {
	for _, x := range cards {
		if x == c {
			return true
		}
	}
	return false
}

// LowestCard returns the lowest-power card in cards. Cards must be non-empty.
func LowestCard(cards []Card) Card {
	low := cards[0]
	for _, c := range cards[1:] {
		if c.Power() < low.Power() {
			low = c
		}
	}
	return low
}

// HighestCard returns the highest-power card in cards. Cards must be non-empty.
func HighestCard(cards []Card) Card {
	high := cards[0]
	for _, c := range cards[1:] {
		if c.Power() > high.Power() {
			high = c
		}
	}
	return high
}
