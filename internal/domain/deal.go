package domain

import "math/rand"

// HandSize is the number of cards dealt to every seat.
const HandSize = 13

// Deal shuffles a fresh deck and deals HandSize cards to each of seats
// hands. With fewer than four seats the remainder stays out of play.
func Deal(rng *rand.Rand, seats int) [][]Card {
	deck := ShuffleDeck(rng, NewDeck())
	hands := make([][]Card, seats)
	for i := 0; i < seats; i++ {
		hand := make([]Card, HandSize)
		copy(hand, deck[i*HandSize:(i+1)*HandSize])
		SortCards(hand)
		hands[i] = hand
	}
	return hands
}

// OpeningSeat returns the seat holding the lowest dealt card. With a full
// four-seat deal that card is always the 3D.
func OpeningSeat(hands [][]Card) int {
	seat := 0
	low := Card{Rank: Two, Suit: Spades}
	found := false
	for i, hand := range hands {
		for _, c := range hand {
			if !found || c.Power() < low.Power() {
				low = c
				seat = i
				found = true
			}
		}
	}
	return seat
}
