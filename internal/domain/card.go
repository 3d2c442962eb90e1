package domain

import (
	"encoding/json"
	"fmt"
)

// Rank is a Big Two card rank. Three is the lowest, Two the highest.
type Rank int32

const (
	Three Rank = iota
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
	Two
)

// Suit is a Big Two card suit. Diamonds is the lowest, Spades the highest.
type Suit int32

const (
	Diamonds Suit = iota
	Clubs
	Hearts
	Spades
)

const (
	// RankCount is the number of distinct ranks in the deck.
	RankCount = 13
	// SuitCount is the number of distinct suits in the deck.
	SuitCount = 4
	// DeckSize is the number of cards in a full deck.
	DeckSize = RankCount * SuitCount
)

var rankSymbols = [RankCount]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}

var suitSymbols = [SuitCount]string{"D", "C", "H", "S"}

// String returns the wire symbol for the rank ("3".."10", "J", "Q", "K", "A", "2").
func (r Rank) String() string {
	if r < 0 || r >= RankCount {
		return fmt.Sprintf("Rank(%d)", int32(r))
	}
	return rankSymbols[r]
}

// String returns the wire symbol for the suit ("D", "C", "H", "S").
func (s Suit) String() string {
	if s < 0 || s >= SuitCount {
		return fmt.Sprintf("Suit(%d)", int32(s))
	}
	return suitSymbols[s]
}

// ParseRank maps a wire symbol back to a rank.
func ParseRank(symbol string) (Rank, error) {
	for i, s := range rankSymbols {
		if s == symbol {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", symbol)
}

// ParseSuit maps a wire symbol back to a suit.
func ParseSuit(symbol string) (Suit, error) {
	for i, s := range suitSymbols {
		if s == symbol {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", symbol)
}

// Card is a single playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// ThreeOfDiamonds is the lowest card in the deck and opens the first match.
var ThreeOfDiamonds = Card{Rank: Three, Suit: Diamonds}

// Power collapses (rank, suit) into the total order used everywhere:
// rank decides first, suit breaks ties. 3D is 0, 2S is 51.
func (c Card) Power() int32 {
	return int32(c.Rank)*SuitCount + int32(c.Suit)
}

// String returns the compact id, e.g. "3D", "10C", "KS".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// ParseCard parses a compact id produced by String.
func ParseCard(id string) (Card, error) {
	if len(id) < 2 {
		return Card{}, fmt.Errorf("malformed card %q", id)
	}
	rank, err := ParseRank(id[:len(id)-1])
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(id[len(id)-1:])
	if err != nil {
		return Card{}, err
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// cardWire is the canonical JSON shape shared by RPC payloads, events and
// storage rows: {"rank":"K","suit":"S"}.
type cardWire struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON encodes the card in the canonical wire shape.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardWire{Rank: c.Rank.String(), Suit: c.Suit.String()})
}

// UnmarshalJSON decodes the canonical wire shape, rejecting unknown symbols.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w cardWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rank, err := ParseRank(w.Rank)
	if err != nil {
		return err
	}
	suit, err := ParseSuit(w.Suit)
	if err != nil {
		return err
	}
	c.Rank, c.Suit = rank, suit
	return nil
}
