package domain

import "encoding/json"

// Kind identifies a legal Big Two combination shape.
type Kind int32

const (
	Invalid Kind = iota
	Single
	Pair
	Triple
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var kindNames = map[Kind]string{
	Invalid:       "invalid",
	Single:        "single",
	Pair:          "pair",
	Triple:        "triple",
	Straight:      "straight",
	Flush:         "flush",
	FullHouse:     "full_house",
	FourOfAKind:   "four_of_a_kind",
	StraightFlush: "straight_flush",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name back into a kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	*k = Invalid
	return nil
}

// kindStrength orders the five-card kinds. Only meaningful for them: a
// five-card combination of a stronger kind beats any weaker kind regardless
// of keys.
func kindStrength(k Kind) int {
	switch k {
	case Straight:
		return 0
	case Flush:
		return 1
	case FullHouse:
		return 2
	case FourOfAKind:
		return 3
	case StraightFlush:
		return 4
	}
	return -1
}

// straightSequences enumerates every legal straight, lowest card first. A and
// 2 function as low cards only inside the first two listings; there is no
// wrap-around beyond these.
var straightSequences = [10][5]Rank{
	{Ace, Two, Three, Four, Five},
	{Two, Three, Four, Five, Six},
	{Three, Four, Five, Six, Seven},
	{Four, Five, Six, Seven, Eight},
	{Five, Six, Seven, Eight, Nine},
	{Six, Seven, Eight, Nine, Ten},
	{Seven, Eight, Nine, Ten, Jack},
	{Eight, Nine, Ten, Jack, Queen},
	{Nine, Ten, Jack, Queen, King},
	{Ten, Jack, Queen, King, Ace},
}

var straightMasks [10]uint16

func init() {
	for i, seq := range straightSequences {
		var m uint16
		for _, r := range seq {
			m |= 1 << uint(r)
		}
		straightMasks[i] = m
	}
}

// straightIndex returns the sequence index matching the rank set of five
// distinct ranks, or false when the set is no straight.
func straightIndex(cards []Card) (int, bool) {
	var mask uint16
	for _, c := range cards {
		bit := uint16(1) << uint(c.Rank)
		if mask&bit != 0 {
			return 0, false
		}
		mask |= bit
	}
	for i, m := range straightMasks {
		if m == mask {
			return i, true
		}
	}
	return 0, false
}

// rankKey places a rank-decided combination (full house, four of a kind) on
// the same scale as card powers. No two such combinations share a rank, so
// pinning the suit component to the top is safe.
func rankKey(r Rank) int32 {
	return int32(r)*SuitCount + int32(Spades)
}

// Combination is a classified set of cards. Cards are sorted by ascending
// power and Key is the comparison value inside the kind.
type Combination struct {
	Kind  Kind   `json:"kind"`
	Cards []Card `json:"cards,omitempty"`
	Key   int32  `json:"key"`
}

// Size returns the number of cards in the combination.
func (c Combination) Size() int {
	return len(c.Cards)
}

// Classify analyzes cards and returns the combination they form, with
// Kind Invalid when they form none. The input is not modified.
func Classify(cards []Card) Combination {
	sorted := SortedCopy(cards)
	switch len(sorted) {
	case 1:
		return Combination{Kind: Single, Cards: sorted, Key: sorted[0].Power()}
	case 2:
		if sorted[0].Rank == sorted[1].Rank {
			return Combination{Kind: Pair, Cards: sorted, Key: sorted[1].Power()}
		}
	case 3:
		if allSameRank(sorted) {
			return Combination{Kind: Triple, Cards: sorted, Key: sorted[2].Power()}
		}
	case 5:
		return classifyFive(sorted)
	}
	return Combination{Kind: Invalid}
}

func classifyFive(sorted []Card) Combination {
	counts := make(map[Rank]int, 5)
	for _, c := range sorted {
		counts[c.Rank]++
	}

	switch len(counts) {
	case 2:
		// Either 4+1 or 3+2 over exactly two ranks.
		for r, n := range counts {
			if n == 4 {
				return Combination{Kind: FourOfAKind, Cards: sorted, Key: rankKey(r)}
			}
			if n == 3 {
				return Combination{Kind: FullHouse, Cards: sorted, Key: rankKey(r)}
			}
		}
		return Combination{Kind: Invalid}
	case 5:
		flush := allSameSuit(sorted)
		seq, straight := straightIndex(sorted)
		switch {
		case flush && straight:
			return Combination{Kind: StraightFlush, Cards: sorted, Key: sequenceKey(sorted, seq)}
		case straight:
			return Combination{Kind: Straight, Cards: sorted, Key: sequenceKey(sorted, seq)}
		case flush:
			return Combination{Kind: Flush, Cards: sorted, Key: sorted[4].Power()}
		}
	}
	return Combination{Kind: Invalid}
}

// sequenceKey ranks a straight by the card sitting at the top of its listed
// sequence. In [A,2,3,4,5] that is the 5, not the 2.
func sequenceKey(cards []Card, seq int) int32 {
	top := straightSequences[seq][4]
	for _, c := range cards {
		if c.Rank == top {
			return c.Power()
		}
	}
	return -1
}

// CanBeat reports whether next beats prev. Both must be valid combinations of
// the same card count; among five-card hands a stronger kind beats any weaker
// kind, otherwise the keys decide.
func CanBeat(prev, next Combination) bool {
	if prev.Kind == Invalid || next.Kind == Invalid {
		return false
	}
	if prev.Size() != next.Size() {
		return false
	}
	if prev.Size() == 5 {
		ps, ns := kindStrength(prev.Kind), kindStrength(next.Kind)
		if ps != ns {
			return ns > ps
		}
		return next.Key > prev.Key
	}
	if prev.Kind != next.Kind {
		return false
	}
	return next.Key > prev.Key
}

func allSameRank(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	r := cards[0].Rank
	for _, c := range cards[1:] {
		if c.Rank != r {
			return false
		}
	}
	return true
}

func allSameSuit(cards []Card) bool {
	if len(cards) == 0 {
		return false
	}
	s := cards[0].Suit
	for _, c := range cards[1:] {
		if c.Suit != s {
			return false
		}
	}
	return true
}
