package domain

// RemainingCards returns the full deck minus played and exclude. Used to ask
// what opponents could still be holding once a play is on the table.
func RemainingCards(played, exclude []Card) []Card {
	var gone [DeckSize]bool
	for _, c := range played {
		gone[c.Power()] = true
	}
	for _, c := range exclude {
		gone[c.Power()] = true
	}
	out := make([]Card, 0, DeckSize-len(played)-len(exclude))
	for _, c := range NewDeck() {
		if !gone[c.Power()] {
			out = append(out, c)
		}
	}
	return out
}

// IsHighestPossible reports whether no combination of the same card count,
// formable from the cards still outside played and combo itself, can beat
// combo. Exact for every kind: stronger five-card kinds are checked first,
// then stronger keys within the kind.
func IsHighestPossible(combo Combination, played []Card) bool {
	if combo.Kind == Invalid {
		return false
	}
	remaining := newRemainingIndex(RemainingCards(played, combo.Cards))
	switch combo.Kind {
	case Single:
		return !remaining.singleAbove(combo.Key)
	case Pair:
		return !remaining.pairAbove(combo.Key)
	case Triple:
		return !remaining.tripleAbove(combo.Key)
	default:
		return !remaining.fiveBeating(combo)
	}
}

// remainingIndex aggregates the out-of-play cards by rank and suit so the
// existence checks stay constant-time per sequence.
type remainingIndex struct {
	total        int
	maxPower     int32
	rankCount    [RankCount]int
	rankMaxSuit  [RankCount]Suit
	rankPresent  [RankCount][SuitCount]bool
	suitCount    [SuitCount]int
	suitMaxPower [SuitCount]int32
}

func newRemainingIndex(cards []Card) *remainingIndex {
	idx := &remainingIndex{total: len(cards), maxPower: -1}
	for s := range idx.suitMaxPower {
		idx.suitMaxPower[s] = -1
	}
	for _, c := range cards {
		p := c.Power()
		if p > idx.maxPower {
			idx.maxPower = p
		}
		idx.rankCount[c.Rank]++
		if idx.rankCount[c.Rank] == 1 || c.Suit > idx.rankMaxSuit[c.Rank] {
			idx.rankMaxSuit[c.Rank] = c.Suit
		}
		idx.rankPresent[c.Rank][c.Suit] = true
		idx.suitCount[c.Suit]++
		if p > idx.suitMaxPower[c.Suit] {
			idx.suitMaxPower[c.Suit] = p
		}
	}
	return idx
}

func (idx *remainingIndex) singleAbove(key int32) bool {
	return idx.maxPower > key
}

// pairAbove checks for a rank with two cards left whose best pair outranks
// key. The best pair at a rank is keyed by that rank's highest leftover suit.
func (idx *remainingIndex) pairAbove(key int32) bool {
	for r := Rank(0); r < RankCount; r++ {
		if idx.rankCount[r] >= 2 && rankSuitPower(r, idx.rankMaxSuit[r]) > key {
			return true
		}
	}
	return false
}

func (idx *remainingIndex) tripleAbove(key int32) bool {
	for r := Rank(0); r < RankCount; r++ {
		if idx.rankCount[r] >= 3 && rankSuitPower(r, idx.rankMaxSuit[r]) > key {
			return true
		}
	}
	return false
}

// fiveBeating walks the five-card kinds from the strongest down: any kind
// stronger than combo's beats with any key, the same kind needs a higher key,
// weaker kinds never beat.
func (idx *remainingIndex) fiveBeating(combo Combination) bool {
	strength := kindStrength(combo.Kind)
	for i := len(FiveCardKinds) - 1; i >= 0; i-- {
		kind := FiveCardKinds[i]
		ks := kindStrength(kind)
		if ks < strength {
			return false
		}
		floor := combo.Key
		if ks > strength {
			floor = -1
		}
		if idx.kindAbove(kind, floor) {
			return true
		}
	}
	return false
}

func (idx *remainingIndex) kindAbove(kind Kind, floor int32) bool {
	switch kind {
	case StraightFlush:
		for seq := range straightSequences {
			for s := Suit(0); s < SuitCount; s++ {
				if idx.sequenceInSuit(seq, s) && rankSuitPower(straightSequences[seq][4], s) > floor {
					return true
				}
			}
		}
	case FourOfAKind:
		// A kicker must exist alongside the four.
		for r := Rank(0); r < RankCount; r++ {
			if idx.rankCount[r] == SuitCount && idx.total > SuitCount && rankKey(r) > floor {
				return true
			}
		}
	case FullHouse:
		for r := Rank(0); r < RankCount; r++ {
			if idx.rankCount[r] < 3 || rankKey(r) <= floor {
				continue
			}
			for other := Rank(0); other < RankCount; other++ {
				if other != r && idx.rankCount[other] >= 2 {
					return true
				}
			}
		}
	case Flush:
		// Five cards of one suit always yield a flush-or-better hand keyed by
		// the suit's highest card.
		for s := Suit(0); s < SuitCount; s++ {
			if idx.suitCount[s] >= 5 && idx.suitMaxPower[s] > floor {
				return true
			}
		}
	case Straight:
		for seq := range straightSequences {
			top, ok := idx.bestSequenceKey(seq)
			if ok && top > floor {
				return true
			}
		}
	}
	return false
}

func (idx *remainingIndex) sequenceInSuit(seq int, s Suit) bool {
	for _, r := range straightSequences[seq] {
		if !idx.rankPresent[r][s] {
			return false
		}
	}
	return true
}

// bestSequenceKey returns the strongest key a straight over this sequence can
// take, which is the top rank paired with its best leftover suit.
func (idx *remainingIndex) bestSequenceKey(seq int) (int32, bool) {
	for _, r := range straightSequences[seq] {
		if idx.rankCount[r] == 0 {
			return 0, false
		}
	}
	top := straightSequences[seq][4]
	return rankSuitPower(top, idx.rankMaxSuit[top]), true
}

func rankSuitPower(r Rank, s Suit) int32 {
	return int32(r)*SuitCount + int32(s)
}
