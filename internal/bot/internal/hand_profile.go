package internal

import "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"

// HandProfile summarizes a hand's structure after a greedy extraction pass:
// strongest five-card shapes first, then rank sets, then loose singles.
// Twos never join a set here; a lone two outranks most structures and is
// counted on its own.
type HandProfile struct {
	TotalCards      int
	StraightFlushes int
	Quads           int
	Straights       int
	StraightCards   int
	Triples         int
	Pairs           int
	Deuces          int
	HighSingles     int
	LowSingles      int
}

// Singles returns the number of loose cards left after extraction.
func (p HandProfile) Singles() int {
	return p.Deuces + p.HighSingles + p.LowSingles
}

// ProfileHand extracts combo counts from a hand using a greedy structure pass.
func ProfileHand(hand []domain.Card) HandProfile {
	profile := HandProfile{TotalCards: len(hand)}
	if len(hand) == 0 {
		return profile
	}

	cards := domain.SortedCopy(hand)

	cards, profile.StraightFlushes = extractKind(cards, domain.StraightFlush)
	cards, profile.Quads = extractQuads(cards)
	cards, profile.Straights = extractKind(cards, domain.Straight)
	profile.StraightCards = 5 * (profile.StraightFlushes + profile.Straights)

	rankCounts := make(map[domain.Rank]int)
	for _, c := range cards {
		rankCounts[c.Rank]++
	}
	for rank, count := range rankCounts {
		if rank == domain.Two {
			profile.Deuces += count
			continue
		}
		switch count {
		case 3:
			profile.Triples++
		case 2:
			profile.Pairs++
		case 1:
			if rank >= domain.Jack {
				profile.HighSingles++
			} else {
				profile.LowSingles++
			}
		}
	}

	return profile
}
