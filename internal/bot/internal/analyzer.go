package internal

import "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"

// BossStats describes how much of the unseen deck a hand outranks.
type BossStats struct {
	UnseenCards []domain.Card
	BossSingles []domain.Card
	Dominance   float64
}

// IsBossCard reports whether the card sits in the boss set.
func (s BossStats) IsBossCard(c domain.Card) bool {
	return domain.ContainsCard(s.BossSingles, c)
}

// AnalyzeHand counts cards against the unseen remainder of the deck. A
// single is boss when no unseen card outranks it; dominance compares the
// average power of the hand against the average power still out there.
func AnalyzeHand(hand, played []domain.Card) BossStats {
	unseen := domain.RemainingCards(played, hand)
	stats := BossStats{UnseenCards: unseen}

	if len(unseen) == 0 {
		stats.Dominance = 1.0
		stats.BossSingles = append([]domain.Card(nil), hand...)
		return stats
	}
	if len(hand) == 0 {
		return stats
	}

	highestUnseen := unseen[0].Power()
	unseenPower := int32(0)
	for _, c := range unseen {
		if p := c.Power(); p > highestUnseen {
			highestUnseen = p
		}
		unseenPower += c.Power()
	}

	handPower := int32(0)
	for _, c := range hand {
		if c.Power() > highestUnseen {
			stats.BossSingles = append(stats.BossSingles, c)
		}
		handPower += c.Power()
	}

	avgHand := float64(handPower) / float64(len(hand))
	avgUnseen := float64(unseenPower) / float64(len(unseen))
	stats.Dominance = avgHand / (avgHand + avgUnseen)

	return stats
}
