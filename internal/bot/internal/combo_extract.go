package internal

import "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"

// extractKind repeatedly pulls the lowest combination of the kind out of
// cards, returning the leftovers and the number extracted.
func extractKind(cards []domain.Card, kind domain.Kind) ([]domain.Card, int) {
	count := 0
	for {
		combos := domain.Enumerate(cards, kind)
		if len(combos) == 0 {
			return cards, count
		}
		cards = domain.RemoveCards(cards, combos[0].Cards)
		count++
	}
}

// extractQuads pulls complete four-of-a-kind rank groups. Twos stay put;
// four loose twos dominate more tricks than one bomb.
func extractQuads(cards []domain.Card) ([]domain.Card, int) {
	rankCounts := make(map[domain.Rank]int)
	for _, c := range cards {
		rankCounts[c.Rank]++
	}

	count := 0
	rem := cards[:0:0]
	for _, c := range cards {
		if c.Rank != domain.Two && rankCounts[c.Rank] == 4 {
			continue
		}
		rem = append(rem, c)
	}
	for rank, n := range rankCounts {
		if rank != domain.Two && n == 4 {
			count++
		}
	}
	return rem, count
}
