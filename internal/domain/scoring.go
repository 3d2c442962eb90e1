package domain

// DefaultGameOverThreshold is the cumulative total that ends the game.
const DefaultGameOverThreshold = 101

// PenaltyMultiplier returns the bracket multiplier applied to a losing
// hand size: 1 for 1..4 cards left, 2 for 5..9, 3 for 10..13.
func PenaltyMultiplier(cardsLeft int) int {
	switch {
	case cardsLeft <= 0:
		return 0
	case cardsLeft <= 4:
		return 1
	case cardsLeft <= 9:
		return 2
	default:
		return 3
	}
}

// MatchPenalty returns the points a seat concedes for the cards it still
// holds when a match ends.
func MatchPenalty(cardsLeft int) int {
	return cardsLeft * PenaltyMultiplier(cardsLeft)
}

// MatchScores computes the per-seat scores for a finished match: the winner
// scores zero, every other seat scores cards left times the bracket
// multiplier.
func MatchScores(hands [][]Card, winner int) []int {
	scores := make([]int, len(hands))
	for seat, hand := range hands {
		if seat == winner {
			continue
		}
		scores[seat] = MatchPenalty(len(hand))
	}
	return scores
}

// GameOver reports whether any cumulative total has reached threshold.
func GameOver(scores []int, threshold int) bool {
	for _, s := range scores {
		if s >= threshold {
			return true
		}
	}
	return false
}

// FinalWinner returns the seat with the lowest cumulative total, ties going
// to the lowest seat index.
func FinalWinner(scores []int) int {
	winner := 0
	for seat, s := range scores {
		if s < scores[winner] {
			winner = seat
		}
	}
	return winner
}
