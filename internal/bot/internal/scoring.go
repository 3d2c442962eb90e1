package internal

import "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"

// PhaseWeights tune move scoring for a specific phase.
type PhaseWeights struct {
	HandScoreWeight      float64
	StraightCardWeight   float64
	PairWeight           float64
	TripleWeight         float64
	QuadWeight           float64
	SingleWeight         float64
	TotalCardWeight      float64
	UseTwoPenalty        float64
	UseBombPenalty       float64
	UseHighCardPenalty   float64
	FinishBonus          float64
	BlockerHighCardBonus float64
}

// BotTuning defines phase weights and thresholds for a bot difficulty.
type BotTuning struct {
	Opening         PhaseWeights
	Mid             PhaseWeights
	End             PhaseWeights
	PassThreshold   float64
	ThreatThreshold int
}

// ForPhase returns the weights that match the supplied phase.
func (t BotTuning) ForPhase(phase GamePhase) PhaseWeights {
	switch phase {
	case PhaseOpening:
		return t.Opening
	case PhaseEnd:
		return t.End
	default:
		return t.Mid
	}
}

// ScoredMove holds a move with its computed score and supporting metadata.
type ScoredMove struct {
	Move             ValidMove
	Score            float64
	Remaining        []domain.Card
	RemainingProfile HandProfile
}

// ScoreHand evaluates a hand using the configured weights and structure profile.
func ScoreHand(hand []domain.Card, weights PhaseWeights) float64 {
	return scoreHandWithProfile(ProfileHand(hand), weights)
}

// BuildScoredMoves scores each move by the hand it leaves behind, with
// penalties for spending twos, bombs and high cards, and an optional bias
// toward tall singles when an opponent is close to going out.
func BuildScoredMoves(hand []domain.Card, moves []ValidMove, weights PhaseWeights, threat bool) []ScoredMove {
	scored := make([]ScoredMove, 0, len(moves))
	for _, move := range moves {
		remaining := domain.RemoveCards(hand, move.Cards)
		profile := ProfileHand(remaining)
		score := scoreHandWithProfile(profile, weights)

		if len(remaining) == 0 {
			score += weights.FinishBonus
		}

		score -= weights.UseHighCardPenalty * float64(move.Combo.Key)

		if move.Combo.Kind == domain.FourOfAKind || move.Combo.Kind == domain.StraightFlush {
			score -= weights.UseBombPenalty
		}

		twosUsed := countRank(move.Cards, domain.Two)
		score -= weights.UseTwoPenalty * float64(twosUsed)

		if threat && move.Combo.Kind == domain.Single {
			score += weights.BlockerHighCardBonus * float64(move.Combo.Key)
		}

		scored = append(scored, ScoredMove{
			Move:             move,
			Score:            score,
			Remaining:        remaining,
			RemainingProfile: profile,
		})
	}
	return scored
}

// DetectThreat reports whether any opponent is at or below the card threshold.
func DetectThreat(handCounts []int, seat, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	for i, n := range handCounts {
		if i == seat || n == 0 {
			continue
		}
		if n <= threshold {
			return true
		}
	}
	return false
}

func scoreHandWithProfile(profile HandProfile, weights PhaseWeights) float64 {
	score := 0.0
	score += weights.HandScoreWeight * ScoreProfile(profile)
	score += weights.StraightCardWeight * float64(profile.StraightCards)
	score += weights.PairWeight * float64(profile.Pairs)
	score += weights.TripleWeight * float64(profile.Triples)
	score += weights.QuadWeight * float64(profile.Quads+profile.StraightFlushes)
	score += weights.SingleWeight * float64(profile.Singles())
	score += weights.TotalCardWeight * float64(profile.TotalCards)
	return score
}

func countRank(cards []domain.Card, rank domain.Rank) int {
	count := 0
	for _, c := range cards {
		if c.Rank == rank {
			count++
		}
	}
	return count
}
