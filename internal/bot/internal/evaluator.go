package internal

import "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"

// Structure scores for the greedy hand evaluation. Higher is better: a
// hand that keeps its bombs, straights and deuces intact outlasts one that
// sheds them early.
const (
	ScoreStraightFlush = 40.0
	ScoreQuad          = 30.0
	ScoreStraight      = 10.0
	ScoreTriple        = 8.0
	ScorePair          = 4.0
	ScoreDeuce         = 18.0
	ScoreHighSingle    = 2.0  // J, Q, K, A
	ScoreLowSingle     = -2.0 // 3..10
)

// EvaluateHand returns a heuristic strength score for a hand. It profiles
// the structure greedily and weighs each extracted shape.
func EvaluateHand(hand []domain.Card) float64 {
	return ScoreProfile(ProfileHand(hand))
}

// ScoreProfile weighs an already extracted profile.
func ScoreProfile(p HandProfile) float64 {
	score := 0.0
	score += float64(p.StraightFlushes) * ScoreStraightFlush
	score += float64(p.Quads) * ScoreQuad
	score += float64(p.Straights) * ScoreStraight
	score += float64(p.Triples) * ScoreTriple
	score += float64(p.Pairs) * ScorePair
	score += float64(p.Deuces) * ScoreDeuce
	score += float64(p.HighSingles) * ScoreHighSingle
	score += float64(p.LowSingles) * ScoreLowSingle
	return score
}
