package bot

import (
	"sort"

	botinternal "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot/internal"
)

// MediumPolicy sheds cards while keeping hand structure intact. Every
// candidate is scored by the strength of what it leaves behind under
// phase weights, and the policy passes rather than wreck its hand for a
// marginal beat. When the next seat is one card from out it plays its
// tallest beating single, as the table rules demand.
type MediumPolicy struct {
	Tuning botinternal.BotTuning
}

// Decide implements Policy.
func (p MediumPolicy) Decide(view View) Move {
	moves := legalMoves(view)
	if len(moves) == 0 {
		return Move{Pass: true}
	}

	if forced, ok := forcedSingle(view, moves); ok {
		return Move{Cards: forced.Cards}
	}

	phase := botinternal.DetectPhase(view.HandCounts)
	weights := p.Tuning.ForPhase(phase)
	threat := botinternal.DetectThreat(view.HandCounts, view.Seat, p.Tuning.ThreatThreshold)

	scored := botinternal.BuildScoredMoves(view.Hand, moves, weights, threat)
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Save the taller cards when scores tie.
		return scored[i].Move.Combo.Key < scored[j].Move.Combo.Key
	})

	best := scored[0]
	if view.LastPlay != nil {
		keep := botinternal.ScoreHand(view.Hand, weights)
		if best.Score < keep+p.Tuning.PassThreshold {
			return Move{Pass: true}
		}
	}

	return Move{Cards: best.Move.Cards}
}
