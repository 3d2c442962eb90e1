package bot

import (
	"sort"

	botinternal "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot/internal"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// HardPolicy layers card counting onto the medium scorer. It tracks which
// cards are still unseen, treats unbeatable singles as table control,
// refuses to feed cheap singles to a seat that is nearly out, and spends
// its boss cards only to block, finish or seize a dominant position.
type HardPolicy struct {
	Tuning botinternal.BotTuning
}

// Decide implements Policy.
func (p HardPolicy) Decide(view View) Move {
	moves := legalMoves(view)
	if len(moves) == 0 {
		return Move{Pass: true}
	}

	if forced, ok := forcedSingle(view, moves); ok {
		return Move{Cards: forced.Cards}
	}

	stats := botinternal.AnalyzeHand(view.Hand, view.PlayedCards)
	threat := botinternal.DetectThreat(view.HandCounts, view.Seat, p.Tuning.ThreatThreshold)
	weights := p.Tuning.ForPhase(botinternal.DetectPhase(view.HandCounts))

	// Hold unbeatable cards back while the table is under control; a boss
	// kept in hand decides the endgame. It comes out to block or finish.
	withhold := stats.Dominance > 0.6 && !threat && len(view.Hand) > 3
	if view.LastPlay == nil && len(view.Hand) <= 5 && !threat {
		withhold = true
	}

	type candidate struct {
		scored botinternal.ScoredMove
		score  float64
		boss   bool
	}

	scored := botinternal.BuildScoredMoves(view.Hand, moves, weights, false)
	candidates := make([]candidate, 0, len(scored))
	hasBoss := false
	for _, sm := range scored {
		boss := sm.Move.Combo.Kind == domain.Single && stats.IsBossCard(sm.Move.Cards[0])
		score := sm.Score

		if boss {
			hasBoss = true
			finishes := len(sm.Remaining) == 0
			if withhold && !finishes {
				score -= 10.0
			} else {
				score += 20.0
			}
		}

		if threat {
			if sm.Move.Combo.Kind == domain.Single && sm.Move.Combo.Key < 40 {
				// Never hand a short stack an easy single.
				score -= 100.0
			}
			if boss {
				score += 50.0
			}
		}

		candidates = append(candidates, candidate{scored: sm, score: score, boss: boss})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if threat || candidates[i].boss || candidates[j].boss {
			return candidates[i].scored.Move.Combo.Key > candidates[j].scored.Move.Combo.Key
		}
		return candidates[i].scored.Move.Combo.Key < candidates[j].scored.Move.Combo.Key
	})

	best := candidates[0]
	if view.LastPlay != nil && !hasBoss {
		keep := botinternal.ScoreHand(view.Hand, weights)
		if best.score < keep+p.Tuning.PassThreshold {
			return Move{Pass: true}
		}
	}

	return Move{Cards: best.scored.Move.Cards}
}
