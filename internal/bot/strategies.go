package bot

import (
	botinternal "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot/internal"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// legalMoves generates the candidate plays for a view. On the first play
// of the opening match every candidate must contain the seat's lowest
// card, which is the required opener.
func legalMoves(view View) []botinternal.ValidMove {
	moves := botinternal.ValidMoves(view.Hand, view.LastCombo())
	if view.FirstPlay && len(view.Hand) > 0 {
		moves = botinternal.MovesWithCard(moves, domain.LowestCard(view.Hand))
	}
	return moves
}

// forcedSingle returns the single the engine will demand when a single is
// on the table and the next seat is down to its last card.
func forcedSingle(view View, moves []botinternal.ValidMove) (botinternal.ValidMove, bool) {
	last := view.LastCombo()
	if last == nil || last.Kind != domain.Single || view.NextSeatCount() != 1 {
		return botinternal.ValidMove{}, false
	}
	return botinternal.HighestSingle(moves)
}
