package app

import (
	"context"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// PlayResult reports a committed play back to the transport layer.
type PlayResult struct {
	Seat           int
	Combo          domain.Combination
	CardsRemaining int
	NextTurn       int
	Timer          *domain.AutoPassTimer
	MatchEnded     bool
	GameOver       bool
	Summary        *MatchSummary
	NextIsBot      bool
}

// MatchSummary carries the scoring outcome of a finished match.
type MatchSummary struct {
	MatchNumber int
	Winner      int
	MatchScores []int
	Cumulative  []int
	GameOver    bool
	FinalWinner int
}

// PlayCards validates and commits a play by the identity's seat. Any due
// auto-pass timer is settled first so the play is judged against the
// state the room would show had the deadline been enforced on time.
func (s *Service) PlayCards(ctx context.Context, code, identity string, cards []domain.Card) (*PlayResult, error) {
	room, seat, err := s.loadRoomSeat(ctx, code, identity)
	if err != nil {
		return nil, err
	}
	s.settleDueTimer(ctx, room)

	var res *PlayResult
	st, err := s.commit(ctx, room, func(st *domain.GameState) ([]Event, error) {
		r, events, err := s.applyPlay(st, seat, cards)
		if err != nil {
			return nil, err
		}
		res = r
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	res.NextIsBot = nextIsBot(room, st)
	if res.MatchEnded {
		s.mirrorScores(ctx, room, res.Summary.Cumulative)
	}
	return res, nil
}

// applyPlay runs the precondition chain in its documented order and then
// mutates the state. Precondition failures leave st untouched apart from
// the revision bump the commit loop discards.
func (s *Service) applyPlay(st *domain.GameState, seat int, cards []domain.Card) (*PlayResult, []Event, error) {
	if st.CurrentTurn != seat {
		return nil, nil, ErrNotYourTurn
	}
	if !st.Phase.Active() {
		return nil, nil, ErrGameNotActive
	}
	if !domain.ContainsAll(st.Hands[seat], cards) {
		return nil, nil, ErrCardNotInHand
	}
	combo := domain.Classify(cards)
	if combo.Kind == domain.Invalid {
		return nil, nil, ErrInvalidCombination
	}
	if st.Phase == domain.PhaseFirstPlay && !domain.ContainsCard(cards, st.OpeningCard()) {
		return nil, nil, ErrMustLeadWithThreeOfDiamonds
	}
	if st.LastPlay != nil && !domain.CanBeat(st.LastPlay.Combo, combo) {
		return nil, nil, ErrCannotBeat
	}
	if st.LastPlay != nil && combo.Kind == domain.Single {
		next := st.NextSeat(seat)
		if len(st.Hands[next]) == 1 {
			if required, ok := highestBeatingSingle(st.Hands[seat], st.LastPlay.Combo); ok && cards[0] != required {
				return nil, nil, &MustPlayHighestError{Required: required}
			}
		}
	}

	var events []Event
	if st.Timer != nil {
		// A countdown should never survive into another turn, but a
		// stale one is cancelled here rather than trusted.
		events = append(events, Event{
			Kind: EventTimerCancelled,
			Payload: TimerCancelledPayload{
				SequenceID:   st.Timer.SequenceID,
				Reason:       CancelReasonNewPlay,
				RoomRevision: st.Revision,
			},
		})
		st.Timer = nil
	}

	highest := domain.IsHighestPossible(combo, st.PlayedCards)

	st.Hands[seat] = domain.RemoveCards(st.Hands[seat], cards)
	st.PlayedCards = append(st.PlayedCards, combo.Cards...)
	st.LastPlay = &domain.LastPlay{Combo: combo, Seat: seat}
	st.Passes = 0
	if st.Phase == domain.PhaseFirstPlay {
		st.Phase = domain.PhasePlaying
	}
	events = append(events, Event{
		Kind: EventCardsPlayed,
		Payload: CardsPlayedPayload{
			SeatIndex:    seat,
			Cards:        combo.Cards,
			ComboKind:    combo.Kind,
			RoomRevision: st.Revision,
		},
	})

	res := &PlayResult{
		Seat:           seat,
		Combo:          combo,
		CardsRemaining: len(st.Hands[seat]),
	}

	if len(st.Hands[seat]) == 0 {
		st.CurrentTurn = seat
		summary, endEvents := s.finishMatch(st, seat)
		events = append(events, endEvents...)
		res.NextTurn = st.CurrentTurn
		res.MatchEnded = true
		res.GameOver = summary.GameOver
		res.Summary = summary
		return res, events, nil
	}

	if highest {
		events = append(events, s.installTimer(st, seat))
		res.Timer = st.Timer
	}
	st.CurrentTurn = st.NextSeat(seat)
	res.NextTurn = st.CurrentTurn
	return res, events, nil
}

// finishMatch applies scoring for a won match, flips the phase and emits
// the closing events. The caller has already emptied the winner's hand.
func (s *Service) finishMatch(st *domain.GameState, winner int) (*MatchSummary, []Event) {
	matchScores := domain.MatchScores(st.Hands, winner)
	for i, pts := range matchScores {
		st.Scores[i] += pts
	}
	st.LastMatchScores = matchScores
	st.LastMatchWinner = winner

	rows := make([]SeatMatchScore, len(matchScores))
	for i := range matchScores {
		rows[i] = SeatMatchScore{
			SeatIndex:      i,
			CardsRemaining: len(st.Hands[i]),
			MatchPoints:    matchScores[i],
			Cumulative:     st.Scores[i],
		}
	}
	events := []Event{{
		Kind: EventMatchEnded,
		Payload: MatchEndedPayload{
			MatchNumber:  st.MatchNumber,
			Winner:       winner,
			MatchScores:  rows,
			RoomRevision: st.Revision,
		},
	}}

	summary := &MatchSummary{
		MatchNumber: st.MatchNumber,
		Winner:      winner,
		MatchScores: matchScores,
		Cumulative:  append([]int(nil), st.Scores...),
		FinalWinner: -1,
	}

	if domain.GameOver(st.Scores, s.cfg.GameOverThreshold) {
		st.Phase = domain.PhaseGameOver
		st.FinalWinner = domain.FinalWinner(st.Scores)
		summary.GameOver = true
		summary.FinalWinner = st.FinalWinner
		events = append(events, Event{
			Kind: EventGameOver,
			Payload: GameOverPayload{
				FinalWinnerIndex: st.FinalWinner,
				FinalScores:      append([]int(nil), st.Scores...),
				RoomRevision:     st.Revision,
			},
		})
	} else {
		st.Phase = domain.PhaseMatchFinished
	}
	return summary, events
}

// mirrorScores copies cumulative totals onto the room roster for lobby
// listings. The game state row stays authoritative, so failures only log.
func (s *Service) mirrorScores(ctx context.Context, room *domain.Room, scores []int) {
	if err := s.store.UpdateSeatScores(ctx, room.Code, scores); err != nil {
		s.logger.Warn("room %s: mirroring seat scores failed: %v", room.Code, err)
	}
}
