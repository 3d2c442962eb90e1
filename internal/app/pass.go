package app

import (
	"context"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// PassResult reports a committed pass back to the transport layer.
type PassResult struct {
	Seat         int
	NextTurn     int
	Passes       int
	TrickCleared bool
	Timer        *domain.AutoPassTimer
	NextIsBot    bool
	NoOp         bool
}

// PlayerPass validates and commits a pass by the identity's seat. A pass
// that arrives just after a trick clear, while the seat still leads an
// empty trick, is treated as an idempotent no-op rather than an error.
func (s *Service) PlayerPass(ctx context.Context, code, identity string) (*PassResult, error) {
	room, seat, err := s.loadRoomSeat(ctx, code, identity)
	if err != nil {
		return nil, err
	}
	s.settleDueTimer(ctx, room)

	var res *PassResult
	st, err := s.commit(ctx, room, func(st *domain.GameState) ([]Event, error) {
		r, events, err := s.applyPass(st, seat)
		if r != nil {
			res = r
		}
		return events, err
	})
	if err != nil {
		return nil, err
	}
	res.NextIsBot = nextIsBot(room, st)
	return res, nil
}

func (s *Service) applyPass(st *domain.GameState, seat int) (*PassResult, []Event, error) {
	if st.CurrentTurn != seat {
		return nil, nil, ErrNotYourTurn
	}
	if !st.Phase.Active() {
		return nil, nil, ErrGameNotActive
	}
	if st.LastPlay == nil {
		if st.Passes == 0 {
			res := &PassResult{Seat: seat, NextTurn: st.CurrentTurn, NoOp: true}
			return res, nil, errNoChange
		}
		return nil, nil, ErrCannotPassWhenLeading
	}
	if st.LastPlay.Combo.Kind == domain.Single {
		next := st.NextSeat(seat)
		if len(st.Hands[next]) == 1 {
			if required, ok := highestBeatingSingle(st.Hands[seat], st.LastPlay.Combo); ok {
				return nil, nil, &MustPlayHighestError{Required: required}
			}
		}
	}

	st.Passes++
	events := []Event{{
		Kind:    EventPlayerPassed,
		Payload: PlayerPassedPayload{SeatIndex: seat, RoomRevision: st.Revision},
	}}
	res := &PassResult{Seat: seat}

	if st.Passes >= st.SeatCount()-1 {
		// Everyone else has passed on the standing play; the trick
		// clears. An active countdown routes the fresh lead back to
		// its exempt seat instead of simple rotation.
		lead := st.NextSeat(seat)
		if st.Timer != nil {
			lead = st.Timer.ExemptSeat
			st.Timer = nil
		}
		st.LastPlay = nil
		st.Passes = 0
		st.CurrentTurn = lead
		events = append(events, Event{
			Kind: EventTrickCleared,
			Payload: TrickClearedPayload{
				NextTurn:     lead,
				Reason:       ClearReasonThreePasses,
				RoomRevision: st.Revision,
			},
		})
		res.TrickCleared = true
	} else {
		st.CurrentTurn = st.NextSeat(seat)
	}

	res.NextTurn = st.CurrentTurn
	res.Passes = st.Passes
	res.Timer = st.Timer
	return res, events, nil
}
