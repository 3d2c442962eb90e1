package app

import (
	"context"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// ExpireResult reports whether a deadline was enforced and where the
// lead went.
type ExpireResult struct {
	Expired   bool
	NextTurn  int
	NextIsBot bool
}

// installTimer arms the auto-pass countdown for a play no remaining card
// set can beat, exempting the seat that made it. Sequence numbers only
// ever grow so late expiry signals for old countdowns stay recognizable.
func (s *Service) installTimer(st *domain.GameState, exempt int) Event {
	st.TimerSeq++
	now := s.nowMs()
	dur := s.cfg.AutoPassDurationMs
	st.Timer = &domain.AutoPassTimer{
		SequenceID:  st.TimerSeq,
		ExemptSeat:  exempt,
		StartedAtMs: now,
		ExpiresAtMs: now + dur,
		DurationMs:  dur,
	}
	return Event{
		Kind: EventTimerStarted,
		Payload: TimerStartedPayload{
			SequenceID:     st.Timer.SequenceID,
			EndAtMs:        st.Timer.ExpiresAtMs,
			ExemptSeat:     exempt,
			TriggeringPlay: *st.LastPlay,
			RoomRevision:   st.Revision,
		},
	}
}

// ExpireTimer enforces a due auto-pass deadline: every non-exempt seat
// is force-passed at once, the trick clears and the lead returns to the
// exempt seat. A room whose deadline has not arrived is left untouched.
func (s *Service) ExpireTimer(ctx context.Context, code string) (*ExpireResult, error) {
	room, err := s.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	res := &ExpireResult{}
	st, err := s.commit(ctx, room, func(st *domain.GameState) ([]Event, error) {
		events, err := s.applyExpiry(st)
		if err != nil {
			return nil, err
		}
		res.Expired = true
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	res.NextTurn = st.CurrentTurn
	res.NextIsBot = res.Expired && nextIsBot(room, st)
	return res, nil
}

func (s *Service) applyExpiry(st *domain.GameState) ([]Event, error) {
	t := st.Timer
	if t == nil || !st.Phase.Active() || s.nowMs() < t.ExpiresAtMs {
		return nil, errNoChange
	}
	st.Timer = nil
	st.LastPlay = nil
	st.Passes = 0
	st.CurrentTurn = t.ExemptSeat
	return []Event{
		{
			Kind:    EventTimerExpired,
			Payload: TimerExpiredPayload{SequenceID: t.SequenceID, RoomRevision: st.Revision},
		},
		{
			Kind: EventTrickCleared,
			Payload: TrickClearedPayload{
				NextTurn:     t.ExemptSeat,
				Reason:       ClearReasonTimerExpired,
				RoomRevision: st.Revision,
			},
		},
	}, nil
}

// settleDueTimer enforces an overdue countdown before an action runs, so
// a stalled sweeper never lets stale deadlines leak into validation.
func (s *Service) settleDueTimer(ctx context.Context, room *domain.Room) {
	if _, err := s.commit(ctx, room, s.applyExpiry); err != nil {
		s.logger.Debug("room %s: settling due timer failed: %v", room.Code, err)
	}
}
