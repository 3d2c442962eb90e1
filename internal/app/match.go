package app

import (
	"context"
	"errors"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// StartResult reports a freshly dealt match.
type StartResult struct {
	MatchNumber int
	Phase       domain.Phase
	CurrentTurn int
	NextIsBot   bool
}

// StartGame deals the first match of a game. The state row is written
// create-only so two racing starts cannot deal twice; the loser gets
// ErrAlreadyStarted.
func (s *Service) StartGame(ctx context.Context, code string) (*StartResult, error) {
	room, err := s.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	n := room.SeatCount()
	if n < MinPlayersToStartGame {
		return nil, ErrTooFewPlayers
	}

	hands := domain.Deal(s.rng, n)
	st := &domain.GameState{
		Phase:           domain.PhaseFirstPlay,
		MatchNumber:     1,
		CurrentTurn:     domain.OpeningSeat(hands),
		Hands:           hands,
		PlayedCards:     []domain.Card{},
		Scores:          make([]int, n),
		LastMatchWinner: -1,
		FinalWinner:     -1,
		Revision:        1,
	}
	events := dealEvents(room, st)

	if _, err := s.store.SaveGameState(ctx, code, st, "", events); err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, ErrAlreadyStarted
		}
		return nil, s.storeErr(err)
	}
	s.publish(ctx, code, events)

	return &StartResult{
		MatchNumber: st.MatchNumber,
		Phase:       st.Phase,
		CurrentTurn: st.CurrentTurn,
		NextIsBot:   nextIsBot(room, st),
	}, nil
}

// BeginNextMatch deals the following match of a game whose previous
// match has finished. The previous winner takes the opening lead and is
// free to open with anything.
func (s *Service) BeginNextMatch(ctx context.Context, code string) (*StartResult, error) {
	room, err := s.loadRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	var res *StartResult
	_, err = s.commit(ctx, room, func(st *domain.GameState) ([]Event, error) {
		if st.Phase == domain.PhaseGameOver {
			return nil, ErrGameNotActive
		}
		if st.Phase != domain.PhaseMatchFinished {
			return nil, ErrMatchNotFinished
		}
		st.MatchNumber++
		st.Hands = domain.Deal(s.rng, room.SeatCount())
		st.PlayedCards = []domain.Card{}
		st.LastPlay = nil
		st.Passes = 0
		st.Timer = nil
		st.Phase = domain.PhasePlaying
		st.CurrentTurn = st.LastMatchWinner
		res = &StartResult{
			MatchNumber: st.MatchNumber,
			Phase:       st.Phase,
			CurrentTurn: st.CurrentTurn,
		}
		return dealEvents(room, st), nil
	})
	if err != nil {
		return nil, err
	}
	res.NextIsBot = room.Seats[res.CurrentTurn].IsBot
	return res, nil
}

// dealEvents builds the per-seat private hand events plus the broadcast
// announcing the new match.
func dealEvents(room *domain.Room, st *domain.GameState) []Event {
	events := make([]Event, 0, len(st.Hands)+1)
	for i, hand := range st.Hands {
		events = append(events, Event{
			Kind: EventHandDealt,
			Payload: HandDealtPayload{
				SeatIndex:    i,
				Hand:         hand,
				RoomRevision: st.Revision,
			},
			Recipients: []string{room.Seats[i].Identity},
		})
	}
	events = append(events, Event{
		Kind: EventMatchStarted,
		Payload: MatchStartedPayload{
			MatchNumber:  st.MatchNumber,
			Phase:        st.Phase,
			CurrentTurn:  st.CurrentTurn,
			RoomRevision: st.Revision,
		},
	})
	return events
}
