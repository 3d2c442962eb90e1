package nakama

import (
	"encoding/json"
	"errors"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// Wire error kinds. Clients branch on the kind, never on the message.
const (
	kindRoomNotFound      = "room_not_found"
	kindNotAMember        = "not_a_member"
	kindStateMissing      = "state_missing"
	kindNotYourTurn       = "not_your_turn"
	kindGameNotActive     = "game_not_active"
	kindCardNotInHand     = "card_not_in_hand"
	kindInvalidCombo      = "invalid_combination"
	kindMustLeadLowest    = "must_lead_with_three_of_diamonds"
	kindCannotBeat        = "cannot_beat"
	kindMustPlayHighest   = "must_play_highest_beating_single"
	kindCannotPassLeading = "cannot_pass_when_leading"
	kindMatchNotFinished  = "match_not_finished"
	kindAlreadyStarted    = "already_started"
	kindTooFewPlayers     = "too_few_players"
	kindRoomFull          = "room_full"
	kindConcurrentUpdate  = "concurrent_update"
	kindStoreUnavailable  = "store_unavailable"
	kindTimeoutExceeded   = "timeout_exceeded"
	kindUnauthorized      = "unauthorized"
	kindBadRequest        = "bad_request"
	kindInternal          = "internal"
)

// Requests. Cards arrive as [{"rank":"K","suit":"S"}, ...] and unmarshal
// straight into the domain card type.

type createRoomRequest struct {
	ActorIdentity string `json:"actor_identity"`
	SeatCount     int    `json:"seat_count,omitempty"`
	BotCount      *int   `json:"bot_count,omitempty"`
	BotDifficulty string `json:"bot_difficulty,omitempty"`
}

type joinRoomRequest struct {
	RoomCode      string `json:"room_code"`
	ActorIdentity string `json:"actor_identity"`
	FromRevision  int64  `json:"from_revision,omitempty"`
	ServiceToken  string `json:"service_token,omitempty"`
}

type startGameRequest struct {
	RoomCode      string `json:"room_code"`
	ActorIdentity string `json:"actor_identity"`
	ServiceToken  string `json:"service_token,omitempty"`
}

type playCardsRequest struct {
	RoomCode      string        `json:"room_code"`
	ActorIdentity string        `json:"actor_identity"`
	Cards         []domain.Card `json:"cards"`
	ServiceToken  string        `json:"service_token,omitempty"`
}

type passRequest struct {
	RoomCode      string `json:"room_code"`
	ActorIdentity string `json:"actor_identity"`
	ServiceToken  string `json:"service_token,omitempty"`
}

// Responses.

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type createRoomResponse struct {
	Success bool         `json:"success"`
	Room    *domain.Room `json:"room"`
}

type joinRoomResponse struct {
	Success   bool            `json:"success"`
	Room      *domain.Room    `json:"room"`
	SeatIndex int             `json:"seat_index"`
	State     *stateSnapshot  `json:"state,omitempty"`
	Events    []eventEnvelope `json:"events,omitempty"`
}

type startGameResponse struct {
	Success     bool         `json:"success"`
	MatchNumber int          `json:"match_number"`
	Phase       domain.Phase `json:"phase"`
	CurrentTurn int          `json:"current_turn"`
}

type playCardsResponse struct {
	Success          bool                  `json:"success"`
	NextTurn         int                   `json:"next_turn"`
	ComboType        domain.Kind           `json:"combo_type"`
	CardsRemaining   int                   `json:"cards_remaining"`
	MatchEnded       bool                  `json:"match_ended"`
	GameOver         bool                  `json:"game_over"`
	FinalWinnerIndex *int                  `json:"final_winner_index,omitempty"`
	MatchScores      []wireMatchScore      `json:"match_scores,omitempty"`
	AutoPassTimer    *domain.AutoPassTimer `json:"auto_pass_timer,omitempty"`
}

// wireMatchScore is the per-seat scoring row of an action response. The
// match_ended event carries the fuller rows including cards remaining.
type wireMatchScore struct {
	SeatIndex   int `json:"seat_index"`
	MatchPoints int `json:"match_points"`
	Cumulative  int `json:"cumulative"`
}

type passResponse struct {
	Success       bool                  `json:"success"`
	NextTurn      int                   `json:"next_turn"`
	Passes        int                   `json:"passes"`
	TrickCleared  bool                  `json:"trick_cleared"`
	AutoPassTimer *domain.AutoPassTimer `json:"auto_pass_timer,omitempty"`
}

// eventEnvelope is one replayed history entry in a join response. The
// payload is re-emitted exactly as committed.
type eventEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// stateSnapshot is the room state as one seat may see it: every hand
// reduced to its size, the viewer's own cards included alongside.
type stateSnapshot struct {
	Phase           domain.Phase          `json:"phase"`
	MatchNumber     int                   `json:"match_number"`
	CurrentTurn     int                   `json:"current_turn"`
	Hand            []domain.Card         `json:"hand,omitempty"`
	HandCounts      []int                 `json:"hand_counts"`
	LastPlay        *domain.LastPlay      `json:"last_play,omitempty"`
	Passes          int                   `json:"passes"`
	PlayedCards     []domain.Card         `json:"played_cards"`
	Scores          []int                 `json:"scores"`
	LastMatchScores []int                 `json:"last_match_scores,omitempty"`
	LastMatchWinner int                   `json:"last_match_winner"`
	FinalWinner     int                   `json:"final_winner"`
	AutoPassTimer   *domain.AutoPassTimer `json:"auto_pass_timer,omitempty"`
	Revision        int64                 `json:"revision"`
}

// buildSnapshot redacts a state for viewerSeat. A negative viewer seat
// yields a spectator view with no hand at all.
func buildSnapshot(st *domain.GameState, viewerSeat int) *stateSnapshot {
	counts := make([]int, len(st.Hands))
	for i, hand := range st.Hands {
		counts[i] = len(hand)
	}
	snap := &stateSnapshot{
		Phase:           st.Phase,
		MatchNumber:     st.MatchNumber,
		CurrentTurn:     st.CurrentTurn,
		HandCounts:      counts,
		Passes:          st.Passes,
		PlayedCards:     append([]domain.Card(nil), st.PlayedCards...),
		Scores:          append([]int(nil), st.Scores...),
		LastMatchScores: append([]int(nil), st.LastMatchScores...),
		LastMatchWinner: st.LastMatchWinner,
		FinalWinner:     st.FinalWinner,
		Revision:        st.Revision,
	}
	if viewerSeat >= 0 && viewerSeat < len(st.Hands) {
		snap.Hand = append([]domain.Card(nil), st.Hands[viewerSeat]...)
	}
	if st.LastPlay != nil {
		lp := *st.LastPlay
		snap.LastPlay = &lp
	}
	if st.Timer != nil {
		t := *st.Timer
		snap.AutoPassTimer = &t
	}
	return snap
}

func buildPlayResponse(res *app.PlayResult) playCardsResponse {
	out := playCardsResponse{
		Success:        true,
		NextTurn:       res.NextTurn,
		ComboType:      res.Combo.Kind,
		CardsRemaining: res.CardsRemaining,
		MatchEnded:     res.MatchEnded,
		GameOver:       res.GameOver,
		AutoPassTimer:  res.Timer,
	}
	if res.Summary != nil {
		for i := range res.Summary.MatchScores {
			out.MatchScores = append(out.MatchScores, wireMatchScore{
				SeatIndex:   i,
				MatchPoints: res.Summary.MatchScores[i],
				Cumulative:  res.Summary.Cumulative[i],
			})
		}
		if res.Summary.GameOver {
			winner := res.Summary.FinalWinner
			out.FinalWinnerIndex = &winner
		}
	}
	return out
}

func buildPassResponse(res *app.PassResult) passResponse {
	return passResponse{
		Success:       true,
		NextTurn:      res.NextTurn,
		Passes:        res.Passes,
		TrickCleared:  res.TrickCleared,
		AutoPassTimer: res.Timer,
	}
}

// errRoomFull rejects joins into rooms with no unclaimed seat.
var errRoomFull = errors.New("room is full")

// errUnauthorized rejects callers whose session covers neither the actor
// identity nor a valid service token for it.
var errUnauthorized = errors.New("unauthorized")

// errorKind maps an engine error to its wire kind plus optional details.
// Consistency faults deliberately collapse to an opaque internal kind.
func errorKind(err error) (string, string) {
	var must *app.MustPlayHighestError
	if errors.As(err, &must) {
		return kindMustPlayHighest, must.Required.String()
	}
	switch {
	case errors.Is(err, app.ErrRoomNotFound) || errors.Is(err, ports.ErrRoomNotFound):
		return kindRoomNotFound, ""
	case errors.Is(err, app.ErrNotAMember):
		return kindNotAMember, ""
	case errors.Is(err, app.ErrStateMissing) || errors.Is(err, ports.ErrStateMissing):
		return kindStateMissing, ""
	case errors.Is(err, app.ErrNotYourTurn):
		return kindNotYourTurn, ""
	case errors.Is(err, app.ErrGameNotActive):
		return kindGameNotActive, ""
	case errors.Is(err, app.ErrCardNotInHand):
		return kindCardNotInHand, ""
	case errors.Is(err, app.ErrInvalidCombination):
		return kindInvalidCombo, ""
	case errors.Is(err, app.ErrMustLeadWithThreeOfDiamonds):
		return kindMustLeadLowest, ""
	case errors.Is(err, app.ErrCannotBeat):
		return kindCannotBeat, ""
	case errors.Is(err, app.ErrMustPlayHighestBeatingSingle):
		return kindMustPlayHighest, ""
	case errors.Is(err, app.ErrCannotPassWhenLeading):
		return kindCannotPassLeading, ""
	case errors.Is(err, app.ErrMatchNotFinished):
		return kindMatchNotFinished, ""
	case errors.Is(err, app.ErrAlreadyStarted):
		return kindAlreadyStarted, ""
	case errors.Is(err, app.ErrTooFewPlayers):
		return kindTooFewPlayers, ""
	case errors.Is(err, errRoomFull):
		return kindRoomFull, ""
	case errors.Is(err, app.ErrConcurrentUpdate) || errors.Is(err, ports.ErrVersionConflict):
		return kindConcurrentUpdate, ""
	case errors.Is(err, app.ErrStoreUnavailable):
		return kindStoreUnavailable, ""
	case errors.Is(err, app.ErrTimeoutExceeded):
		return kindTimeoutExceeded, ""
	case errors.Is(err, errUnauthorized):
		return kindUnauthorized, ""
	default:
		return kindInternal, ""
	}
}

// kindError maps a wire kind back to the engine sentinel, for the
// internal invoker's round trip. Details restore the demanded card on
// the one-card-left rejection.
func kindError(kind, details string) error {
	switch kind {
	case kindNotYourTurn:
		return app.ErrNotYourTurn
	case kindMustPlayHighest:
		if card, err := domain.ParseCard(details); err == nil {
			return &app.MustPlayHighestError{Required: card}
		}
		return app.ErrMustPlayHighestBeatingSingle
	case kindMatchNotFinished:
		return app.ErrMatchNotFinished
	case kindGameNotActive:
		return app.ErrGameNotActive
	case kindCannotPassLeading:
		return app.ErrCannotPassWhenLeading
	case kindConcurrentUpdate:
		return app.ErrConcurrentUpdate
	case kindStoreUnavailable:
		return app.ErrStoreUnavailable
	default:
		return errors.New(kind)
	}
}
