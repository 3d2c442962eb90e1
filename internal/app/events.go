package app

import (
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// Event and EventKind are the bus types; aliased so use-cases read naturally.
type (
	Event     = ports.Event
	EventKind = ports.EventKind
)

const (
	EventCardsPlayed    EventKind = "cards_played"
	EventPlayerPassed   EventKind = "player_passed"
	EventTrickCleared   EventKind = "trick_cleared"
	EventTimerStarted   EventKind = "timer_started"
	EventTimerCancelled EventKind = "timer_cancelled"
	EventTimerExpired   EventKind = "timer_expired"
	EventMatchStarted   EventKind = "match_started"
	EventHandDealt      EventKind = "hand_dealt"
	EventMatchEnded     EventKind = "match_ended"
	EventGameOver       EventKind = "game_over"
)

// Trick clear reasons carried by TrickClearedPayload.
const (
	ClearReasonThreePasses  = "three_passes"
	ClearReasonTimerExpired = "timer_expired"
)

// Timer cancel reasons carried by TimerCancelledPayload. The manual_pass
// reason is part of the wire vocabulary for clients; the server preserves
// timers across non-clearing passes and never emits it.
const (
	CancelReasonNewPlay    = "new_play"
	CancelReasonManualPass = "manual_pass"
)

// Every payload carries the room revision its commit produced so clients
// can reconcile out-of-order delivery against their local mirror.

type CardsPlayedPayload struct {
	SeatIndex    int           `json:"seat_index"`
	Cards        []domain.Card `json:"cards"`
	ComboKind    domain.Kind   `json:"combo_kind"`
	RoomRevision int64         `json:"room_revision"`
}

type PlayerPassedPayload struct {
	SeatIndex    int   `json:"seat_index"`
	RoomRevision int64 `json:"room_revision"`
}

type TrickClearedPayload struct {
	NextTurn     int    `json:"next_turn"`
	Reason       string `json:"reason"`
	RoomRevision int64  `json:"room_revision"`
}

type TimerStartedPayload struct {
	SequenceID     int64           `json:"sequence_id"`
	EndAtMs        int64           `json:"end_at_ms"`
	ExemptSeat     int             `json:"exempt_seat"`
	TriggeringPlay domain.LastPlay `json:"triggering_play"`
	RoomRevision   int64           `json:"room_revision"`
}

type TimerCancelledPayload struct {
	SequenceID   int64  `json:"sequence_id"`
	Reason       string `json:"reason"`
	RoomRevision int64  `json:"room_revision"`
}

type TimerExpiredPayload struct {
	SequenceID   int64 `json:"sequence_id"`
	RoomRevision int64 `json:"room_revision"`
}

type MatchStartedPayload struct {
	MatchNumber  int          `json:"match_number"`
	Phase        domain.Phase `json:"phase"`
	CurrentTurn  int          `json:"current_turn"`
	RoomRevision int64        `json:"room_revision"`
}

// HandDealtPayload is delivered only to its seat's identity.
type HandDealtPayload struct {
	SeatIndex    int           `json:"seat_index"`
	Hand         []domain.Card `json:"hand"`
	RoomRevision int64         `json:"room_revision"`
}

type SeatMatchScore struct {
	SeatIndex      int `json:"seat_index"`
	CardsRemaining int `json:"cards_remaining"`
	MatchPoints    int `json:"match_points"`
	Cumulative     int `json:"cumulative"`
}

type MatchEndedPayload struct {
	MatchNumber  int              `json:"match_number"`
	Winner       int              `json:"winner"`
	MatchScores  []SeatMatchScore `json:"match_scores"`
	RoomRevision int64            `json:"room_revision"`
}

type GameOverPayload struct {
	FinalWinnerIndex int   `json:"final_winner_index"`
	FinalScores      []int `json:"final_scores"`
	RoomRevision     int64 `json:"room_revision"`
}
