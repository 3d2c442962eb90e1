package domain

// Phase is the lifecycle stage of a room's game.
type Phase string

const (
	// PhaseFirstPlay is the opening state of match 1: the holder of the
	// lowest card leads and must include it.
	PhaseFirstPlay Phase = "first_play"
	// PhasePlaying is the active trick-taking state.
	PhasePlaying Phase = "playing"
	// PhaseMatchFinished sits between a hand emptying and the next deal.
	PhaseMatchFinished Phase = "match_finished"
	// PhaseGameOver is terminal: a cumulative total crossed the threshold.
	PhaseGameOver Phase = "game_over"
)

// Active reports whether plays and passes are accepted in this phase.
func (p Phase) Active() bool {
	return p == PhaseFirstPlay || p == PhasePlaying
}

// LastPlay records the combination currently holding the trick and who made it.
type LastPlay struct {
	Combo Combination `json:"combo"`
	Seat  int         `json:"seat"`
}

// AutoPassTimer is the persisted countdown installed after an unbeatable
// play. While it runs, every seat except the exempt one is on the clock to
// pass; at the deadline the trick clears back to the exempt seat.
type AutoPassTimer struct {
	SequenceID  int64 `json:"sequence_id"`
	ExemptSeat  int   `json:"exempt_seat"`
	StartedAtMs int64 `json:"started_at_ms"`
	ExpiresAtMs int64 `json:"expires_at_ms"`
	DurationMs  int64 `json:"duration_ms"`
}

// GameState is the authoritative state of one room's game. One row per room;
// every mutation bumps Revision and is committed with a version predicate.
type GameState struct {
	Phase       Phase    `json:"phase"`
	MatchNumber int      `json:"match_number"`
	CurrentTurn int      `json:"current_turn"`
	Hands       [][]Card `json:"hands"`

	LastPlay    *LastPlay `json:"last_play,omitempty"`
	Passes      int       `json:"passes"`
	PlayedCards []Card    `json:"played_cards"`

	Scores          []int `json:"scores"`
	LastMatchScores []int `json:"last_match_scores,omitempty"`
	LastMatchWinner int   `json:"last_match_winner"`
	FinalWinner     int   `json:"final_winner"`

	Timer    *AutoPassTimer `json:"auto_pass_timer,omitempty"`
	TimerSeq int64          `json:"timer_seq"`

	Revision int64 `json:"revision"`
}

// SeatCount returns the number of seats playing this game.
func (s *GameState) SeatCount() int {
	return len(s.Hands)
}

// NextSeat returns the seat after from in play order. Matches end the moment
// a hand empties, so no seat is ever skipped mid-match.
func (s *GameState) NextSeat(from int) int {
	return (from + 1) % s.SeatCount()
}

// OpeningCard returns the card the first play of match 1 must contain: the
// lowest card dealt, which is the 3D whenever the full deck reaches seats.
func (s *GameState) OpeningCard() Card {
	low := Card{Rank: Two, Suit: Spades}
	found := false
	for _, hand := range s.Hands {
		for _, c := range hand {
			if !found || c.Power() < low.Power() {
				low = c
				found = true
			}
		}
	}
	return low
}

// Seat describes one occupant of a room row.
type Seat struct {
	Index      int    `json:"index"`
	Identity   string `json:"identity"`
	IsBot      bool   `json:"is_bot"`
	Difficulty string `json:"difficulty,omitempty"`
	Score      int    `json:"score"`
}

// Room is the durable room row the engine plays inside. Seats are dense and
// ordered by index.
type Room struct {
	ID    string `json:"room_id"`
	Code  string `json:"code"`
	Seats []Seat `json:"seats"`
}

// SeatOf returns the seat index occupied by identity.
func (r *Room) SeatOf(identity string) (int, bool) {
	for _, seat := range r.Seats {
		if seat.Identity == identity {
			return seat.Index, true
		}
	}
	return 0, false
}

// SeatCount returns the number of occupied seats.
func (r *Room) SeatCount() int {
	return len(r.Seats)
}
