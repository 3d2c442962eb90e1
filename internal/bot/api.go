package bot

import (
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// Difficulty labels carried on bot seats and identity profiles.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Move is a policy decision: pass, or the exact cards to play.
type Move struct {
	Pass  bool
	Cards []domain.Card
}

// View is the slice of game state a policy may look at: the seat's own
// hand plus information every player can see. Other hands never appear
// here, only their sizes.
type View struct {
	Seat        int
	Hand        []domain.Card
	LastPlay    *domain.LastPlay
	PlayedCards []domain.Card
	HandCounts  []int
	MatchNumber int
	FirstPlay   bool
}

// LastCombo returns the combination to beat, nil when the seat leads.
func (v View) LastCombo() *domain.Combination {
	if v.LastPlay == nil {
		return nil
	}
	combo := v.LastPlay.Combo
	return &combo
}

// NextSeatCount returns the hand size of the seat acting after this one.
func (v View) NextSeatCount() int {
	if len(v.HandCounts) == 0 {
		return 0
	}
	return v.HandCounts[(v.Seat+1)%len(v.HandCounts)]
}

// Policy picks a move for a seat. Implementations are pure over the view:
// no clocks, no stores, no hidden state between calls.
type Policy interface {
	Decide(view View) Move
}
