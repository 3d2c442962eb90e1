package internal

import "github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"

// GamePhase describes the current strategic stage of a match.
type GamePhase int

const (
	// PhaseOpening indicates every seat still holds a full hand.
	PhaseOpening GamePhase = iota
	// PhaseMid indicates no seat has reached the endgame threshold yet.
	PhaseMid
	// PhaseEnd indicates some seat is five cards or fewer from going out.
	PhaseEnd
)

// DetectPhase infers the phase from the per-seat card counts.
func DetectPhase(handCounts []int) GamePhase {
	if len(handCounts) == 0 {
		return PhaseMid
	}

	opening := true
	end := false
	for _, n := range handCounts {
		if n != domain.HandSize {
			opening = false
		}
		if n <= 5 {
			end = true
		}
	}

	if opening {
		return PhaseOpening
	}
	if end {
		return PhaseEnd
	}
	return PhaseMid
}
