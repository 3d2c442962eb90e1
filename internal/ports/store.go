package ports

import (
	"context"
	"errors"
	"time"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

var (
	// ErrRoomNotFound signals the room code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrStateMissing signals the room has no game state row.
	ErrStateMissing = errors.New("game state missing")
	// ErrVersionConflict signals a conditional write lost the race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrLeaseHeld signals another coordinator holds the bot lease.
	ErrLeaseHeld = errors.New("bot lease held")
	// ErrUnavailable signals the store stayed unreachable through the
	// whole retry budget.
	ErrUnavailable = errors.New("store unavailable")
)

// StorePort persists rooms, game state rows, the event history and bot
// leases. All rows are keyed by the room code; the room id is metadata for
// cross-system references.
type StorePort interface {
	// LoadRoom resolves a room row with its seats.
	LoadRoom(ctx context.Context, code string) (*domain.Room, error)

	// LoadGameState returns the state row and its store version.
	LoadGameState(ctx context.Context, code string) (*domain.GameState, string, error)

	// SaveGameState commits state conditioned on expectedVersion and appends
	// events to the room history in the same write. An empty expectedVersion
	// demands a fresh row and fails on any existing one.
	SaveGameState(ctx context.Context, code string, state *domain.GameState, expectedVersion string, events []Event) (string, error)

	// LoadEvents returns the committed history from a revision onward, in
	// commit order.
	LoadEvents(ctx context.Context, code string, fromRevision int64) ([]Event, error)

	// UpdateSeatScores mirrors cumulative totals onto the seat rows.
	UpdateSeatScores(ctx context.Context, code string, scores []int) error

	// TryAcquireBotLease claims the per-room coordinator lease if it is
	// absent or expired. Returns false when another owner holds it.
	TryAcquireBotLease(ctx context.Context, code, ownerID string, ttl time.Duration) (bool, error)

	// ReleaseBotLease deletes the lease only when ownerID still holds it.
	ReleaseBotLease(ctx context.Context, code, ownerID string) error

	// ListActiveTimers returns the codes of rooms whose state carries an
	// armed auto-pass timer.
	ListActiveTimers(ctx context.Context) ([]string, error)
}
