package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/coder/quartz"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// Service contains the Big Two use-cases operating on room game state.
// All mutations go through optimistic commits against the store; the
// emitted events are appended to the room history in the same write and
// published to the bus after the commit lands.
type Service struct {
	store  ports.StorePort
	bus    ports.EventBusPort
	clock  quartz.Clock
	logger runtime.Logger
	cfg    *config.GameConfig
	rng    *rand.Rand
}

// NewService constructs a Service. A nil clock falls back to the real
// clock, a nil cfg to defaults and a nil rng to a time-seeded one.
func NewService(store ports.StorePort, bus ports.EventBusPort, clock quartz.Clock, logger runtime.Logger, cfg *config.GameConfig, rng *rand.Rand) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{store: store, bus: bus, clock: clock, logger: logger, cfg: cfg, rng: rng}
}

var (
	ErrRoomNotFound                 = errors.New("room not found")
	ErrNotAMember                   = errors.New("actor is not a member of the room")
	ErrStateMissing                 = errors.New("game state missing")
	ErrNotYourTurn                  = errors.New("not your turn")
	ErrGameNotActive                = errors.New("game not active")
	ErrCardNotInHand                = errors.New("card not in hand")
	ErrInvalidCombination           = errors.New("invalid combination")
	ErrMustLeadWithThreeOfDiamonds  = errors.New("first play must include the three of diamonds")
	ErrCannotBeat                   = errors.New("play does not beat the previous play")
	ErrMustPlayHighestBeatingSingle = errors.New("must play highest beating single")
	ErrCannotPassWhenLeading        = errors.New("cannot pass when leading a trick")
	ErrMatchNotFinished             = errors.New("match not finished")
	ErrAlreadyStarted               = errors.New("game already started")
	ErrTooFewPlayers                = errors.New("not enough players to start")
	ErrSeatMissing                  = errors.New("seat missing from game state")
	ErrHandCorrupt                  = errors.New("hand corrupt")
	ErrConcurrentUpdate             = errors.New("concurrent update")
	ErrStoreUnavailable             = errors.New("store unavailable")
	ErrTimeoutExceeded              = errors.New("timeout exceeded")
)

// MustPlayHighestError names the single the one-card-left rule demands.
// It matches ErrMustPlayHighestBeatingSingle under errors.Is.
type MustPlayHighestError struct {
	Required domain.Card
}

func (e *MustPlayHighestError) Error() string {
	return fmt.Sprintf("must play highest beating single %s", e.Required)
}

func (e *MustPlayHighestError) Is(target error) bool {
	return target == ErrMustPlayHighestBeatingSingle
}

// errNoChange aborts a commit without writing or publishing anything.
var errNoChange = errors.New("no change")

// mutation edits the freshly loaded state in place and returns the events
// the commit should append and publish. Returning an error discards the
// edit and surfaces the error to the caller unchanged.
type mutation func(st *domain.GameState) ([]Event, error)

// commit loads the current state, applies fn under the loaded version
// and writes the result back with a version predicate. Conflicted writes
// reload and retry up to cfg.ConflictRetries times before reporting
// ErrConcurrentUpdate. The returned state is the committed one.
func (s *Service) commit(ctx context.Context, room *domain.Room, fn mutation) (*domain.GameState, error) {
	for attempt := 0; ; attempt++ {
		st, version, err := s.loadState(ctx, room)
		if err != nil {
			return nil, err
		}
		st.Revision++
		events, err := fn(st)
		if err != nil {
			if errors.Is(err, errNoChange) {
				st.Revision--
				return st, nil
			}
			return nil, err
		}
		if _, err := s.store.SaveGameState(ctx, room.Code, st, version, events); err != nil {
			if errors.Is(err, ports.ErrVersionConflict) {
				if attempt >= s.cfg.ConflictRetries {
					return nil, ErrConcurrentUpdate
				}
				continue
			}
			return nil, s.storeErr(err)
		}
		s.publish(ctx, room.Code, events)
		return st, nil
	}
}

func (s *Service) loadRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.store.LoadRoom(ctx, code)
	if err != nil {
		if errors.Is(err, ports.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, s.storeErr(err)
	}
	return room, nil
}

// loadRoomSeat resolves the acting identity to its seat, failing with
// ErrNotAMember before any state is touched.
func (s *Service) loadRoomSeat(ctx context.Context, code, identity string) (*domain.Room, int, error) {
	room, err := s.loadRoom(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	seat, ok := room.SeatOf(identity)
	if !ok {
		return nil, 0, ErrNotAMember
	}
	return room, seat, nil
}

func (s *Service) loadState(ctx context.Context, room *domain.Room) (*domain.GameState, string, error) {
	st, version, err := s.store.LoadGameState(ctx, room.Code)
	if err != nil {
		if errors.Is(err, ports.ErrStateMissing) {
			return nil, "", ErrStateMissing
		}
		return nil, "", s.storeErr(err)
	}
	if err := s.checkShape(room, st); err != nil {
		return nil, "", err
	}
	return st, version, nil
}

// checkShape rejects states that no longer line up with the room roster
// before any rule logic runs against them.
func (s *Service) checkShape(room *domain.Room, st *domain.GameState) error {
	n := room.SeatCount()
	if len(st.Hands) != n || len(st.Scores) != n {
		s.logger.Error("room %s state has %d hands and %d scores for %d seats", room.Code, len(st.Hands), len(st.Scores), n)
		return ErrSeatMissing
	}
	if st.CurrentTurn < 0 || st.CurrentTurn >= n {
		s.logger.Error("room %s state points turn at seat %d of %d", room.Code, st.CurrentTurn, n)
		return ErrSeatMissing
	}
	total := len(st.PlayedCards)
	for _, hand := range st.Hands {
		total += len(hand)
	}
	if st.Phase.Active() && total != n*domain.HandSize {
		s.logger.Error("room %s state accounts for %d cards, want %d", room.Code, total, n*domain.HandSize)
		return ErrHandCorrupt
	}
	return nil
}

func (s *Service) storeErr(err error) error {
	switch {
	case errors.Is(err, ports.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeoutExceeded, err)
	default:
		return fmt.Errorf("store: %w", err)
	}
}

// publish pushes committed events to the bus. Delivery failures are
// logged and never unwind the commit; the history row is authoritative.
func (s *Service) publish(ctx context.Context, code string, events []Event) {
	if len(events) == 0 || s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, code, events); err != nil {
		s.logger.Warn("room %s: publishing %d events failed: %v", code, len(events), err)
	}
}

func (s *Service) nowMs() int64 {
	return s.clock.Now().UnixMilli()
}

// nextIsBot reports whether the seat now on turn is bot-occupied, which
// callers use to trigger the coordinator after a commit.
func nextIsBot(room *domain.Room, st *domain.GameState) bool {
	if st == nil || !st.Phase.Active() {
		return false
	}
	if st.CurrentTurn < 0 || st.CurrentTurn >= len(room.Seats) {
		return false
	}
	return room.Seats[st.CurrentTurn].IsBot
}

// highestBeatingSingle returns the strongest card in hand that beats the
// previous play as a single, if any.
func highestBeatingSingle(hand []domain.Card, prev domain.Combination) (domain.Card, bool) {
	var best domain.Card
	found := false
	for _, c := range hand {
		single := domain.Combination{Kind: domain.Single, Cards: []domain.Card{c}, Key: c.Power()}
		if !domain.CanBeat(prev, single) {
			continue
		}
		if !found || c.Power() > best.Power() {
			best = c
			found = true
		}
	}
	return best, found
}
