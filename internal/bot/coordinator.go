package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// Invoker carries bot decisions into the engine. The production
// implementation goes through the internal action path with a service
// token, so handlers can tell bot traffic from player traffic and skip
// re-triggering the coordinator.
type Invoker interface {
	PlayCards(ctx context.Context, code, identity string, cards []domain.Card) error
	Pass(ctx context.Context, code, identity string) error
	BeginNextMatch(ctx context.Context, code string) error
}

// Coordinator drives every pending bot turn in a room until a human is up
// or the game ends. One run holds the room's bot lease; concurrent
// triggers on other nodes bounce off the lease and exit quietly.
type Coordinator struct {
	id      string
	store   ports.StorePort
	invoker Invoker
	clock   quartz.Clock
	logger  runtime.Logger
	cfg     *config.GameConfig

	// Policies maps difficulty labels to decision policies. Populated with
	// the built-in tiers; replaceable for tests.
	Policies map[string]Policy
}

// NewCoordinator builds a coordinator with a fresh lease owner identity.
func NewCoordinator(store ports.StorePort, invoker Invoker, clock quartz.Clock, logger runtime.Logger, cfg *config.GameConfig) *Coordinator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Coordinator{
		id:      uuid.NewString(),
		store:   store,
		invoker: invoker,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
		Policies: map[string]Policy{
			DifficultyEasy:   NewPolicy(DifficultyEasy),
			DifficultyMedium: NewPolicy(DifficultyMedium),
			DifficultyHard:   NewPolicy(DifficultyHard),
		},
	}
}

// OwnerID returns the lease identity of this coordinator.
func (c *Coordinator) OwnerID() string {
	return c.id
}

// Run plays bot turns for the room until a human is up, the game ends,
// the move cap is hit or the run budget expires. Each iteration re-reads
// the committed state, so a player action landing mid-run is seen on the
// next step.
func (c *Coordinator) Run(ctx context.Context, code string) error {
	held, err := c.store.TryAcquireBotLease(ctx, code, c.id, c.cfg.BotLease())
	if err != nil {
		return fmt.Errorf("bot lease: %w", err)
	}
	if !held {
		c.logger.Debug("bot run skipped, lease held elsewhere: room=%s", code)
		return nil
	}
	defer c.release(code)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.BotRunBudget())
	defer cancel()

	for moves := 0; moves < c.cfg.MaxBotMoves; moves++ {
		if moves > 0 {
			// Re-upping the lease each step also detects a steal after
			// a stall longer than the TTL.
			held, err := c.store.TryAcquireBotLease(ctx, code, c.id, c.cfg.BotLease())
			if err != nil {
				return fmt.Errorf("bot lease: %w", err)
			}
			if !held {
				c.logger.Warn("bot run aborted, lease lost: room=%s", code)
				return nil
			}
		}

		done, err := c.step(ctx, code)
		if done || err != nil {
			return err
		}
	}

	c.logger.Warn("bot run hit the move cap: room=%s cap=%d", code, c.cfg.MaxBotMoves)
	return nil
}

// step plays at most one bot move. It reports done when the room no
// longer needs this run.
func (c *Coordinator) step(ctx context.Context, code string) (bool, error) {
	room, err := c.store.LoadRoom(ctx, code)
	if err != nil {
		return true, fmt.Errorf("bot load room: %w", err)
	}
	st, _, err := c.store.LoadGameState(ctx, code)
	if err != nil {
		return true, fmt.Errorf("bot load state: %w", err)
	}

	switch st.Phase {
	case domain.PhaseMatchFinished:
		if !hasBotSeat(room) {
			return true, nil
		}
		if err := c.invoker.BeginNextMatch(ctx, code); err != nil {
			if errors.Is(err, app.ErrMatchNotFinished) {
				// Another node dealt first; read the fresh state next step.
				return false, nil
			}
			return true, fmt.Errorf("bot next match: %w", err)
		}
		return false, nil
	case domain.PhaseFirstPlay, domain.PhasePlaying:
	default:
		return true, nil
	}

	seat := st.CurrentTurn
	if seat < 0 || seat >= room.SeatCount() {
		return true, nil
	}
	occupant := room.Seats[seat]
	if !occupant.IsBot {
		return true, nil
	}

	if err := c.pause(ctx); err != nil {
		return true, nil
	}

	view := buildView(st, seat)
	move, ok := c.decide(ctx, occupant.Difficulty, view)
	if !ok {
		return true, nil
	}
	if move.Pass && view.LastPlay == nil {
		// A leader cannot pass; shed the lowest card instead.
		move = Move{Cards: []domain.Card{domain.LowestCard(view.Hand)}}
	}

	return c.act(ctx, code, occupant.Identity, move)
}

// decide runs the seat's policy under the think budget. Overruns turn
// into a pass so one slow decision never stalls the room.
func (c *Coordinator) decide(ctx context.Context, difficulty string, view View) (Move, bool) {
	policy := c.Policies[difficulty]
	if policy == nil {
		policy = c.Policies[DifficultyMedium]
	}

	ch := make(chan Move, 1)
	go func() {
		ch <- policy.Decide(view)
	}()

	timer := c.clock.NewTimer(c.cfg.BotThinkBudget())
	defer timer.Stop()
	select {
	case move := <-ch:
		return move, true
	case <-timer.C:
		c.logger.Warn("bot decision over budget, passing: seat=%d difficulty=%s", view.Seat, difficulty)
		return Move{Pass: true}, true
	case <-ctx.Done():
		return Move{}, false
	}
}

// act submits the move and absorbs the race outcomes: a stale turn ends
// the run quietly, a rejected low single is replayed as the demanded one.
func (c *Coordinator) act(ctx context.Context, code, identity string, move Move) (bool, error) {
	var err error
	if move.Pass {
		err = c.invoker.Pass(ctx, code, identity)
	} else {
		err = c.invoker.PlayCards(ctx, code, identity, move.Cards)
	}
	if err == nil {
		return false, nil
	}

	var must *app.MustPlayHighestError
	if errors.As(err, &must) {
		if err := c.invoker.PlayCards(ctx, code, identity, []domain.Card{must.Required}); err == nil {
			return false, nil
		} else if errors.Is(err, app.ErrNotYourTurn) {
			return true, nil
		} else {
			return true, fmt.Errorf("bot forced single: %w", err)
		}
	}
	if errors.Is(err, app.ErrNotYourTurn) {
		// A player action landed between the read and this move.
		return true, nil
	}
	return true, fmt.Errorf("bot move: %w", err)
}

// pause waits the configured inter-move delay on the injected clock.
func (c *Coordinator) pause(ctx context.Context) error {
	d := c.moveDelay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) moveDelay() time.Duration {
	lo, hi := c.cfg.BotMinDelayMs, c.cfg.BotMaxDelayMs
	if hi < lo {
		hi = lo
	}
	ms := lo
	if hi > lo {
		ms += rand.Int63n(hi - lo + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

// release drops the lease with a fresh context; the run context is often
// already spent when this fires.
func (c *Coordinator) release(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StoreAttemptTimeout())
	defer cancel()
	if err := c.store.ReleaseBotLease(ctx, code, c.id); err != nil {
		c.logger.Warn("bot lease release failed: room=%s error=%v", code, err)
	}
}

func buildView(st *domain.GameState, seat int) View {
	counts := make([]int, st.SeatCount())
	for i, h := range st.Hands {
		counts[i] = len(h)
	}
	view := View{
		Seat:        seat,
		Hand:        append([]domain.Card(nil), st.Hands[seat]...),
		PlayedCards: append([]domain.Card(nil), st.PlayedCards...),
		HandCounts:  counts,
		MatchNumber: st.MatchNumber,
		FirstPlay:   st.Phase == domain.PhaseFirstPlay,
	}
	if st.LastPlay != nil {
		lp := *st.LastPlay
		view.LastPlay = &lp
	}
	return view
}

func hasBotSeat(room *domain.Room) bool {
	for _, seat := range room.Seats {
		if seat.IsBot {
			return true
		}
	}
	return false
}
