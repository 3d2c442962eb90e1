package nakama

import (
	"context"

	"github.com/coder/quartz"
	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/sync/errgroup"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/ports"
)

// sweepWorkers bounds concurrent expiry commits per sweep.
const sweepWorkers = 4

// Sweeper enforces auto-pass deadlines in rooms nobody is acting in.
// Player and bot actions settle due timers on their own load path; the
// sweep catches rooms where everyone has gone quiet.
type Sweeper struct {
	store      ports.StorePort
	svc        *app.Service
	dispatcher Dispatcher
	clock      quartz.Clock
	logger     runtime.Logger
	cfg        *config.GameConfig
}

func NewSweeper(store ports.StorePort, svc *app.Service, dispatcher Dispatcher, clock quartz.Clock, logger runtime.Logger, cfg *config.GameConfig) *Sweeper {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Sweeper{store: store, svc: svc, dispatcher: dispatcher, clock: clock, logger: logger, cfg: cfg}
}

// Run ticks until the context ends.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.SweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep expires every due timer the index lists. Each room is its own
// commit; failures are logged and retried naturally on the next tick.
func (s *Sweeper) sweep(ctx context.Context) {
	codes, err := s.store.ListActiveTimers(ctx)
	if err != nil {
		s.logger.Warn("timer sweep list failed: %v", err)
		return
	}
	if len(codes) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(sweepWorkers)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			res, err := s.svc.ExpireTimer(ctx, code)
			if err != nil {
				s.logger.Warn("timer sweep expire failed: room=%s error=%v", code, err)
				return nil
			}
			if res.Expired {
				s.logger.Info("auto-pass deadline enforced: room=%s next=%d", code, res.NextTurn)
				if res.NextIsBot && s.dispatcher != nil {
					s.dispatcher.Trigger(code)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}
