package nakama

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot"
)

// BotDispatcher spawns one coordinator run per trigger. The room lease
// deduplicates concurrent runs, so triggering on every commit is safe and
// the callers never wait.
type BotDispatcher struct {
	coord  *bot.Coordinator
	logger runtime.Logger
}

func NewBotDispatcher(coord *bot.Coordinator, logger runtime.Logger) *BotDispatcher {
	return &BotDispatcher{coord: coord, logger: logger}
}

var _ Dispatcher = (*BotDispatcher)(nil)

// Trigger starts a detached run for the room. The run carries its own
// budget, so the spawning request's context is deliberately not used.
func (d *BotDispatcher) Trigger(code string) {
	go func() {
		if err := d.coord.Run(context.Background(), code); err != nil {
			d.logger.Error("bot run failed: room=%s error=%v", code, err)
		}
	}()
}
