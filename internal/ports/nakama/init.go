package nakama

import (
	"context"
	"database/sql"
	"os"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/config"
)

const (
	defaultConfigPath     = "data/game_config.json"
	defaultIdentitiesPath = "data/bot_identities.json"
)

// InitModule wires the engine into the Nakama runtime: configuration,
// the storage and stream adapters, the rules service, bot coordination,
// the RPC surface and the timer sweeper.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	cfg := loadConfig(logger, env)
	secret := cfg.ServiceTokenSecret
	if secret == "" {
		// Single-node fallback: minting and verification share the process,
		// so a random secret works until a cluster needs a shared one.
		secret = uuid.NewString()
		logger.Info("bigtwo_service_token_secret not set, using an ephemeral secret")
	}

	store := NewStoreAdapter(nk, logger, nil, cfg)
	bus := NewStreamBus(nk, logger)
	tokens := app.NewServiceTokenService(secret, nil)
	svc := app.NewService(store, bus, nil, logger, cfg, nil)
	handlers := NewHandlers(svc, store, tokens, nk, logger)

	invoker := newServiceInvoker(handlers, tokens)
	coord := bot.NewCoordinator(store, invoker, nil, logger, cfg)
	dispatcher := NewBotDispatcher(coord, logger)
	handlers.SetDispatcher(dispatcher)

	if err := handlers.Register(initializer); err != nil {
		return err
	}

	loadBotIdentities(ctx, logger, nk, env)

	sweeper := NewSweeper(store, svc, dispatcher, nil, logger, cfg)
	go func() {
		if err := sweeper.Run(context.Background()); err != nil && err != context.Canceled {
			logger.Error("timer sweeper stopped: %v", err)
		}
	}()

	logger.Info("Big Two engine module loaded.")
	return nil
}

// loadConfig reads the tunables file when present and overlays runtime
// env overrides. A missing file is normal: defaults apply.
func loadConfig(logger runtime.Logger, env map[string]string) *config.GameConfig {
	path := env["bigtwo_config_path"]
	if path == "" {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		logger.Info("game config file %s not found, using defaults", path)
		path = ""
	}
	if err := config.LoadGameConfig(path); err != nil {
		logger.Warn("game config load failed, using defaults: %v", err)
	}
	return config.ApplyEnv(config.GetGameConfig(), env)
}

// loadBotIdentities primes the bot account pool. Both steps are warn-only:
// rooms fall back to synthetic bot seats without the pool.
func loadBotIdentities(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, env map[string]string) {
	path := env["bigtwo_identities_path"]
	if path == "" {
		path = defaultIdentitiesPath
	}
	if err := bot.LoadIdentities(path); err != nil {
		logger.Warn("bot identities unavailable: %v", err)
		return
	}
	if err := bot.ProvisionBots(ctx, nk, logger); err != nil {
		logger.Warn("bot provisioning incomplete: %v", err)
	}
}
