package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// GameConfig carries the tunables of the engine. Zero values fall back to
// the defaults below, so partial config files and env overrides are fine.
type GameConfig struct {
	// AutoPassDurationMs is the countdown installed after an unbeatable play.
	AutoPassDurationMs int64 `json:"auto_pass_duration_ms"`
	// SweepIntervalMs is the cadence of the background timer sweep.
	SweepIntervalMs int64 `json:"sweep_interval_ms"`

	// BotMinDelayMs/BotMaxDelayMs bound the pause between bot moves.
	BotMinDelayMs int64 `json:"bot_min_delay_ms"`
	BotMaxDelayMs int64 `json:"bot_max_delay_ms"`
	// MaxBotMoves caps moves per coordinator run.
	MaxBotMoves int `json:"max_bot_moves"`
	// BotLeaseSeconds is the TTL of the coordinator lease row.
	BotLeaseSeconds int `json:"bot_lease_seconds"`
	// BotRunBudgetSeconds is the hard stop for one coordinator run.
	BotRunBudgetSeconds int `json:"bot_run_budget_seconds"`
	// BotThinkBudgetMs bounds one policy decision before a pass is forced.
	BotThinkBudgetMs int64 `json:"bot_think_budget_ms"`

	// GameOverThreshold is the cumulative score that ends the game.
	GameOverThreshold int `json:"game_over_threshold"`
	// ConflictRetries bounds in-process retries of conflicted commits.
	ConflictRetries int `json:"conflict_retries"`

	// Store client retry policy.
	StoreAttemptTimeoutMs int64 `json:"store_attempt_timeout_ms"`
	StoreRetries          int   `json:"store_retries"`
	StoreBackoffMs        int64 `json:"store_backoff_ms"`

	// ServiceTokenSecret signs internal action tokens. Comes from the
	// runtime env, never from the config file.
	ServiceTokenSecret string `json:"-"`
}

// Default returns the canonical tunables.
func Default() *GameConfig {
	return &GameConfig{
		AutoPassDurationMs:    10_000,
		SweepIntervalMs:       250,
		BotMinDelayMs:         300,
		BotMaxDelayMs:         500,
		MaxBotMoves:           20,
		BotLeaseSeconds:       45,
		BotRunBudgetSeconds:   30,
		BotThinkBudgetMs:      1_000,
		GameOverThreshold:     101,
		ConflictRetries:       3,
		StoreAttemptTimeoutMs: 3_000,
		StoreRetries:          5,
		StoreBackoffMs:        800,
	}
}

// AutoPassDuration returns the countdown as a duration.
func (c *GameConfig) AutoPassDuration() time.Duration {
	return time.Duration(c.AutoPassDurationMs) * time.Millisecond
}

// SweepInterval returns the sweep cadence as a duration.
func (c *GameConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMs) * time.Millisecond
}

// BotLease returns the lease TTL as a duration.
func (c *GameConfig) BotLease() time.Duration {
	return time.Duration(c.BotLeaseSeconds) * time.Second
}

// BotRunBudget returns the coordinator hard stop as a duration.
func (c *GameConfig) BotRunBudget() time.Duration {
	return time.Duration(c.BotRunBudgetSeconds) * time.Second
}

// BotThinkBudget returns the per-decision budget as a duration.
func (c *GameConfig) BotThinkBudget() time.Duration {
	return time.Duration(c.BotThinkBudgetMs) * time.Millisecond
}

// StoreAttemptTimeout returns the per-attempt store timeout.
func (c *GameConfig) StoreAttemptTimeout() time.Duration {
	return time.Duration(c.StoreAttemptTimeoutMs) * time.Millisecond
}

// StoreBackoff returns the pause between store retries.
func (c *GameConfig) StoreBackoff() time.Duration {
	return time.Duration(c.StoreBackoffMs) * time.Millisecond
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration file once. A missing path is
// not an error: defaults apply.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		base := Default()
		if path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				loadErr = fmt.Errorf("failed to read game config: %w", err)
				return
			}
			if err := json.Unmarshal(data, base); err != nil {
				loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
				return
			}
		}
		cfg = base
	})
	return loadErr
}

// GetGameConfig returns the global configuration, defaults if never loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Default()
	}
	return cfg
}

// ApplyEnv overlays runtime environment overrides onto c. Unknown keys are
// ignored; malformed numbers keep the prior value.
func ApplyEnv(c *GameConfig, env map[string]string) *GameConfig {
	if v, ok := env["bigtwo_auto_pass_duration_ms"]; ok {
		setInt64(&c.AutoPassDurationMs, v)
	}
	if v, ok := env["bigtwo_sweep_interval_ms"]; ok {
		setInt64(&c.SweepIntervalMs, v)
	}
	if v, ok := env["bigtwo_bot_min_delay_ms"]; ok {
		setInt64(&c.BotMinDelayMs, v)
	}
	if v, ok := env["bigtwo_bot_max_delay_ms"]; ok {
		setInt64(&c.BotMaxDelayMs, v)
	}
	if v, ok := env["bigtwo_max_bot_moves"]; ok {
		setInt(&c.MaxBotMoves, v)
	}
	if v, ok := env["bigtwo_bot_lease_seconds"]; ok {
		setInt(&c.BotLeaseSeconds, v)
	}
	if v, ok := env["bigtwo_game_over_threshold"]; ok {
		setInt(&c.GameOverThreshold, v)
	}
	if v, ok := env["bigtwo_service_token_secret"]; ok {
		c.ServiceTokenSecret = v
	}
	return c
}

func setInt64(dst *int64, v string) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		*dst = n
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
