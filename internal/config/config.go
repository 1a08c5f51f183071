package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"ludo/internal/app"
)

type StakeTier struct {
	ID    string `json:"id"`
	Stake int64  `json:"stake"`
}

type GameConfig struct {
	TaxRate     float64     `json:"tax_rate"`
	DefaultTier string      `json:"default_tier"`
	Tiers       []StakeTier `json:"tiers"`

	TurnDurationSeconds    int `json:"turn_duration_seconds"`
	GracePeriodSeconds     int `json:"grace_period_seconds"`
	MaxConsecutiveTimeouts int `json:"max_consecutive_timeouts"`
	AutoSkipDelayMs        int `json:"auto_skip_delay_ms"`

	// BotAutoFillDelaySeconds configures how many seconds to wait before adding a bot to a solo human lobby.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// SessionConfig translates the loaded configuration into session tuning,
// falling back to the app defaults for absent or nonsensical fields.
func SessionConfig() app.SessionConfig {
	sc := app.DefaultSessionConfig()
	if cfg == nil {
		return sc
	}
	if cfg.TurnDurationSeconds > 0 {
		sc.Clock.TurnDuration = time.Duration(cfg.TurnDurationSeconds) * time.Second
	}
	if cfg.GracePeriodSeconds > 0 && time.Duration(cfg.GracePeriodSeconds)*time.Second < sc.Clock.TurnDuration {
		sc.Clock.GracePeriod = time.Duration(cfg.GracePeriodSeconds) * time.Second
	}
	if cfg.MaxConsecutiveTimeouts > 0 {
		sc.Clock.MaxConsecutiveTimeouts = cfg.MaxConsecutiveTimeouts
	}
	if cfg.AutoSkipDelayMs > 0 {
		sc.AutoSkipDelay = time.Duration(cfg.AutoSkipDelayMs) * time.Millisecond
	}
	return sc
}

// GetStake returns the entry stake for a given tier ID, or the default if not found.
func GetStake(tierID string) int64 {
	if cfg == nil {
		return 100 // Safe default
	}

	target := tierID
	if target == "" {
		target = cfg.DefaultTier
	}

	for _, tier := range cfg.Tiers {
		if tier.ID == target {
			return tier.Stake
		}
	}

	// Fallback to default tier if specific ID not found
	for _, tier := range cfg.Tiers {
		if tier.ID == cfg.DefaultTier {
			return tier.Stake
		}
	}

	return 100
}
