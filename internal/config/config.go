// Package config loads the engine's TOML configuration file, mirroring
// original_source/src/config.rs's two-layer Raw/processed Config split:
// RawConfig carries PrivateValue fields that may be a literal string or
// {env = "VARNAME"}; Load resolves them against the environment and
// fills omitted engine/audit fields with defaults via defaultStr and
// defaultMillis.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the resolved, ready-to-use configuration.
type Config struct {
	Binance BinanceConfig
	Engine  EngineConfig
	Telegram TelegramConfig
	Audit   AuditConfig
}

type BinanceConfig struct {
	FullKey    string
	FullSecret string
	ReadKey    string
	ReadSecret string
	DryRun     bool
}

// EngineConfig holds the position-level parameters a discretionary
// operator sets per run: which asset/venue to trade and at what size.
type EngineConfig struct {
	Asset           string
	Venue           string
	SizeUSDT        float64
	PollInterval    time.Duration
	RefreshInterval time.Duration
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

type AuditConfig struct {
	DatabasePath string
}

// rawConfig mirrors the TOML file shape before PrivateValue resolution.
type rawConfig struct {
	Binance struct {
		FullKey    privateValue `toml:"full_key"`
		FullSecret privateValue `toml:"full_secret"`
		ReadKey    privateValue `toml:"read_key"`
		ReadSecret privateValue `toml:"read_secret"`
		DryRun     bool         `toml:"dry_run"`
	} `toml:"binance"`
	Engine struct {
		Asset           string  `toml:"asset"`
		Venue           string  `toml:"venue"`
		SizeUSDT        float64 `toml:"size_usdt"`
		PollIntervalMs  int64   `toml:"poll_interval_ms"`
		RefreshInterval int64   `toml:"refresh_interval_ms"`
	} `toml:"engine"`
	Telegram struct {
		BotToken privateValue `toml:"bot_token"`
		ChatID   int64        `toml:"chat_id"`
	} `toml:"telegram"`
	Audit struct {
		DatabasePath string `toml:"database_path"`
	} `toml:"audit"`
}

// Load reads and resolves the TOML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: %s is not valid TOML, or is missing required fields: %w", path, err)
	}

	fullKey, err := raw.Binance.FullKey.resolve()
	if err != nil {
		return nil, err
	}
	fullSecret, err := raw.Binance.FullSecret.resolve()
	if err != nil {
		return nil, err
	}
	readKey, err := raw.Binance.ReadKey.resolve()
	if err != nil {
		return nil, err
	}
	readSecret, err := raw.Binance.ReadSecret.resolve()
	if err != nil {
		return nil, err
	}
	botToken, err := raw.Telegram.BotToken.resolve()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Binance: BinanceConfig{
			FullKey:    fullKey,
			FullSecret: fullSecret,
			ReadKey:    readKey,
			ReadSecret: readSecret,
			DryRun:     raw.Binance.DryRun,
		},
		Engine: EngineConfig{
			Asset:           defaultStr(raw.Engine.Asset, "BTC"),
			Venue:           defaultStr(raw.Engine.Venue, "BinanceFutures"),
			SizeUSDT:        raw.Engine.SizeUSDT,
			PollInterval:    defaultMillis(raw.Engine.PollIntervalMs, 5000),
			RefreshInterval: defaultMillis(raw.Engine.RefreshInterval, 15000),
		},
		Telegram: TelegramConfig{
			BotToken: botToken,
			ChatID:   raw.Telegram.ChatID,
		},
		Audit: AuditConfig{
			DatabasePath: defaultStr(raw.Audit.DatabasePath, "data/execengine.db"),
		},
	}

	if cfg.Engine.SizeUSDT <= 0 {
		return nil, fmt.Errorf("config: engine.size_usdt must be positive")
	}

	return cfg, nil
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultMillis(v int64, fallback int64) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Millisecond
}
