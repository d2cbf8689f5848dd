package app

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is assembled from environment variables at startup.
type Config struct {
	ListenAddr string    `env:"LISTEN_ADDR" envDefault:":8080"`
	StakeTiers []float64 `env:"STAKE_TIERS" envDefault:"1,5,20"`

	// ArenaRadius and TargetItems override world geometry when positive;
	// zero keeps the built-in defaults.
	ArenaRadius float64 `env:"ARENA_RADIUS"`
	TargetItems int     `env:"TARGET_ITEMS"`

	// SettlementEndpoint is the payout service URL. Empty selects the
	// in-process settler, which approves everything (local play only).
	SettlementEndpoint string `env:"SETTLEMENT_ENDPOINT"`

	// OutcomeDBPath enables the SQLite outcome store when set.
	OutcomeDBPath string `env:"OUTCOME_DB_PATH"`

	LogSinks    []string `env:"LOG_SINKS" envDefault:"console"`
	LogJSONPath string   `env:"LOG_JSON_PATH" envDefault:"events.jsonl"`
}

// ParseConfig loads configuration from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.StakeTiers) == 0 {
		return cfg, fmt.Errorf("at least one stake tier is required")
	}
	return cfg, nil
}
