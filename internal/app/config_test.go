package app

import (
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr :8080, got %q", cfg.ListenAddr)
	}
	if len(cfg.StakeTiers) != 3 || cfg.StakeTiers[0] != 1 || cfg.StakeTiers[2] != 20 {
		t.Fatalf("unexpected default stake tiers: %v", cfg.StakeTiers)
	}
	if len(cfg.LogSinks) != 1 || cfg.LogSinks[0] != "console" {
		t.Fatalf("unexpected default log sinks: %v", cfg.LogSinks)
	}
}

func TestParseConfigFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("STAKE_TIERS", "0.5,2.5")
	t.Setenv("SETTLEMENT_ENDPOINT", "http://payouts.internal/settle")
	t.Setenv("LOG_SINKS", "console,json")

	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("listen addr not read: %q", cfg.ListenAddr)
	}
	if len(cfg.StakeTiers) != 2 || cfg.StakeTiers[0] != 0.5 || cfg.StakeTiers[1] != 2.5 {
		t.Fatalf("stake tiers not read: %v", cfg.StakeTiers)
	}
	if cfg.SettlementEndpoint != "http://payouts.internal/settle" {
		t.Fatalf("settlement endpoint not read: %q", cfg.SettlementEndpoint)
	}
	if len(cfg.LogSinks) != 2 || cfg.LogSinks[1] != "json" {
		t.Fatalf("log sinks not read: %v", cfg.LogSinks)
	}
}

func TestParseConfigRejectsEmptyTiers(t *testing.T) {
	t.Setenv("STAKE_TIERS", "")
	if _, err := ParseConfig(); err == nil {
		t.Fatalf("expected empty stake tiers to fail")
	}
}
