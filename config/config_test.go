package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/goat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.RoundDuration() != 30*time.Second {
		t.Errorf("round duration: got %v want 30s", cfg.Game.RoundDuration())
	}
	if cfg.Game.QuestionsPerRound != 3 {
		t.Errorf("questions per round: got %d want 3", cfg.Game.QuestionsPerRound)
	}
	if cfg.Game.MutationAttempts != 3 || cfg.Game.VerifyAttempts != 5 {
		t.Errorf("attempts: got %d/%d want 3/5", cfg.Game.MutationAttempts, cfg.Game.VerifyAttempts)
	}
	if got := cfg.Game.Payout().StringFixed(2); got != "2.00" {
		t.Errorf("payout: got %s want 2.00", got)
	}
	if cfg.Game.AllowSimulatedPurchases {
		t.Error("simulated purchases should be off by default")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/goat")
	t.Setenv("GAME_ROUND_SECONDS", "45")
	t.Setenv("ALLOW_SIMULATED_PURCHASES", "true")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.RoundSeconds != 45 {
		t.Errorf("round seconds: got %d want 45", cfg.Game.RoundSeconds)
	}
	if !cfg.Game.AllowSimulatedPurchases {
		t.Error("expected simulated purchases enabled")
	}
	origins := cfg.Server.AllowedOriginsList()
	if len(origins) != 2 || origins[0] != "http://a.test" || origins[1] != "http://b.test" {
		t.Errorf("origins: got %v", origins)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}
