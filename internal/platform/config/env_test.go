package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Trials  int      `env:"TEST_TRIALS" envDefault:"123"`
	Studies []string `env:"TEST_STUDIES" envSeparator:","`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Trials != 123 {
		t.Fatalf("expected default trials 123, got %d", cfg.Trials)
	}
}

func TestParseEnvUsesPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TEST_TRIALS", "7")
	t.Setenv("COMBATSIM_TEST_TRIALS", "9")
	t.Setenv("COMBATSIM_TEST_STUDIES", "kerberos,armor-tiers")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Trials != 9 {
		t.Fatalf("expected prefixed trials 9, got %d", cfg.Trials)
	}
	if len(cfg.Studies) != 2 || cfg.Studies[1] != "armor-tiers" {
		t.Fatalf("studies = %v", cfg.Studies)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("COMBATSIM_TEST_TRIALS", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
