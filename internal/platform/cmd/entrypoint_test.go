package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Study  string `env:"CMD_TEST_STUDY" envDefault:"armor-tiers"`
	Trials int    `env:"CMD_TEST_TRIALS" envDefault:"1000"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("COMBATSIM_CMD_TEST_STUDY", "kerberos")
	t.Setenv("COMBATSIM_CMD_TEST_TRIALS", "500")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfgRef := testConfig{}
	if err := ParseConfig(&cfgRef); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfgRef.Study, "study", cfgRef.Study, "study")
	fs.IntVar(&cfgRef.Trials, "trials", cfgRef.Trials, "trials")

	if err := ParseArgs(fs, []string{"-study", "smart-ammo"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfgRef.Study != "smart-ammo" {
		t.Fatalf("expected flag value for study, got %q", cfgRef.Study)
	}
	if cfgRef.Trials != 500 {
		t.Fatalf("expected env trials, got %d", cfgRef.Trials)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected parse config to reject nil target")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceCombatsim, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("COMBATSIM_OTEL_ENDPOINT", "")
	boom := errors.New("boom")

	var called bool
	err := RunWithTelemetry(context.Background(), ServiceCombatsim, func(context.Context) error {
		called = true
		return boom
	})
	if !called {
		t.Fatal("expected run function to be called")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
}
