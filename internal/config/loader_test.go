package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Council.Mode != "simple-majority" {
		t.Fatalf("expected default mode simple-majority, got %s", cfg.Council.Mode)
	}
	if cfg.Autopilot.AutoApproveThreshold != 0.8 {
		t.Fatalf("expected default threshold 0.8, got %f", cfg.Autopilot.AutoApproveThreshold)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbiter.yaml")
	body := `
server:
  port: "9999"
council:
  rounds: 3
  mode: weighted
  threshold: 0.6
history:
  backend: memory
reviewers:
  - name: alice
    backend: openai-chat
    weight: 1.5
    specialties: [security, backend]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9999" {
		t.Fatalf("expected port 9999, got %s", cfg.Server.Port)
	}
	if cfg.Council.Rounds != 3 || cfg.Council.Mode != "weighted" {
		t.Fatalf("council section not applied: %+v", cfg.Council)
	}
	if len(cfg.Reviewers) != 1 || cfg.Reviewers[0].Name != "alice" {
		t.Fatalf("reviewers not parsed: %+v", cfg.Reviewers)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("ARBITER_PORT", "7070")
	t.Setenv("ARBITER_COUNCIL_MODE", "unanimous")
	t.Setenv("ARBITER_AUTOPILOT_POLL_INTERVAL", "10s")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Council.Mode != "unanimous" {
		t.Fatalf("expected env mode unanimous, got %s", cfg.Council.Mode)
	}
	if cfg.Autopilot.PollInterval != 10*time.Second {
		t.Fatalf("expected env poll interval 10s, got %s", cfg.Autopilot.PollInterval)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Council.Mode = "coin-flip"
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for unknown consensus mode")
	}
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	cfg := Defaults()
	cfg.History.Backend = "postgres"
	cfg.Postgres.DSN = ""
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for postgres backend without dsn")
	}
}

func TestValidateRejectsReviewerWithoutBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Reviewers = []Reviewer{{Name: "alice"}}
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for reviewer without backend")
	}
}
