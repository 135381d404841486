package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "plannerd.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Strategy != "morning" || cfg.SessionDuration() != time.Hour {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 perms, got %v", info.Mode().Perm())
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plannerd.yaml")
	body := "db_path: /tmp/x.db\nstrategy: nonsense\nsession_length: banana\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Fatalf("explicit value lost: %q", cfg.DBPath)
	}
	if cfg.Strategy != "morning" || cfg.SessionLength != "1h" || cfg.HorizonDays != 30 {
		t.Fatalf("normalization missed: %#v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plannerd.yaml")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("PLANNERD_DB", "/tmp/override.db")
	t.Setenv("PLANNERD_STRATEGY", "procrastinator")
	t.Setenv("PLANNERD_SESSION_LENGTH", "90m")
	t.Setenv("PLANNERD_HORIZON_DAYS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/override.db" || cfg.Strategy != "procrastinator" {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
	if cfg.SessionDuration() != 90*time.Minute || cfg.HorizonDays != 7 {
		t.Fatalf("env overrides not applied: %#v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plannerd.yaml")
	cfg := Default()
	cfg.Feeds = []FeedConfig{{Name: "uni", Source: "https://example.edu/cal.ics"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Feeds) != 1 || got.Feeds[0].Source != "https://example.edu/cal.ics" {
		t.Fatalf("feeds lost in round trip: %#v", got.Feeds)
	}
}
