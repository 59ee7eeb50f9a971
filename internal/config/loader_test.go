package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_ParseConfiguration(t *testing.T) {

	unsetAll := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"FITCLUB_CONFIG",
			"FITCLUB_HTTP_PORT",
			"FITCLUB_SQLITE_DSN",
			"FITCLUB_SERVER_BASE_URL",
			"FITCLUB_SYNC_INTERVAL",
			"FITCLUB_WORKING_HOURS_PER_DAY",
			"FITCLUB_DAYS_PER_WEEK",
		} {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}
	}

	t.Run("applies defaults when nothing is configured", func(t *testing.T) {
		unsetAll(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:fitclub.db?_pragma=foreign_keys(1)" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SyncInterval != 5*time.Minute {
			t.Fatalf("expected default sync interval 5m, got %s", cfg.SyncInterval)
		}
		if cfg.WorkingHoursPerDay != 12 || cfg.DaysPerWeek != 7 {
			t.Fatalf("unexpected capacity defaults: %d/%d", cfg.WorkingHoursPerDay, cfg.DaysPerWeek)
		}
	})

	t.Run("reads values from a YAML file", func(t *testing.T) {
		unsetAll(t)

		path := filepath.Join(t.TempDir(), "fitclub.yaml")
		content := "http_port: 9090\nsqlite_dsn: file:/tmp/fitclub.db\nsync_interval: 10m\nworking_hours_per_day: 10\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/fitclub.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.SyncInterval != 10*time.Minute {
			t.Fatalf("expected sync interval 10m, got %s", cfg.SyncInterval)
		}
		if cfg.WorkingHoursPerDay != 10 {
			t.Fatalf("expected working hours 10, got %d", cfg.WorkingHoursPerDay)
		}
		if cfg.DaysPerWeek != 7 {
			t.Fatalf("expected default days per week 7, got %d", cfg.DaysPerWeek)
		}
	})

	t.Run("environment overrides win over the file", func(t *testing.T) {
		unsetAll(t)

		path := filepath.Join(t.TempDir(), "fitclub.yaml")
		if err := os.WriteFile(path, []byte("http_port: 9090\n"), 0o600); err != nil {
			t.Fatalf("write config file: %v", err)
		}

		t.Setenv("FITCLUB_HTTP_PORT", "7070")
		t.Setenv("FITCLUB_SYNC_INTERVAL", "90s")
		t.Setenv("FITCLUB_DAYS_PER_WEEK", "6")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected HTTP port 7070, got %d", cfg.HTTPPort)
		}
		if cfg.SyncInterval != 90*time.Second {
			t.Fatalf("expected sync interval 90s, got %s", cfg.SyncInterval)
		}
		if cfg.DaysPerWeek != 6 {
			t.Fatalf("expected days per week 6, got %d", cfg.DaysPerWeek)
		}
	})

	t.Run("rejects invalid environment values", func(t *testing.T) {
		unsetAll(t)

		t.Setenv("FITCLUB_HTTP_PORT", "not-a-port")

		if _, err := Load(""); err == nil {
			t.Fatal("expected error for invalid port")
		}
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		unsetAll(t)

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port, got %d", cfg.HTTPPort)
		}
	})
}
