package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SNAPSHOT_DIR", "TABLE_PATH", "AGGREGATES_PATH", "LEDGER_PATH", "HSL_BASE_URL",
		"HSL_CURRENT_URL", "DATABASE_URL", "WATCHER_REQUEST_TIMEOUT", "POLL_SCHEDULE", "DRY_RUN",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SnapshotDir != "hsl_data" || cfg.TablePath != "data/fillaridata.csv" {
		t.Errorf("unexpected paths: %+v", cfg)
	}
	if cfg.BaseURL != "https://dev.hsl.fi/citybike/stations/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.DatabaseURL != "" || cfg.DryRun {
		t.Errorf("optional settings should be off by default: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HSL_BASE_URL", "http://localhost:9000/stations")
	t.Setenv("WATCHER_REQUEST_TIMEOUT", "5s")
	t.Setenv("POLL_SCHEDULE", "*/5 * * * *")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9000/stations/" {
		t.Errorf("BaseURL should gain a trailing slash, got %q", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.PollSchedule != "*/5 * * * *" || !cfg.DryRun {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"WATCHER_REQUEST_TIMEOUT", "soon"},
		{"WATCHER_REQUEST_TIMEOUT", "-1s"},
		{"POLL_SCHEDULE", "every minute"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
