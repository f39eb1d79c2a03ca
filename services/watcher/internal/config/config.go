package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultSnapshotDir    = "hsl_data"
	defaultTablePath      = "data/fillaridata.csv"
	defaultAggregatesPath = "data/aggregates.csv"
	defaultLedgerPath     = "data/ledger.db"
	defaultBaseURL        = "https://dev.hsl.fi/citybike/stations/"
	defaultCurrentURL     = "https://helsinki-fi.smoove.pro/api-public/stations"
	defaultRequestTimeout = 60 * time.Second
	defaultPollSchedule   = "* * * * *"
)

// Config holds runtime configuration for the watcher service.
type Config struct {
	SnapshotDir    string
	TablePath      string
	AggregatesPath string
	LedgerPath     string
	BaseURL        string
	CurrentURL     string
	DatabaseURL    string
	RequestTimeout time.Duration
	PollSchedule   string
	DryRun         bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		SnapshotDir:    envOr("SNAPSHOT_DIR", defaultSnapshotDir),
		TablePath:      envOr("TABLE_PATH", defaultTablePath),
		AggregatesPath: envOr("AGGREGATES_PATH", defaultAggregatesPath),
		LedgerPath:     envOr("LEDGER_PATH", defaultLedgerPath),
		BaseURL:        envOr("HSL_BASE_URL", defaultBaseURL),
		CurrentURL:     envOr("HSL_CURRENT_URL", defaultCurrentURL),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PollSchedule:   envOr("POLL_SCHEDULE", defaultPollSchedule),
	}

	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	cfg.RequestTimeout = defaultRequestTimeout
	if v := strings.TrimSpace(os.Getenv("WATCHER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return cfg, errors.New("WATCHER_REQUEST_TIMEOUT must be positive")
		}
		cfg.RequestTimeout = d
	}

	if _, err := cron.ParseStandard(cfg.PollSchedule); err != nil {
		return cfg, fmt.Errorf("invalid POLL_SCHEDULE: %w", err)
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
