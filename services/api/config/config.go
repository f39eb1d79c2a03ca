package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Table sources.
const (
	SourceCSV      = "csv"
	SourceDir      = "dir"
	SourcePostgres = "postgres"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	TableSource       string
	TablePath         string
	SnapshotDir       string
	DatabaseURL       string
	MapboxAccessToken string
	Port              int
	BearerToken       string
	ViewCacheSize     int
	DefaultStation    string
	// LoadSince and LoadUntil bound the Postgres source to [since, until).
	LoadSince *time.Time
	LoadUntil *time.Time
}

const loadDateLayout = "2006-01-02"

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		TableSource:    SourceCSV,
		TablePath:      "data/fillaridata.csv",
		SnapshotDir:    "hsl_data",
		Port:           8080,
		ViewCacheSize:  256,
		DefaultStation: "Porthania",
	}

	if src := strings.ToLower(strings.TrimSpace(os.Getenv("TABLE_SOURCE"))); src != "" {
		switch src {
		case SourceCSV, SourceDir, SourcePostgres:
			cfg.TableSource = src
		default:
			return cfg, fmt.Errorf("invalid TABLE_SOURCE: %s", src)
		}
	}
	if path := os.Getenv("TABLE_PATH"); path != "" {
		cfg.TablePath = path
	}
	if dir := os.Getenv("SNAPSHOT_DIR"); dir != "" {
		cfg.SnapshotDir = dir
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.TableSource == SourcePostgres && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required when TABLE_SOURCE=postgres")
	}

	var err error
	if cfg.LoadSince, err = parseLoadDate("LOAD_SINCE"); err != nil {
		return cfg, err
	}
	if cfg.LoadUntil, err = parseLoadDate("LOAD_UNTIL"); err != nil {
		return cfg, err
	}
	if cfg.LoadSince != nil && cfg.LoadUntil != nil && !cfg.LoadSince.Before(*cfg.LoadUntil) {
		return cfg, errors.New("LOAD_SINCE must be before LOAD_UNTIL")
	}

	cfg.MapboxAccessToken = os.Getenv("MAPBOX_ACCESS_TOKEN")
	if cfg.MapboxAccessToken == "" {
		return cfg, errors.New("MAPBOX_ACCESS_TOKEN is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if sizeStr := os.Getenv("VIEW_CACHE_SIZE"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
			cfg.ViewCacheSize = size
		} else {
			return cfg, fmt.Errorf("invalid VIEW_CACHE_SIZE: %s", sizeStr)
		}
	}

	if station := os.Getenv("DEFAULT_STATION"); station != "" {
		cfg.DefaultStation = station
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	return cfg, nil
}

func parseLoadDate(key string) (*time.Time, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(loadDateLayout, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", key, v)
	}
	return &t, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
