package config

import (
	"testing"
	"time"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range []string{
		"TABLE_SOURCE", "TABLE_PATH", "SNAPSHOT_DIR", "DATABASE_URL", "MAPBOX_ACCESS_TOKEN",
		"PORT", "API_PORT", "API_BEARER_TOKEN", "VIEW_CACHE_SIZE", "DEFAULT_STATION",
		"LOAD_SINCE", "LOAD_UNTIL",
	} {
		t.Setenv(key, env[key])
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{"MAPBOX_ACCESS_TOKEN": "pk.test"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TableSource != SourceCSV || cfg.TablePath != "data/fillaridata.csv" {
		t.Errorf("unexpected source: %+v", cfg)
	}
	if cfg.ListenAddr() != ":8080" || cfg.ViewCacheSize != 256 || cfg.DefaultStation != "Porthania" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LoadSince != nil || cfg.LoadUntil != nil {
		t.Errorf("load window should be open by default: %+v", cfg)
	}
}

func TestLoadWindow(t *testing.T) {
	setEnv(t, map[string]string{
		"MAPBOX_ACCESS_TOKEN": "pk",
		"TABLE_SOURCE":        "postgres",
		"DATABASE_URL":        "postgres://localhost/citybike",
		"LOAD_SINCE":          "2019-06-01",
		"LOAD_UNTIL":          "2019-07-01",
	})
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LoadSince == nil || !cfg.LoadSince.Equal(time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LoadSince = %v", cfg.LoadSince)
	}
	if cfg.LoadUntil == nil || cfg.LoadUntil.Sub(*cfg.LoadSince) != 30*24*time.Hour {
		t.Errorf("LoadUntil = %v", cfg.LoadUntil)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing mapbox token", map[string]string{}},
		{"postgres without url", map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "TABLE_SOURCE": "postgres"}},
		{"unknown source", map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "TABLE_SOURCE": "s3"}},
		{"bad port", map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "PORT": "http"}},
		{"bad cache size", map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "VIEW_CACHE_SIZE": "0"}},
		{"bad load date", map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "LOAD_SINCE": "June"}},
		{"inverted load window", map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "LOAD_SINCE": "2019-07-01", "LOAD_UNTIL": "2019-06-01"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env)
			if _, err := Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadAPIPortFallback(t *testing.T) {
	setEnv(t, map[string]string{"MAPBOX_ACCESS_TOKEN": "pk", "API_PORT": "9090", "TABLE_SOURCE": "DIR"})
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr() != ":9090" || cfg.TableSource != SourceDir {
		t.Errorf("cfg = %+v", cfg)
	}
}
