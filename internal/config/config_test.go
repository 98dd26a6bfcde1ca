package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, found, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("found should be false")
	}
	if cfg.PerPage != 10 || cfg.SearchDelayMS != 500 || cfg.DefaultCurrency != "usd" || cfg.Storage.Driver != "file" {
		t.Fatalf("defaults got %+v", cfg)
	}
	if cfg.Storage.WatchlistPath() != filepath.Join("data", "watchlist.json") {
		t.Fatalf("watchlist path got %s", cfg.Storage.WatchlistPath())
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	p := writeConfig(t, `
port: 9000
per_page: 25
default_currency: " EUR "
api_base_url: "http://localhost:1234/api/v3/"
storage:
  driver: SQLite
  data_dir: /tmp/ct
`)
	cfg, found, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if !found || cfg.Port != 9000 || cfg.PerPage != 25 {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.DefaultCurrency != "eur" {
		t.Fatalf("currency got %q", cfg.DefaultCurrency)
	}
	if cfg.APIBaseURL != "http://localhost:1234/api/v3" {
		t.Fatalf("base url got %q", cfg.APIBaseURL)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != filepath.Join("/tmp/ct", "crypto-tracker.db") {
		t.Fatalf("storage got %+v", cfg.Storage)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "CG-test")
	t.Setenv("CRYPTO_TRACKER_STORAGE_DRIVER", "redis")
	t.Setenv("CRYPTO_TRACKER_REDIS_ADDR", "127.0.0.1:6379")
	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "CG-test" || cfg.Storage.Driver != "redis" || cfg.Storage.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"port":     "port: 70000\n",
		"per_page": "per_page: 0\n",
		"currency": "default_currency: xyz\n",
		"driver":   "storage:\n  driver: mongo\n",
		"redis":    "storage:\n  driver: redis\n",
		"yaml":     "port: [\n",
	}
	for name, body := range cases {
		if _, _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "error", "bogus"} {
		if NewLogger(lvl) == nil {
			t.Fatalf("nil logger for %s", lvl)
		}
	}
	if !strings.EqualFold("info", defaults().LogLevel) {
		t.Fatal("default level should be info")
	}
}
