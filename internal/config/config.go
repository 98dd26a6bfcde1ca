package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"crypto-tracker/internal/market"
)

type Config struct {
	Port                  int     `yaml:"port"`
	LogLevel              string  `yaml:"log_level"`
	APIBaseURL            string  `yaml:"api_base_url"`
	APIKey                string  `yaml:"api_key"`
	PerPage               int     `yaml:"per_page"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	SearchDelayMS         int     `yaml:"search_delay_ms"`
	DefaultCurrency       string  `yaml:"default_currency"`
	Storage               Storage `yaml:"storage"`
}

type Storage struct {
	Driver        string `yaml:"driver"` // file | sqlite | redis
	DataDir       string `yaml:"data_dir"`
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Key           string `yaml:"key"`
}

// WatchlistPath is where the file driver keeps the watchlist record.
func (s Storage) WatchlistPath() string {
	return filepath.Join(s.DataDir, "watchlist.json")
}

func defaults() Config {
	return Config{
		Port:                  8087,
		LogLevel:              "info",
		APIBaseURL:            "https://api.coingecko.com/api/v3",
		PerPage:               10,
		RequestTimeoutSeconds: 15,
		SearchDelayMS:         500,
		DefaultCurrency:       "usd",
		Storage: Storage{
			Driver:  "file",
			DataDir: "./data",
			Key:     "watchlist",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error: the defaults are used and found reports false.
func Load(path string) (cfg Config, found bool, err error) {
	cfg = defaults()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, false, fmt.Errorf("read %s: %w", path, err)
	default:
		found = true
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, found, fmt.Errorf("parse yaml: %w", err)
		}
	}
	overrideWithEnv(&cfg)

	// Validation & normalization
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, found, errors.New("invalid port")
	}
	if cfg.PerPage < 1 || cfg.PerPage > 250 {
		return cfg, found, errors.New("per_page must be between 1 and 250")
	}
	if cfg.SearchDelayMS < 0 {
		return cfg, found, errors.New("search_delay_ms must be >=0")
	}
	if cfg.RequestTimeoutSeconds < 1 {
		return cfg, found, errors.New("request_timeout_seconds must be >=1")
	}
	cur, ok := market.LookupCurrency(cfg.DefaultCurrency)
	if !ok {
		return cfg, found, fmt.Errorf("unknown default_currency %q", cfg.DefaultCurrency)
	}
	cfg.DefaultCurrency = cur.Name
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch cfg.Storage.Driver {
	case "file", "sqlite":
		if cfg.Storage.DataDir == "" {
			return cfg, found, errors.New("storage.data_dir required")
		}
		if cfg.Storage.SQLitePath == "" {
			cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "crypto-tracker.db")
		}
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			return cfg, found, errors.New("storage.redis_addr required for redis driver")
		}
	default:
		return cfg, found, fmt.Errorf(`storage.driver must be "file", "sqlite" or "redis", got %q`, cfg.Storage.Driver)
	}
	return cfg, found, nil
}

// overrideWithEnv lets secrets and deployment addresses come from the
// environment instead of config.yaml.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CRYPTO_TRACKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("CRYPTO_TRACKER_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CRYPTO_TRACKER_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("CRYPTO_TRACKER_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("CRYPTO_TRACKER_REDIS_PASSWORD"); v != "" {
		cfg.Storage.RedisPassword = v
	}
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
