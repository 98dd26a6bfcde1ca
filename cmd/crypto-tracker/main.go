package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-tracker/internal/coingecko"
	"crypto-tracker/internal/collection"
	"crypto-tracker/internal/config"
	"crypto-tracker/internal/market"
	"crypto-tracker/internal/metrics"
	"crypto-tracker/internal/server"
	"crypto-tracker/internal/state"
	"crypto-tracker/internal/watchlist"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg, found, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("crypto-tracker starting",
		slog.Int("port", cfg.Port),
		slog.Bool("config_file", found),
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.Bool("api_key", cfg.APIKey != ""),
		slog.String("storage", cfg.Storage.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	client := coingecko.NewClient(cfg.APIBaseURL, cfg.APIKey,
		time.Duration(cfg.RequestTimeoutSeconds)*time.Second, logger)

	// Watchlist storage; never fatal, the app runs with an empty list at worst.
	backend := openBackend(ctx, cfg.Storage, logger)
	wl := watchlist.Open(ctx, backend, logger)

	// cfg.DefaultCurrency was validated by config.Load
	cur, _ := market.LookupCurrency(cfg.DefaultCurrency)
	store := collection.New(ctx, client, cur, cfg.PerPage, logger, collection.WithRecorder(m))

	st := state.New(store, wl, time.Duration(cfg.SearchDelayMS)*time.Millisecond, logger,
		state.WithRecorder(m))

	// HTTP server + WS hub
	srv := server.NewHTTPServer(cfg, st, client, m, logger)

	// first page of the default currency
	st.Start()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
		close(done)
	}()

	// Graceful shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	srv.Close()
	if err := st.Close(); err != nil {
		logger.Warn("closing watchlist storage", slog.String("err", err.Error()))
	}
	<-done
	logger.Info("bye")
}

// openBackend picks the configured watchlist store. sqlite and redis fall
// back to the file store when they cannot be opened.
func openBackend(ctx context.Context, sc config.Storage, logger *slog.Logger) watchlist.Backend {
	fallback := func(driver string, err error) watchlist.Backend {
		logger.Warn("watchlist storage unavailable, using file",
			slog.String("driver", driver),
			slog.String("err", err.Error()),
			slog.String("path", sc.WatchlistPath()),
		)
		return watchlist.NewFileBackend(sc.WatchlistPath())
	}

	switch sc.Driver {
	case "sqlite":
		b, err := watchlist.NewSQLiteBackend(sc.SQLitePath, sc.Key)
		if err != nil {
			return fallback(sc.Driver, err)
		}
		return b
	case "redis":
		b, err := watchlist.NewRedisBackend(ctx, watchlist.RedisOptions{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
			Key:      sc.Key,
		})
		if err != nil {
			return fallback(sc.Driver, err)
		}
		return b
	default:
		return watchlist.NewFileBackend(sc.WatchlistPath())
	}
}
