// Package collection owns the page of coins fetched for the active
// (currency, page) selector pair.
package collection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"crypto-tracker/internal/coingecko"
	"crypto-tracker/internal/market"
)

// Fetcher retrieves one page of markets. *coingecko.Client implements it.
type Fetcher interface {
	FetchMarkets(ctx context.Context, q coingecko.MarketsQuery) ([]market.Coin, error)
}

// Status is the load state of the selector pair most recently requested.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Collection is what the store publishes. Currency and Page describe the
// request that produced Coins, which may lag the selector while a newer
// request is loading or after it failed.
type Collection struct {
	Currency   market.Currency
	Page       int
	Coins      []market.Coin
	Generation uint64 // bumps each time Coins is replaced
	Status     Status
	Err        error
}

// Observer hears about every settled fetch, stale ones excluded.
type Observer interface {
	FetchSettled(c Collection)
}

type ObserverFunc func(Collection)

func (f ObserverFunc) FetchSettled(c Collection) { f(c) }

// Recorder receives fetch outcomes for metrics. kind is "" on success.
type Recorder interface {
	ObserveFetch(kind string, took time.Duration)
	ObserveStale()
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration) {}
func (nopRecorder) ObserveStale()                      {}

// Store issues exactly one fetch per distinct selector pair. When the pair
// changes while a fetch is in flight, the older fetch is cancelled and its
// result, should it still arrive, is dropped by generation check.
type Store struct {
	fetcher Fetcher
	perPage int
	log     *slog.Logger
	rec     Recorder

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	notify Observer

	mu       sync.RWMutex
	currency market.Currency
	page     int
	reqGen   uint64 // stamp of the newest issued request
	cancel   context.CancelFunc
	status   Status
	lastErr  error
	current  Collection
	dataGen  uint64
}

type Option func(*Store)

func WithRecorder(r Recorder) Option { return func(s *Store) { s.rec = r } }
func WithObserver(o Observer) Option { return func(s *Store) { s.notify = o } }

// New creates a store selecting (currency, page 1). Nothing is fetched until
// Refresh or a selector change.
func New(ctx context.Context, fetcher Fetcher, currency market.Currency, perPage int, logger *slog.Logger, opts ...Option) *Store {
	if perPage < 1 {
		perPage = 10
	}
	rootCtx, stop := context.WithCancel(ctx)
	s := &Store{
		fetcher:  fetcher,
		perPage:  perPage,
		log:      logger,
		rec:      nopRecorder{},
		ctx:      rootCtx,
		stop:     stop,
		currency: currency,
		page:     1,
	}
	for _, o := range opts {
		o(s)
	}
	s.current = Collection{Currency: currency, Page: 1, Coins: []market.Coin{}}
	return s
}

func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	s.notify = o
	s.mu.Unlock()
}

// SetCurrency selects c and fetches if the pair changed.
func (s *Store) SetCurrency(c market.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == s.currency {
		return
	}
	s.currency = c
	s.issueLocked()
}

// SetPage selects page p and fetches if the pair changed. Pages below 1 are
// rejected and leave the store untouched.
func (s *Store) SetPage(p int) bool {
	if p < 1 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == s.page {
		return true
	}
	s.page = p
	s.issueLocked()
	return true
}

// Refresh re-requests the current pair, e.g. for the first load or a manual retry.
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueLocked()
}

func (s *Store) Currency() market.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

func (s *Store) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Coins returns the last successfully fetched page (empty before the first
// success). The slice must be treated as read-only.
func (s *Store) Coins() []market.Coin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Coins
}

// Collection returns the published page together with the load status of
// the newest request.
func (s *Store) Collection() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.current
	c.Status = s.status
	c.Err = s.lastErr
	return c
}

// Wait blocks until every issued fetch has settled.
func (s *Store) Wait() { s.wg.Wait() }

// Close cancels in-flight fetches and waits for them.
func (s *Store) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *Store) issueLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ctx.Err() != nil {
		return
	}
	s.reqGen++
	gen := s.reqGen
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.status = StatusLoading
	s.lastErr = nil

	q := coingecko.MarketsQuery{Currency: s.currency.Name, Page: s.page, PerPage: s.perPage}
	cur := s.currency

	s.log.Debug("fetching markets",
		slog.String("currency", q.Currency),
		slog.Int("page", q.Page),
		slog.Uint64("gen", gen),
	)

	s.wg.Add(1)
	go s.run(ctx, cancel, gen, cur, q)
}

func (s *Store) run(ctx context.Context, cancel context.CancelFunc, gen uint64, cur market.Currency, q coingecko.MarketsQuery) {
	defer s.wg.Done()
	defer cancel()

	start := time.Now()
	coins, err := s.fetcher.FetchMarkets(ctx, q)
	took := time.Since(start)

	s.mu.Lock()
	if gen != s.reqGen {
		s.mu.Unlock()
		s.rec.ObserveStale()
		s.log.Debug("dropping stale markets response",
			slog.String("currency", q.Currency),
			slog.Int("page", q.Page),
			slog.Uint64("gen", gen),
		)
		return
	}
	s.cancel = nil
	if err != nil {
		s.status = StatusFailed
		s.lastErr = err
	} else {
		if coins == nil {
			coins = []market.Coin{}
		}
		s.dataGen++
		s.current = Collection{Currency: cur, Page: q.Page, Coins: coins, Generation: s.dataGen}
		s.status = StatusLoaded
		s.lastErr = nil
	}
	settled := s.current
	settled.Status = s.status
	settled.Err = s.lastErr
	notify := s.notify
	s.mu.Unlock()

	s.rec.ObserveFetch(market.ErrorKind(err), took)
	if err != nil {
		s.log.Error("markets fetch failed",
			slog.String("currency", q.Currency),
			slog.Int("page", q.Page),
			slog.String("kind", market.ErrorKind(err)),
			slog.String("err", err.Error()),
		)
	} else {
		s.log.Info("markets loaded",
			slog.String("currency", q.Currency),
			slog.Int("page", q.Page),
			slog.Int("count", len(coins)),
		)
	}
	if notify != nil {
		notify.FetchSettled(settled)
	}
}
