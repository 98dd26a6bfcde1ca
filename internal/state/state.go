// Package state serializes the tracker's mutation entry points and
// publishes one read-only View for the presentation shell.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"crypto-tracker/internal/collection"
	"crypto-tracker/internal/debounce"
	"crypto-tracker/internal/market"
	"crypto-tracker/internal/pagination"
	"crypto-tracker/internal/view"
	"crypto-tracker/internal/watchlist"
)

// Recorder receives watchlist and search events for metrics.
type Recorder interface {
	ObserveToggle(err error)
	ObserveSearch()
}

type nopRecorder struct{}

func (nopRecorder) ObserveToggle(error) {}
func (nopRecorder) ObserveSearch()      {}

type State struct {
	// mu serializes mutations: selector changes, toggles, flag changes and
	// debounce publishes never interleave.
	mu sync.Mutex

	store  *collection.Store
	pager  *pagination.Controller
	watch  *watchlist.Set
	search *debounce.Debouncer[string]
	delay  time.Duration
	log    *slog.Logger
	rec    Recorder

	favoritesOnly bool
	query         string

	cache view.Cache

	listenMu  sync.RWMutex
	listeners []func()
}

type Option func(*State)

func WithRecorder(r Recorder) Option { return func(s *State) { s.rec = r } }

// New wires the store, watchlist and a search debouncer together. The store's
// settled fetches are reported to OnChange listeners.
func New(store *collection.Store, watch *watchlist.Set, searchDelay time.Duration, logger *slog.Logger, opts ...Option) *State {
	if searchDelay <= 0 {
		searchDelay = debounce.DefaultDelay
	}
	s := &State{
		store: store,
		pager: pagination.NewController(store),
		watch: watch,
		delay: searchDelay,
		log:   logger,
		rec:   nopRecorder{},
	}
	for _, o := range opts {
		o(s)
	}
	s.search = debounce.New(s.applyQuery)
	store.SetObserver(collection.ObserverFunc(func(collection.Collection) { s.changed() }))
	return s
}

// OnChange registers fn to run after every committed change. fn runs outside
// the mutation lock and may call View.
func (s *State) OnChange(fn func()) {
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

func (s *State) changed() {
	s.listenMu.RLock()
	ls := append([]func(){}, s.listeners...)
	s.listenMu.RUnlock()
	for _, fn := range ls {
		fn()
	}
}

// Start issues the first fetch for the initial selector pair.
func (s *State) Start() {
	s.Refresh()
}

func (s *State) SetCurrency(c market.Currency) {
	s.mu.Lock()
	s.store.SetCurrency(c)
	s.mu.Unlock()
	s.log.Info("currency selected", slog.String("currency", c.Name))
	s.changed()
}

// GoTo selects page p; pages below 1 are ignored and reported as false.
func (s *State) GoTo(p int) bool {
	s.mu.Lock()
	ok := s.pager.GoTo(p)
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

func (s *State) Next() bool {
	s.mu.Lock()
	ok := s.pager.Next()
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

func (s *State) Previous() bool {
	s.mu.Lock()
	ok := s.pager.Previous()
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

// Refresh re-fetches the current selector pair.
func (s *State) Refresh() {
	s.mu.Lock()
	s.store.Refresh()
	s.mu.Unlock()
	s.changed()
}

// FeedSearch records raw search input; the filter only changes once the
// input has been quiet for the search delay.
func (s *State) FeedSearch(text string) {
	s.search.Feed(text, s.delay)
}

func (s *State) applyQuery(q string) {
	s.mu.Lock()
	same := q == s.query
	s.query = q
	s.mu.Unlock()
	if same {
		return
	}
	s.rec.ObserveSearch()
	s.log.Debug("search settled", slog.String("query", q))
	s.changed()
}

// ToggleWatchlist flips id's membership and persists it before returning.
// On a storage failure nothing changes and the error wraps market.ErrStorage.
func (s *State) ToggleWatchlist(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	in, err := s.watch.Toggle(ctx, id)
	s.mu.Unlock()
	s.rec.ObserveToggle(err)
	if err != nil {
		s.log.Error("watchlist toggle not saved",
			slog.String("id", id),
			slog.String("err", err.Error()),
		)
		return in, err
	}
	s.changed()
	return in, nil
}

func (s *State) SetShowFavoritesOnly(v bool) {
	s.mu.Lock()
	same := v == s.favoritesOnly
	s.favoritesOnly = v
	s.mu.Unlock()
	if !same {
		s.changed()
	}
}

func (s *State) Watchlist() []string { return s.watch.All() }

func (s *State) Currency() market.Currency { return s.store.Currency() }

// View is the read side handed to the presentation shell.
type View struct {
	Currency      market.Currency   `json:"currency"`
	Page          int               `json:"page"`
	Status        collection.Status `json:"status"`
	Loading       bool              `json:"loading"`
	Error         string            `json:"error,omitempty"`
	DataCurrency  market.Currency   `json:"dataCurrency"`
	DataPage      int               `json:"dataPage"`
	Snapshot      view.Snapshot     `json:"view"`
	Watchlist     []string          `json:"watchlist"`
	FavoritesOnly bool              `json:"favoritesOnly"`
	Query         string            `json:"query"`
	SearchInput   string            `json:"searchInput"`
}

func (s *State) View() View {
	s.mu.Lock()
	favs := s.favoritesOnly
	q := s.query
	s.mu.Unlock()

	coll := s.store.Collection()
	wl, wlVersion := s.watch.Members()

	// highlights follow the page the rows came from, not a page still loading
	snap := s.cache.Get(view.Key{
		Generation:       coll.Generation,
		WatchlistVersion: wlVersion,
		FavoritesOnly:    favs,
		Query:            q,
		Page:             coll.Page,
	}, view.Input{
		Coins:         coll.Coins,
		Page:          coll.Page,
		Watchlist:     wl,
		FavoritesOnly: favs,
		Query:         q,
	})

	v := View{
		Currency:      s.store.Currency(),
		Page:          s.store.Page(),
		Status:        coll.Status,
		Loading:       coll.Status == collection.StatusLoading,
		DataCurrency:  coll.Currency,
		DataPage:      coll.Page,
		Snapshot:      snap,
		Watchlist:     wl,
		FavoritesOnly: favs,
		Query:         q,
		SearchInput:   s.search.Raw(),
	}
	if coll.Err != nil {
		v.Error = coll.Err.Error()
	}
	return v
}

// Close stops the debouncer, cancels in-flight fetches and releases storage.
func (s *State) Close() error {
	s.search.Stop()
	s.store.Close()
	return s.watch.Close()
}
