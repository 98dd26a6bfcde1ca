package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the tracker's collectors on a private registry so several
// instances (tests) never collide.
type Metrics struct {
	reg *prometheus.Registry

	// MarketFetches counts settled /coins/markets requests by result
	// ("ok", "network", "response", "canceled", "unknown").
	MarketFetches *prometheus.CounterVec
	// FetchLatency records how long settled market fetches took.
	FetchLatency prometheus.Histogram
	// StaleResponses counts responses dropped because a newer selector pair was requested.
	StaleResponses prometheus.Counter
	// WatchlistToggles counts toggles by result ("ok", "failed").
	WatchlistToggles *prometheus.CounterVec
	// SearchPublishes counts stabilized search values.
	SearchPublishes prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		MarketFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crypto_tracker_market_fetches_total",
				Help: "Settled market page fetches by result",
			},
			[]string{"result"},
		),
		FetchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crypto_tracker_market_fetch_seconds",
				Help:    "Latency in seconds of settled market page fetches",
				Buckets: prometheus.DefBuckets,
			},
		),
		StaleResponses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crypto_tracker_stale_responses_total",
				Help: "Market responses discarded because a newer selector pair was issued",
			},
		),
		WatchlistToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crypto_tracker_watchlist_toggles_total",
				Help: "Watchlist toggles by result",
			},
			[]string{"result"},
		),
		SearchPublishes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crypto_tracker_search_publishes_total",
				Help: "Search queries that settled after the debounce interval",
			},
		),
	}
	m.reg.MustRegister(m.MarketFetches, m.FetchLatency, m.StaleResponses, m.WatchlistToggles, m.SearchPublishes)
	return m
}

// ObserveFetch implements collection.Recorder.
func (m *Metrics) ObserveFetch(kind string, took time.Duration) {
	if kind == "" {
		kind = "ok"
	}
	m.MarketFetches.WithLabelValues(kind).Inc()
	m.FetchLatency.Observe(took.Seconds())
}

// ObserveStale implements collection.Recorder.
func (m *Metrics) ObserveStale() { m.StaleResponses.Inc() }

func (m *Metrics) ObserveToggle(err error) {
	if err != nil {
		m.WatchlistToggles.WithLabelValues("failed").Inc()
		return
	}
	m.WatchlistToggles.WithLabelValues("ok").Inc()
}

func (m *Metrics) ObserveSearch() { m.SearchPublishes.Inc() }

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
