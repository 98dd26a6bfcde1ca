package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFetch(t *testing.T) {
	m := New()
	m.ObserveFetch("", 120*time.Millisecond)
	m.ObserveFetch("network", time.Second)
	m.ObserveFetch("network", time.Second)
	m.ObserveStale()

	if got := testutil.ToFloat64(m.MarketFetches.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok fetches got %v", got)
	}
	if got := testutil.ToFloat64(m.MarketFetches.WithLabelValues("network")); got != 2 {
		t.Fatalf("network fetches got %v", got)
	}
	if got := testutil.ToFloat64(m.StaleResponses); got != 1 {
		t.Fatalf("stale got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveToggle(nil)
	m.ObserveToggle(errors.New("disk full"))
	m.ObserveSearch()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{
		`crypto_tracker_watchlist_toggles_total{result="ok"} 1`,
		`crypto_tracker_watchlist_toggles_total{result="failed"} 1`,
		`crypto_tracker_search_publishes_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
