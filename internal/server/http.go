package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"crypto-tracker/internal/coingecko"
	"crypto-tracker/internal/collection"
	"crypto-tracker/internal/config"
	"crypto-tracker/internal/market"
	"crypto-tracker/internal/metrics"
	"crypto-tracker/internal/state"
)

// DetailSource backs the single-coin page. *coingecko.Client implements it.
type DetailSource interface {
	FetchCoin(ctx context.Context, id string) (*coingecko.Detail, error)
	FetchMarketChart(ctx context.Context, id, currency string, days int) (*coingecko.Chart, error)
}

type HTTPServer struct {
	cfg     config.Config
	st      *state.State
	detail  DetailSource
	metrics *metrics.Metrics
	hub     *hub
	log     *slog.Logger
	mux     *http.ServeMux

	errMu   sync.Mutex
	lastErr string
}

func NewHTTPServer(cfg config.Config, st *state.State, detail DetailSource, m *metrics.Metrics, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:     cfg,
		st:      st,
		detail:  detail,
		metrics: m,
		log:     logger,
		mux:     http.NewServeMux(),
	}
	s.hub = newHub(logger, func() []byte { return marshalWS("view", s.st.View()) })
	s.routes()
	go s.hub.run()
	st.OnChange(s.BroadcastView)
	return s
}

// Close disconnects websocket clients and stops the hub.
func (s *HTTPServer) Close() { s.hub.stop() }

func (s *HTTPServer) Router() http.Handler { return s.mux }

// --------- WS broadcasts ----------

// BroadcastView pushes the current view to every client, plus an error
// message the first time a new fetch failure shows up.
func (s *HTTPServer) BroadcastView() {
	v := s.st.View()
	s.hub.publish(marshalWS("view", v))

	s.errMu.Lock()
	fresh := v.Status == collection.StatusFailed && v.Error != s.lastErr
	if v.Status == collection.StatusFailed {
		s.lastErr = v.Error
	} else {
		s.lastErr = ""
	}
	s.errMu.Unlock()
	if fresh {
		s.BroadcastError("Could not load market data: " + v.Error)
	}
}

func (s *HTTPServer) BroadcastError(msg string) {
	s.hub.publish(marshalWS("error", map[string]string{"message": msg}))
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	// SPA
	s.mux.HandleFunc("/", s.serveIndex)
	s.mux.HandleFunc("/index.html", s.serveIndex)
	s.mux.HandleFunc("/app.js", s.serveAppJS)
	s.mux.HandleFunc("/styles.css", s.serveCSS)

	// WS
	s.mux.HandleFunc("/ws", s.hub.serveWS)

	// API
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/config", s.apiConfig)
	s.mux.HandleFunc("/api/view", s.apiView)
	s.mux.HandleFunc("/api/currency", s.apiCurrency)
	s.mux.HandleFunc("/api/page", s.apiPage)
	s.mux.HandleFunc("/api/page/next", s.apiPageNext)
	s.mux.HandleFunc("/api/page/prev", s.apiPagePrev)
	s.mux.HandleFunc("/api/search", s.apiSearch)
	s.mux.HandleFunc("/api/favorites", s.apiFavorites)
	s.mux.HandleFunc("/api/watchlist", s.apiWatchlist)
	s.mux.HandleFunc("/api/watchlist/toggle", s.apiWatchlistToggle)
	s.mux.HandleFunc("/api/refresh", s.apiRefresh)
	s.mux.HandleFunc("/api/coins/", s.apiCoin)

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
}

func (s *HTTPServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	b, err := os.ReadFile("./web/index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/app.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveCSS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/styles.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	v := s.st.View()
	writeJSON(w, map[string]any{
		"ok":     true,
		"status": v.Status,
	})
}

func (s *HTTPServer) apiConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"currencies":      market.Currencies,
		"currentCurrency": s.st.Currency(),
		"perPage":         s.cfg.PerPage,
		"searchDelayMs":   s.cfg.SearchDelayMS,
	})
}

func (s *HTTPServer) apiView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.st.View())
}

// POST /api/currency { "currency": "eur" }
func (s *HTTPServer) apiCurrency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	cur, ok := market.LookupCurrency(req.Currency)
	if !ok {
		http.Error(w, "unknown currency", http.StatusBadRequest)
		return
	}
	s.st.SetCurrency(cur)
	writeJSON(w, map[string]any{"ok": true, "currency": cur})
}

// POST /api/page { "page": 3 }
func (s *HTTPServer) apiPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !s.st.GoTo(req.Page) {
		http.Error(w, "page must be >=1", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "page": req.Page})
}

func (s *HTTPServer) apiPageNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	ok := s.st.Next()
	writeJSON(w, map[string]any{"ok": ok, "page": s.st.View().Page})
}

func (s *HTTPServer) apiPagePrev(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	ok := s.st.Previous()
	writeJSON(w, map[string]any{"ok": ok, "page": s.st.View().Page})
}

// POST /api/search { "text": "bit" }; the filter applies once typing settles.
func (s *HTTPServer) apiSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.st.FeedSearch(req.Text)
	writeJSON(w, map[string]any{"ok": true, "pending": true})
}

// POST /api/favorites { "enabled": true }
func (s *HTTPServer) apiFavorites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.st.SetShowFavoritesOnly(req.Enabled)
	writeJSON(w, map[string]any{"ok": true, "favoritesOnly": req.Enabled})
}

func (s *HTTPServer) apiWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"ids": s.st.Watchlist()})
}

// POST /api/watchlist/toggle { "id": "bitcoin" }
func (s *HTTPServer) apiWatchlistToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	in, err := s.st.ToggleWatchlist(ctx, id)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":        false,
			"id":        id,
			"watchlist": in,
			"error":     "watchlist not saved: " + err.Error(),
		})
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id, "watchlist": in})
}

func (s *HTTPServer) apiRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.st.Refresh()
	writeJSON(w, map[string]any{"ok": true})
}

// GET /api/coins/{id} and /api/coins/{id}/chart, priced in the active currency.
func (s *HTTPServer) apiCoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/coins/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "chart") {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	cur := s.st.Currency()

	if len(parts) == 2 {
		ch, err := s.detail.FetchMarketChart(r.Context(), id, cur.Name, 10)
		if err != nil {
			s.upstreamError(w, "market chart", err)
			return
		}
		type point struct {
			Date  string  `json:"date"`
			Price float64 `json:"price"`
		}
		pts := make([]point, 0, len(ch.Prices))
		for _, p := range ch.Prices {
			ts := time.UnixMilli(int64(p[0])).UTC()
			pts = append(pts, point{Date: ts.Format("2006-01-02"), Price: p[1]})
		}
		writeJSON(w, map[string]any{"id": id, "currency": cur, "prices": pts})
		return
	}

	d, err := s.detail.FetchCoin(r.Context(), id)
	if err != nil {
		s.upstreamError(w, "coin detail", err)
		return
	}
	md := d.MarketData
	writeJSON(w, map[string]any{
		"id":            d.ID,
		"name":          d.Name,
		"symbol":        strings.ToUpper(d.Symbol),
		"image":         d.Image.Large,
		"marketCapRank": d.MarketCapRank,
		"description":   d.Description.En,
		"currency":      cur,
		"currentPrice":  md.CurrentPrice[cur.Name],
		"marketCap":     md.MarketCap[cur.Name],
		"high24h":       md.High24h[cur.Name],
		"low24h":        md.Low24h[cur.Name],
	})
}

func (s *HTTPServer) upstreamError(w http.ResponseWriter, what string, err error) {
	s.log.Warn(what+" fetch failed",
		slog.String("kind", market.ErrorKind(err)),
		slog.String("err", err.Error()),
	)
	status := http.StatusBadGateway
	if errors.Is(err, market.ErrNetwork) {
		status = http.StatusGatewayTimeout
	}
	http.Error(w, what+" unavailable", status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
