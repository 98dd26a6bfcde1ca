package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-tracker/internal/market"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client talks to the CoinGecko v3 REST API. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// MarketsQuery selects one page of /coins/markets.
type MarketsQuery struct {
	Currency string
	Page     int
	PerPage  int
}

func (q MarketsQuery) values() url.Values {
	v := url.Values{}
	v.Set("vs_currency", q.Currency)
	v.Set("order", "market_cap_desc")
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("sparkline", "false")
	v.Set("price_change_percentage", "24h")
	return v
}

// FetchMarkets returns the coins of one page in rank order. An empty slice is
// a valid answer for a page past the end of the listing.
func (c *Client) FetchMarkets(ctx context.Context, q MarketsQuery) ([]market.Coin, error) {
	var coins []market.Coin
	if err := c.getJSON(ctx, "/coins/markets", q.values(), &coins); err != nil {
		return nil, err
	}
	if coins == nil {
		coins = []market.Coin{}
	}
	return coins, nil
}

// Detail is the subset of /coins/{id} the detail page renders.
type Detail struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Image         struct {
		Large string `json:"large"`
	} `json:"image"`
	Description struct {
		En string `json:"en"`
	} `json:"description"`
	MarketData struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
		MarketCap    map[string]decimal.Decimal `json:"market_cap"`
		High24h      map[string]decimal.Decimal `json:"high_24h"`
		Low24h       map[string]decimal.Decimal `json:"low_24h"`
	} `json:"market_data"`
}

func (c *Client) FetchCoin(ctx context.Context, id string) (*Detail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty coin id")
	}
	v := url.Values{}
	v.Set("localization", "false")
	v.Set("tickers", "false")
	v.Set("community_data", "false")
	v.Set("developer_data", "false")
	var d Detail
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id), v, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Chart holds [unix_ms, value] pairs from /coins/{id}/market_chart.
type Chart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

func (c *Client) FetchMarketChart(ctx context.Context, id, currency string, days int) (*Chart, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty coin id")
	}
	if days < 1 {
		days = 10
	}
	v := url.Values{}
	v.Set("vs_currency", currency)
	v.Set("days", strconv.Itoa(days))
	v.Set("interval", "daily")
	var ch Chart
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", v, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) url(p string, q url.Values) string {
	if len(q) == 0 {
		return c.baseURL + p
	}
	return c.baseURL + p + "?" + q.Encode()
}

// getJSON decodes the body of a GET into out. Transport problems wrap
// market.ErrNetwork; status and decode problems wrap market.ErrResponse.
func (c *Client) getJSON(ctx context.Context, p string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(p, q), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", p, err)
	}
	req.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w: %w", p, market.ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("coingecko request",
		slog.String("path", p),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little of the body so the error carries the API's reason
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("GET %s: status %d %s: %w", p, resp.StatusCode, strings.TrimSpace(string(snippet)), market.ErrResponse)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("GET %s: %w: %w", p, market.ErrNetwork, ctx.Err())
		}
		return fmt.Errorf("decode %s: %w: %w", p, market.ErrResponse, err)
	}
	return nil
}
