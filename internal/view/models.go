package view

import "crypto-tracker/internal/market"

type Input struct {
	Coins         []market.Coin // raw page in source (rank) order
	Page          int           // page the coins were fetched for
	Watchlist     []string
	FavoritesOnly bool
	Query         string // stabilized search text
}

type Snapshot struct {
	Visible      []market.Coin `json:"visible"`
	TopGainer    *market.Coin  `json:"topGainer,omitempty"`
	TopLoser     *market.Coin  `json:"topLoser,omitempty"`
	MarketLeader *market.Coin  `json:"marketLeader,omitempty"`
}

// HasHighlights reports whether the highlight cards apply to this snapshot.
func (s Snapshot) HasHighlights() bool {
	return s.TopGainer != nil && s.TopLoser != nil && s.MarketLeader != nil
}

// Key identifies an Input without hashing its slices. Generation and
// WatchlistVersion must change whenever Coins or Watchlist do.
type Key struct {
	Generation       uint64
	WatchlistVersion uint64
	FavoritesOnly    bool
	Query            string
	Page             int
}
