package view

import (
	"strings"
	"sync"

	"crypto-tracker/internal/market"
)

// Compute derives the visible rows and highlight cards from in. It is pure:
// equal inputs always give equal snapshots.
//
// Rows keep source order and pass the watchlist filter, then the name
// filter. Highlights exist only on page 1 with neither filter active and are
// taken over the unfiltered page.
func Compute(in Input) Snapshot {
	visible := in.Coins
	if in.FavoritesOnly {
		members := make(map[string]struct{}, len(in.Watchlist))
		for _, id := range in.Watchlist {
			members[id] = struct{}{}
		}
		visible = filter(visible, func(c market.Coin) bool {
			_, ok := members[c.ID]
			return ok
		})
	}
	if in.Query != "" {
		q := strings.ToLower(in.Query)
		visible = filter(visible, func(c market.Coin) bool {
			return strings.Contains(strings.ToLower(c.Name), q)
		})
	}
	if visible == nil {
		visible = []market.Coin{}
	}

	snap := Snapshot{Visible: visible}
	if in.Page == 1 && !in.FavoritesOnly && in.Query == "" && len(in.Coins) > 0 {
		snap.TopGainer, snap.TopLoser = extremes(in.Coins)
		leader := in.Coins[0]
		snap.MarketLeader = &leader
	}
	return snap
}

func filter(coins []market.Coin, keep func(market.Coin) bool) []market.Coin {
	out := make([]market.Coin, 0, len(coins))
	for _, c := range coins {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// extremes returns copies of the coins with the largest and smallest 24h
// change. On ties the earlier coin wins.
func extremes(coins []market.Coin) (*market.Coin, *market.Coin) {
	hi, lo := 0, 0
	for i := 1; i < len(coins); i++ {
		chg := coins[i].PriceChangePercentage24h
		if chg.GreaterThan(coins[hi].PriceChangePercentage24h) {
			hi = i
		}
		if chg.LessThan(coins[lo].PriceChangePercentage24h) {
			lo = i
		}
	}
	gainer, loser := coins[hi], coins[lo]
	return &gainer, &loser
}

// Cache memoizes the last Compute result by Key.
type Cache struct {
	mu    sync.Mutex
	key   Key
	snap  Snapshot
	valid bool
}

// Get returns the cached snapshot when k matches the previous call and
// recomputes otherwise.
func (c *Cache) Get(k Key, in Input) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.key == k {
		return c.snap
	}
	c.snap = Compute(in)
	c.key = k
	c.valid = true
	return c.snap
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
