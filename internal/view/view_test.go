package view

import (
	"testing"

	"github.com/shopspring/decimal"

	"crypto-tracker/internal/market"
)

func coin(id, name string, rank int, chg float64) market.Coin {
	return market.Coin{
		ID:                       id,
		Name:                     name,
		MarketCapRank:            rank,
		PriceChangePercentage24h: decimal.NewFromFloat(chg),
	}
}

func ids(coins []market.Coin) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.ID
	}
	return out
}

func sameIDs(t *testing.T, got []market.Coin, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got %v want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v want %v", g, want)
		}
	}
}

func TestHighlightsOnUnfilteredFirstPage(t *testing.T) {
	raw := []market.Coin{
		coin("a", "Alpha", 1, 5),
		coin("b", "Beta", 2, -3),
		coin("c", "Gamma", 3, 1),
	}
	snap := Compute(Input{Coins: raw, Page: 1})
	if !snap.HasHighlights() {
		t.Fatal("expected highlights")
	}
	if snap.TopGainer.ID != "a" || snap.TopLoser.ID != "b" || snap.MarketLeader.ID != "a" {
		t.Fatalf("gainer=%s loser=%s leader=%s", snap.TopGainer.ID, snap.TopLoser.ID, snap.MarketLeader.ID)
	}
	sameIDs(t, snap.Visible, "a", "b", "c")
}

func TestHighlightsGating(t *testing.T) {
	raw := []market.Coin{coin("a", "Alpha", 1, 5), coin("b", "Beta", 2, -3)}
	cases := []struct {
		name string
		in   Input
		want bool
	}{
		{"page1 no filters", Input{Coins: raw, Page: 1}, true},
		{"page2", Input{Coins: raw, Page: 2}, false},
		{"favorites only", Input{Coins: raw, Page: 1, FavoritesOnly: true, Watchlist: []string{"a", "b"}}, false},
		{"search", Input{Coins: raw, Page: 1, Query: "al"}, false},
		{"empty page", Input{Coins: nil, Page: 1}, false},
	}
	for _, tc := range cases {
		snap := Compute(tc.in)
		got := snap.TopGainer != nil || snap.TopLoser != nil || snap.MarketLeader != nil
		if got != tc.want {
			t.Fatalf("%s: highlights present=%v want %v", tc.name, got, tc.want)
		}
		if got && !snap.HasHighlights() {
			t.Fatalf("%s: partial highlights %+v", tc.name, snap)
		}
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	raw := []market.Coin{
		coin("btc", "Bitcoin", 1, 0),
		coin("bch", "Bitcoin Cash", 2, 0),
		coin("eth", "Ether", 3, 0),
	}
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, Query: "bit"}).Visible, "btc", "bch")
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, Query: "CASH"}).Visible, "bch")
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, Query: "coin c"}).Visible, "bch")
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, Query: "doge"}).Visible)
}

func TestFavoritesThenSearchKeepSourceOrder(t *testing.T) {
	raw := []market.Coin{
		coin("btc", "Bitcoin", 1, 0),
		coin("eth", "Ethereum", 2, 0),
		coin("bch", "Bitcoin Cash", 3, 0),
		coin("etc", "Ethereum Classic", 4, 0),
	}
	// watchlist order differs from rank order; rows follow rank order
	wl := []string{"etc", "bch", "btc"}
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, FavoritesOnly: true, Watchlist: wl}).Visible, "btc", "bch", "etc")
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, FavoritesOnly: true, Watchlist: wl, Query: "ethereum"}).Visible, "etc")
	sameIDs(t, Compute(Input{Coins: raw, Page: 1, FavoritesOnly: true}).Visible)
}

func TestExtremesTieBreakFirstOccurrence(t *testing.T) {
	raw := []market.Coin{
		coin("x", "X", 1, 2),
		coin("y", "Y", 2, 7),
		coin("z", "Z", 3, 7),
		coin("w", "W", 4, -1),
		coin("v", "V", 5, -1),
	}
	snap := Compute(Input{Coins: raw, Page: 1})
	if snap.TopGainer.ID != "y" || snap.TopLoser.ID != "w" {
		t.Fatalf("gainer=%s loser=%s", snap.TopGainer.ID, snap.TopLoser.ID)
	}

	single := Compute(Input{Coins: raw[:1], Page: 1})
	if single.TopGainer.ID != "x" || single.TopLoser.ID != "x" {
		t.Fatal("single coin is both gainer and loser")
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	raw := []market.Coin{coin("a", "Alpha", 1, 1), coin("b", "Beta", 2, 9)}
	_ = Compute(Input{Coins: raw, Page: 1, Query: "beta"})
	if raw[0].ID != "a" || raw[1].ID != "b" {
		t.Fatalf("input reordered: %v", ids(raw))
	}
}

func TestCacheReusesUntilKeyChanges(t *testing.T) {
	raw := []market.Coin{coin("a", "Alpha", 1, 1), coin("b", "Beta", 2, 9)}
	var c Cache
	k := Key{Generation: 1, Page: 1}

	first := c.Get(k, Input{Coins: raw, Page: 1})
	second := c.Get(k, Input{Coins: raw, Page: 1})
	if first.TopGainer != second.TopGainer {
		t.Fatal("same key should return the memoized snapshot")
	}

	k2 := k
	k2.Query = "alpha"
	third := c.Get(k2, Input{Coins: raw, Page: 1, Query: "alpha"})
	if third.TopGainer != nil {
		t.Fatal("stale highlights leaked through the cache")
	}
	sameIDs(t, third.Visible, "a")

	c.Invalidate()
	fourth := c.Get(k2, Input{Coins: raw, Page: 1, Query: "alpha"})
	sameIDs(t, fourth.Visible, "a")
}
