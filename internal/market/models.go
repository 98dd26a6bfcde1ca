package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Coin is one asset's market snapshot as returned by /coins/markets.
// Coins are never mutated after decoding; a new page replaces the old one.
type Coin struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	Symbol                   string          `json:"symbol"`
	Image                    string          `json:"image"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	MarketCapRank            int             `json:"market_cap_rank"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	High24h                  decimal.Decimal `json:"high_24h"`
	Low24h                   decimal.Decimal `json:"low_24h"`
}

type Currency struct {
	Name   string `json:"name"`   // lowercase vs_currency code, e.g. "usd"
	Symbol string `json:"symbol"` // display symbol, e.g. "$"
}

var (
	USD = Currency{Name: "usd", Symbol: "$"}
	EUR = Currency{Name: "eur", Symbol: "€"}
	INR = Currency{Name: "inr", Symbol: "₹"}
	GBP = Currency{Name: "gbp", Symbol: "£"}
	JPY = Currency{Name: "jpy", Symbol: "¥"}
	AUD = Currency{Name: "aud", Symbol: "A$"}
	CAD = Currency{Name: "cad", Symbol: "C$"}
)

// Currencies lists the selectable display currencies in menu order.
var Currencies = []Currency{USD, EUR, INR, GBP, JPY, AUD, CAD}

// LookupCurrency returns the known currency for code (case-insensitive).
func LookupCurrency(code string) (Currency, bool) {
	canon := strings.ToLower(strings.TrimSpace(code))
	for _, c := range Currencies {
		if c.Name == canon {
			return c, true
		}
	}
	return Currency{}, false
}
