package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Cryptocurrency is one row of the price feed.
type Cryptocurrency struct {
	ID             string          `json:"id"`
	Rank           int             `json:"rank"`
	Name           string          `json:"name"`
	Symbol         string          `json:"symbol"`
	Price          decimal.Decimal `json:"price"`
	PriceChange1h  float64         `json:"priceChange1h"`
	PriceChange24h float64         `json:"priceChange24h"`
	PriceChange7d  float64         `json:"priceChange7d"`
	Volume24h      decimal.Decimal `json:"volume24h"`
	MarketCap      decimal.Decimal `json:"marketCap"`
	Image          string          `json:"image"`
}

// Matches reports whether ref names this asset by id or symbol, ignoring case.
func (c Cryptocurrency) Matches(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	return strings.EqualFold(c.ID, ref) || strings.EqualFold(c.Symbol, ref)
}

func find(list []Cryptocurrency, ref string) (Cryptocurrency, bool) {
	// Ids win over symbols: several tokens share a ticker.
	for _, c := range list {
		if strings.EqualFold(c.ID, strings.TrimSpace(ref)) {
			return c, true
		}
	}
	for _, c := range list {
		if c.Matches(ref) {
			return c, true
		}
	}
	return Cryptocurrency{}, false
}
