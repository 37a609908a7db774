package market

import "github.com/shopspring/decimal"

// ReferenceSnapshot is served whenever the live feed is unreachable or returns garbage.
func ReferenceSnapshot() []Cryptocurrency {
	return []Cryptocurrency{
		coin(1, "bitcoin", "Bitcoin", "BTC", "65000", 0.12, 1.85, 4.2, "28500000000", "1280000000000", "https://assets.coingecko.com/coins/images/1/large/bitcoin.png"),
		coin(2, "ethereum", "Ethereum", "ETH", "3200", -0.08, 2.41, 6.75, "14200000000", "385000000000", "https://assets.coingecko.com/coins/images/279/large/ethereum.png"),
		coin(3, "tether", "Tether", "USDT", "1", 0.01, 0.02, -0.01, "52000000000", "112000000000", "https://assets.coingecko.com/coins/images/325/large/Tether.png"),
		coin(4, "binancecoin", "BNB", "BNB", "580", 0.25, -1.12, 3.05, "1650000000", "85000000000", "https://assets.coingecko.com/coins/images/825/large/bnb-icon2_2x.png"),
		coin(5, "solana", "Solana", "SOL", "145", 0.44, 3.9, 11.2, "2900000000", "67000000000", "https://assets.coingecko.com/coins/images/4128/large/solana.png"),
		coin(6, "usd-coin", "USDC", "USDC", "1", 0.0, 0.01, 0.0, "6100000000", "33000000000", "https://assets.coingecko.com/coins/images/6319/large/usdc.png"),
		coin(7, "ripple", "XRP", "XRP", "0.52", -0.15, -0.9, 1.4, "1100000000", "29000000000", "https://assets.coingecko.com/coins/images/44/large/xrp-symbol-white-128.png"),
		coin(8, "dogecoin", "Dogecoin", "DOGE", "0.12", 0.31, 4.6, 9.8, "900000000", "17500000000", "https://assets.coingecko.com/coins/images/5/large/dogecoin.png"),
		coin(9, "cardano", "Cardano", "ADA", "0.45", -0.21, -2.3, -4.1, "420000000", "16000000000", "https://assets.coingecko.com/coins/images/975/large/cardano.png"),
		coin(10, "tron", "TRON", "TRX", "0.12", 0.05, 0.8, 2.2, "310000000", "10500000000", "https://assets.coingecko.com/coins/images/1094/large/tron-logo.png"),
	}
}

func coin(rank int, id, name, symbol, price string, ch1h, ch24h, ch7d float64, volume, mcap, image string) Cryptocurrency {
	return Cryptocurrency{
		ID:             id,
		Rank:           rank,
		Name:           name,
		Symbol:         symbol,
		Price:          decimal.RequireFromString(price),
		PriceChange1h:  ch1h,
		PriceChange24h: ch24h,
		PriceChange7d:  ch7d,
		Volume24h:      decimal.RequireFromString(volume),
		MarketCap:      decimal.RequireFromString(mcap),
		Image:          image,
	}
}
