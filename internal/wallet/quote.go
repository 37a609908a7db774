package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
)

// DefaultCommissionRate is the fee taken from a buy before converting to crypto.
var DefaultCommissionRate = decimal.RequireFromString("0.14")

const (
	cryptoPrecision = 8
	fiatPrecision   = 2
)

// BuyQuote is the fixed result of pricing a buy at request time.
type BuyQuote struct {
	Amount       decimal.Decimal `json:"amount"`
	Commission   decimal.Decimal `json:"commission"`
	Net          decimal.Decimal `json:"net"`
	Price        decimal.Decimal `json:"price"`
	CryptoAmount decimal.Decimal `json:"cryptoAmount"`
}

// QuoteBuy splits amount into commission and net spend, and converts the net
// spend into a crypto quantity at price.
func QuoteBuy(amount, price, rate decimal.Decimal) (BuyQuote, error) {
	if !amount.IsPositive() {
		return BuyQuote{}, apperrors.Validation(apperrors.WithMessage("amount must be greater than zero"))
	}
	if !price.IsPositive() {
		return BuyQuote{}, apperrors.Validation(apperrors.WithMessage("no usable price for asset"))
	}
	commission := amount.Mul(rate).Round(fiatPrecision)
	net := amount.Sub(commission)
	return BuyQuote{
		Amount:       amount,
		Commission:   commission,
		Net:          net,
		Price:        price,
		CryptoAmount: net.DivRound(price, cryptoPrecision),
	}, nil
}

// QuoteSell returns the fiat proceeds of selling qty at price.
func QuoteSell(qty, price decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, apperrors.Validation(apperrors.WithMessage("cryptoAmount must be greater than zero"))
	}
	if !price.IsPositive() {
		return decimal.Zero, apperrors.Validation(apperrors.WithMessage("no usable price for asset"))
	}
	return qty.Mul(price).Round(fiatPrecision), nil
}
