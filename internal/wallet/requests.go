package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
)

// The Request* helpers are the user-facing entry points. They apply the
// pre-submission checks a client would (funds available, asset known, price
// quote) and then hand a fully priced request to Create.

func (w *Workflow) RequestDeposit(ctx context.Context, userID string, amount decimal.Decimal, pd *PaymentDetails) (Transaction, error) {
	return w.Create(ctx, CreateRequest{
		UserID:         userID,
		Type:           TypeDeposit,
		Amount:         amount,
		PaymentDetails: pd,
	})
}

func (w *Workflow) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, pd *PaymentDetails) (Transaction, error) {
	if pd == nil || pd.WalletAddress == "" {
		return Transaction{}, apperrors.Validation(apperrors.WithMessage("wallet address is required"))
	}
	if err := w.requireBalance(ctx, userID, amount); err != nil {
		return Transaction{}, err
	}
	return w.Create(ctx, CreateRequest{
		UserID:         userID,
		Type:           TypeWithdrawal,
		Amount:         amount,
		PaymentDetails: pd,
	})
}

// RequestBuy prices a fiat spend on assetRef, deducting the commission once, here.
func (w *Workflow) RequestBuy(ctx context.Context, userID, assetRef string, amount decimal.Decimal, pd *PaymentDetails) (Transaction, BuyQuote, error) {
	if !amount.IsPositive() {
		return Transaction{}, BuyQuote{}, apperrors.Validation(apperrors.WithMessage("amount must be greater than zero"))
	}
	coin, err := w.prices.Lookup(ctx, assetRef)
	if err != nil {
		return Transaction{}, BuyQuote{}, err
	}
	quote, err := QuoteBuy(amount, coin.Price, w.commission)
	if err != nil {
		return Transaction{}, BuyQuote{}, err
	}
	if err := w.requireBalance(ctx, userID, amount); err != nil {
		return Transaction{}, BuyQuote{}, err
	}

	tx, err := w.Create(ctx, CreateRequest{
		UserID:         userID,
		Type:           TypeBuy,
		Amount:         quote.Amount,
		CryptoAmount:   quote.CryptoAmount,
		Commission:     quote.Commission,
		Asset:          Asset{ID: coin.ID, Symbol: coin.Symbol, Name: coin.Name, Image: coin.Image},
		PaymentDetails: pd,
	})
	return tx, quote, err
}

// RequestSell prices qty of assetRef at the current price.
func (w *Workflow) RequestSell(ctx context.Context, userID, assetRef string, qty decimal.Decimal) (Transaction, error) {
	if !qty.IsPositive() {
		return Transaction{}, apperrors.Validation(apperrors.WithMessage("cryptoAmount must be greater than zero"))
	}
	coin, err := w.prices.Lookup(ctx, assetRef)
	if err != nil {
		return Transaction{}, err
	}
	asset := Asset{ID: coin.ID, Symbol: coin.Symbol, Name: coin.Name, Image: coin.Image}

	acct, err := w.store.Accounts().Get(ctx, userID)
	if err != nil {
		return Transaction{}, err
	}
	held, ok := acct.Holding(asset)
	if !ok || held.Amount.LessThan(qty) {
		return Transaction{}, apperrors.Validation(apperrors.WithMessage("insufficient holdings"))
	}

	proceeds, err := QuoteSell(qty, coin.Price)
	if err != nil {
		return Transaction{}, err
	}
	return w.Create(ctx, CreateRequest{
		UserID:       userID,
		Type:         TypeSell,
		Amount:       proceeds,
		CryptoAmount: qty,
		Asset:        asset,
	})
}

func (w *Workflow) requireBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	acct, err := w.store.Accounts().Get(ctx, userID)
	if err != nil {
		return err
	}
	if acct.WalletBalance.LessThan(amount) {
		return apperrors.Validation(apperrors.WithMessage("insufficient balance"))
	}
	return nil
}
