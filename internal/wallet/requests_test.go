package wallet_test

import (
	"context"
	"testing"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

func TestRequestBuyQuotesAgainstSnapshot(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := setup(t, "1000")

	tx, quote, err := wf.RequestBuy(ctx, "u1", "BTC", dec("100"), nil)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !quote.Commission.Equal(dec("14")) || !quote.Net.Equal(dec("86")) {
		t.Fatalf("quote = %+v", quote)
	}
	if !quote.CryptoAmount.Equal(dec("0.00132308")) {
		t.Fatalf("crypto amount = %s", quote.CryptoAmount)
	}
	if tx.Cryptocurrency != "bitcoin" || tx.CryptoName != "Bitcoin" {
		t.Fatalf("asset = %q %q", tx.Cryptocurrency, tx.CryptoName)
	}
	if tx.Commission == nil || !tx.Commission.Equal(dec("14")) {
		t.Fatalf("commission = %v", tx.Commission)
	}
	if !tx.Amount.Equal(dec("100")) {
		t.Fatalf("amount = %s", tx.Amount)
	}
}

func TestRequestBuyNeedsBalance(t *testing.T) {
	wf, _, _ := setup(t, "50")
	if _, _, err := wf.RequestBuy(context.Background(), "u1", "bitcoin", dec("100"), nil); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("want validation, got %v", err)
	}
}

func TestRequestBuyUnknownAsset(t *testing.T) {
	wf, _, _ := setup(t, "500")
	if _, _, err := wf.RequestBuy(context.Background(), "u1", "notacoin", dec("10"), nil); !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestRequestSell(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := setup(t, "0", wallet.Holding{CryptoID: "ethereum", Name: "Ethereum", Symbol: "ETH", Amount: dec("2")})

	if _, err := wf.RequestSell(ctx, "u1", "eth", dec("3")); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("oversell: want validation, got %v", err)
	}

	tx, err := wf.RequestSell(ctx, "u1", "ethereum", dec("0.5"))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !tx.Amount.Equal(dec("1600")) {
		t.Fatalf("proceeds = %s", tx.Amount)
	}
	if tx.Commission != nil {
		t.Fatalf("sell should carry no commission, got %s", tx.Commission)
	}
}

func TestRequestWithdrawal(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := setup(t, "100")

	if _, err := wf.RequestWithdrawal(ctx, "u1", dec("10"), nil); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("missing address: %v", err)
	}
	pd := &wallet.PaymentDetails{WalletAddress: "0xabc"}
	if _, err := wf.RequestWithdrawal(ctx, "u1", dec("150"), pd); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("over balance: %v", err)
	}
	tx, err := wf.RequestWithdrawal(ctx, "u1", dec("40"), pd)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Type != wallet.TypeWithdrawal || tx.PaymentDetails.WalletAddress != "0xabc" {
		t.Fatalf("tx = %+v", tx)
	}
}

func TestRequestDeposit(t *testing.T) {
	wf, _, _ := setup(t, "0")
	tx, err := wf.RequestDeposit(context.Background(), "u1", dec("75.50"), &wallet.PaymentDetails{CardLast4: "5555444433332222"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Status != wallet.StatusPending || tx.PaymentDetails.CardLast4 != "2222" {
		t.Fatalf("tx = %+v", tx)
	}
}
