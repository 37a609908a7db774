package wallet_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/coinvault/internal/wallet"
)

func call(t *testing.T, h echo.HandlerFunc, method, path, body, userID string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestDepositHandlerMasksCard(t *testing.T) {
	wf, _, _ := setup(t, "0")
	h := wallet.NewHandler(wf)

	rec := call(t, h.Deposit, http.MethodPost, "/wallet/deposit",
		`{"amount":"250","paymentDetails":{"cardNumber":"4111 1111 1111 1234","name":"User One"}}`, "u1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if strings.Contains(rec.Body.String(), "41111111") {
		t.Fatalf("full card number leaked: %s", rec.Body)
	}
	var out struct {
		Transaction wallet.Transaction `json:"transaction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Transaction.Status != wallet.StatusPending || out.Transaction.PaymentDetails == nil || out.Transaction.PaymentDetails.CardLast4 != "1234" {
		t.Fatalf("tx = %+v", out.Transaction)
	}
}

func TestHandlersRequireCaller(t *testing.T) {
	wf, _, _ := setup(t, "0")
	h := wallet.NewHandler(wf)
	for name, fn := range map[string]echo.HandlerFunc{
		"balance":  h.Balance,
		"list":     h.GetUserTransactions,
		"deposit":  h.Deposit,
		"withdraw": h.Withdraw,
		"buy":      h.Buy,
		"sell":     h.Sell,
	} {
		if rec := call(t, fn, http.MethodPost, "/", `{}`, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestWithdrawHandlerRejectsOverdraw(t *testing.T) {
	wf, _, _ := setup(t, "10")
	h := wallet.NewHandler(wf)
	rec := call(t, h.Withdraw, http.MethodPost, "/wallet/withdraw",
		`{"amount":"50","paymentDetails":{"walletAddress":"0xabc"}}`, "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
}

func TestBuyHandlerReturnsQuote(t *testing.T) {
	wf, _, _ := setup(t, "1000")
	h := wallet.NewHandler(wf)

	rec := call(t, h.Buy, http.MethodPost, "/wallet/buy", `{"cryptocurrency":"BTC","amount":100}`, "u1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var out struct {
		Quote wallet.BuyQuote `json:"quote"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Quote.Commission.Equal(dec("14")) {
		t.Fatalf("quote = %+v", out.Quote)
	}

	rec = call(t, h.Buy, http.MethodPost, "/wallet/buy", `{"amount":100}`, "u1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing asset: status = %d", rec.Code)
	}
}

func TestSellHandlerUnknownAsset(t *testing.T) {
	wf, _, _ := setup(t, "0")
	h := wallet.NewHandler(wf)
	rec := call(t, h.Sell, http.MethodPost, "/wallet/sell", `{"cryptocurrency":"notacoin","cryptoAmount":"1"}`, "u1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
}

func TestAdminApproveAndCancel(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := setup(t, "0")
	h := wallet.NewHandler(wf)

	first, err := wf.Create(ctx, wallet.CreateRequest{UserID: "u1", Type: wallet.TypeDeposit, Amount: dec("75")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := wf.Create(ctx, wallet.CreateRequest{UserID: "u1", Type: wallet.TypeDeposit, Amount: dec("5")})
	if err != nil {
		t.Fatal(err)
	}

	rec := call(t, h.AdminListPending, http.MethodGet, "/admin/transactions/pending", "", "admin")
	if !strings.Contains(rec.Body.String(), first.ID) || !strings.Contains(rec.Body.String(), second.ID) {
		t.Fatalf("pending = %s", rec.Body)
	}

	rec = call(t, h.ApproveTransaction, http.MethodPost, "/", "", "admin", "id", first.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d body=%s", rec.Code, rec.Body)
	}
	acct, _ := wf.Account(ctx, "u1")
	if !acct.WalletBalance.Equal(dec("75")) {
		t.Fatalf("balance = %s", acct.WalletBalance)
	}

	rec = call(t, h.ApproveTransaction, http.MethodPost, "/", "", "admin", "id", first.ID)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second approve status = %d", rec.Code)
	}

	rec = call(t, h.CancelTransaction, http.MethodPost, "/", `{"reason":""}`, "admin", "id", second.ID)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("cancel without reason = %d", rec.Code)
	}
	rec = call(t, h.CancelTransaction, http.MethodPost, "/", `{"reason":"duplicate"}`, "admin", "id", second.ID)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "duplicate") {
		t.Fatalf("cancel status = %d body=%s", rec.Code, rec.Body)
	}

	rec = call(t, h.AdminGetAllTransactions, http.MethodGet, "/admin/transactions?status=cancelled", "", "admin")
	var out struct {
		Transactions []wallet.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Transactions) != 1 || out.Transactions[0].ID != second.ID {
		t.Fatalf("cancelled = %+v", out.Transactions)
	}

	rec = call(t, h.AdminGetTransaction, http.MethodGet, "/", "", "admin", "id", "missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing tx = %d", rec.Code)
	}
}
