package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sudo-init-do/coinvault/internal/auth"
	"github.com/sudo-init-do/coinvault/internal/market"
	"github.com/sudo-init-do/coinvault/internal/metrics"
	"github.com/sudo-init-do/coinvault/internal/store/local"
	"github.com/sudo-init-do/coinvault/internal/stream"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

func testApp(t *testing.T) (*httptest.Server, *auth.Tokens) {
	t.Helper()
	prices := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(prices.Close)

	s := local.NewMemory()
	m := metrics.New(prometheus.NewRegistry())
	hub := stream.NewHub()
	feed := market.NewFeed(prices.URL, 10, time.Second, time.Minute)
	tokens := auth.NewTokens("test-secret", time.Hour)

	e := newServer(app{
		store:    s,
		tokens:   tokens,
		workflow: wallet.NewWorkflow(s, wallet.WithPrices(feed), wallet.WithNotifier(wallet.Notifiers{m, hub})),
		feed:     feed,
		hub:      hub,
		metrics:  m,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func do(t *testing.T, method, url, token, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestDepositApprovalFlow(t *testing.T) {
	srv, tokens := testApp(t)

	var signup auth.TokenResponse
	code := do(t, http.MethodPost, srv.URL+"/auth/signup", "", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`, &signup)
	if code != http.StatusCreated || signup.Token == "" {
		t.Fatalf("signup = %d %+v", code, signup)
	}

	var created struct {
		Transaction wallet.Transaction `json:"transaction"`
	}
	code = do(t, http.MethodPost, srv.URL+"/wallet/deposit", signup.Token, `{"amount":"120.50","paymentDetails":{"cardNumber":"4242424242424242"}}`, &created)
	if code != http.StatusCreated {
		t.Fatalf("deposit = %d", code)
	}

	if code := do(t, http.MethodPost, srv.URL+"/admin/transactions/"+created.Transaction.ID+"/approve", signup.Token, "", nil); code != http.StatusForbidden {
		t.Fatalf("user approving = %d", code)
	}

	adminToken, err := tokens.Issue("ops", string(wallet.RoleAdmin))
	if err != nil {
		t.Fatal(err)
	}
	if code := do(t, http.MethodPost, srv.URL+"/admin/transactions/"+created.Transaction.ID+"/approve", adminToken, "", nil); code != http.StatusOK {
		t.Fatalf("approve = %d", code)
	}

	var balance struct {
		WalletBalance string `json:"walletBalance"`
	}
	if code := do(t, http.MethodGet, srv.URL+"/wallet/balance", signup.Token, "", &balance); code != http.StatusOK || balance.WalletBalance != "120.5" {
		t.Fatalf("balance = %d %+v", code, balance)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `coinvault_transactions_total{status="completed",type="deposit"} 1`) {
		t.Fatalf("metrics missing completed deposit:\n%s", body)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	srv, _ := testApp(t)
	for _, path := range []string{"/wallet/balance", "/watchlist", "/admin/stats", "/auth/me"} {
		if code := do(t, http.MethodGet, srv.URL+path, "", "", nil); code != http.StatusUnauthorized {
			t.Errorf("%s = %d", path, code)
		}
	}
}

func TestCryptoFallsBackToSnapshot(t *testing.T) {
	srv, _ := testApp(t)
	var out struct {
		Cryptocurrencies []market.Cryptocurrency `json:"cryptocurrencies"`
		Source           string                  `json:"source"`
	}
	if code := do(t, http.MethodGet, srv.URL+"/crypto", "", "", &out); code != http.StatusOK {
		t.Fatalf("crypto = %d", code)
	}
	if len(out.Cryptocurrencies) == 0 || out.Source == "live" {
		t.Fatalf("out = %+v", out)
	}
}
