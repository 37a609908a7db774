package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type memWatchlist map[string][]string

func (m memWatchlist) Watchlist(_ context.Context, userID string) ([]string, error) {
	return m[userID], nil
}

func (m memWatchlist) AddToWatchlist(_ context.Context, userID, cryptoID string) ([]string, error) {
	for _, id := range m[userID] {
		if id == cryptoID {
			return m[userID], nil
		}
	}
	m[userID] = append(m[userID], cryptoID)
	return m[userID], nil
}

func (m memWatchlist) RemoveFromWatchlist(_ context.Context, userID, cryptoID string) ([]string, error) {
	out := m[userID][:0]
	for _, id := range m[userID] {
		if id != cryptoID {
			out = append(out, id)
		}
	}
	m[userID] = out
	return out, nil
}

func serveJSON(t *testing.T, h echo.HandlerFunc, method, body, userID string, param ...string) (int, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	if len(param) == 2 {
		c.SetParamNames(param[0])
		c.SetParamValues(param[1])
	}
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	var out map[string]json.RawMessage
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestWatchlistHandlers(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := NewHandler(feed, memWatchlist{})

	code, out := serveJSON(t, h.AddToWatchlist, http.MethodPost, `{"cryptoId":"BTC"}`, "u1")
	if code != http.StatusOK || string(out["watchlist"]) != `["bitcoin"]` {
		t.Fatalf("add = %d %s", code, out["watchlist"])
	}
	// The symbol and the id resolve to one entry.
	if _, out = serveJSON(t, h.AddToWatchlist, http.MethodPost, `{"cryptoId":"bitcoin"}`, "u1"); string(out["watchlist"]) != `["bitcoin"]` {
		t.Fatalf("dedupe = %s", out["watchlist"])
	}
	if code, _ = serveJSON(t, h.AddToWatchlist, http.MethodPost, `{"cryptoId":"notacoin"}`, "u1"); code != http.StatusNotFound {
		t.Fatalf("unknown asset = %d", code)
	}
	if code, _ = serveJSON(t, h.AddToWatchlist, http.MethodPost, `{}`, "u1"); code != http.StatusBadRequest {
		t.Fatalf("empty = %d", code)
	}
	if code, _ = serveJSON(t, h.GetWatchlist, http.MethodGet, "", ""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", code)
	}

	_, out = serveJSON(t, h.RemoveFromWatchlist, http.MethodDelete, "", "u1", "cryptoId", "bitcoin")
	if string(out["watchlist"]) != `[]` {
		t.Fatalf("remove = %s", out["watchlist"])
	}
}

func TestCryptocurrencyHandlers(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := NewHandler(feed, memWatchlist{})

	code, out := serveJSON(t, h.ListCryptocurrencies, http.MethodGet, "", "")
	if code != http.StatusOK || string(out["source"]) != `"snapshot"` {
		t.Fatalf("list = %d source=%s", code, out["source"])
	}
	if code, _ = serveJSON(t, h.GetCryptocurrency, http.MethodGet, "", "", "id", "eth"); code != http.StatusOK {
		t.Fatalf("get eth = %d", code)
	}
}
