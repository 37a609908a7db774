package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
)

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"btc.png","current_price":70000.5,"market_cap":1,"market_cap_rank":1,"total_volume":2,
   "price_change_percentage_1h_in_currency":0.5,"price_change_percentage_24h_in_currency":-1.25,"price_change_percentage_7d_in_currency":null},
  {"id":"ghost","symbol":"gst","name":"Ghost","current_price":null},
  {"id":"pepe","symbol":"pepe","name":"Pepe","current_price":0.0000012,"market_cap_rank":null}
]`

func newTestFeed(t *testing.T, handler http.HandlerFunc) (*Feed, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewFeed(srv.URL, 10, time.Second, time.Minute), &hits
}

func TestFeedParsesLiveRows(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("vs_currency") != "usd" {
			t.Errorf("expected vs_currency=usd, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(marketsBody))
	})

	coins, source := feed.List(context.Background())
	if source != SourceLive {
		t.Fatalf("expected live source, got %s", source)
	}
	if len(coins) != 2 {
		t.Fatalf("expected rows without a price to be skipped, got %d coins", len(coins))
	}
	btc := coins[0]
	if btc.Symbol != "BTC" || btc.Price.String() != "70000.5" || btc.PriceChange24h != -1.25 || btc.PriceChange7d != 0 {
		t.Fatalf("unexpected bitcoin row: %+v", btc)
	}
	if coins[1].Rank != 3 {
		t.Fatalf("expected positional rank fallback 3, got %d", coins[1].Rank)
	}
}

func TestFeedCachesWithinTTL(t *testing.T) {
	feed, hits := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketsBody))
	})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return now }

	feed.List(context.Background())
	if _, source := feed.List(context.Background()); source != SourceCache {
		t.Fatalf("expected cached source, got %s", source)
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected a single upstream call, got %d", *hits)
	}

	now = now.Add(2 * time.Minute)
	if _, source := feed.List(context.Background()); source != SourceLive {
		t.Fatalf("expected refresh after ttl, got %s", source)
	}
}

func TestFeedFallsBackToSnapshot(t *testing.T) {
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	coins, source := feed.List(context.Background())
	if source != SourceSnapshot {
		t.Fatalf("expected snapshot source, got %s", source)
	}
	if len(coins) != len(ReferenceSnapshot()) {
		t.Fatalf("expected full snapshot, got %d coins", len(coins))
	}
}

func TestFeedServesStaleCacheOnError(t *testing.T) {
	var fail atomic.Bool
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(marketsBody))
	})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return now }

	feed.List(context.Background())
	fail.Store(true)
	now = now.Add(time.Hour)

	coins, source := feed.List(context.Background())
	if source != SourceCache {
		t.Fatalf("expected stale cache, got %s", source)
	}
	if coins[0].Price.String() != "70000.5" {
		t.Fatalf("expected cached price, got %s", coins[0].Price)
	}
}

func TestLookup(t *testing.T) {
	feed := NewFeed("", 0, time.Second, time.Minute)

	cases := []struct {
		ref  string
		want string
	}{
		{"bitcoin", "bitcoin"},
		{"BTC", "bitcoin"},
		{"eth", "ethereum"},
		{" Solana ", "solana"},
	}
	for _, tc := range cases {
		c, err := feed.Lookup(context.Background(), tc.ref)
		if err != nil {
			t.Fatalf("lookup %q: %v", tc.ref, err)
		}
		if c.ID != tc.want {
			t.Fatalf("lookup %q: expected %s, got %s", tc.ref, tc.want, c.ID)
		}
	}

	_, err := feed.Lookup(context.Background(), "nope")
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestFeedSharesOneUpstreamRequest(t *testing.T) {
	release := make(chan struct{})
	feed, hits := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(marketsBody))
	})

	var wg sync.WaitGroup
	sources := make([]Source, 5)
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, sources[i] = feed.List(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(hits); got != 1 {
		t.Fatalf("expected one upstream request, got %d", got)
	}
	for i, src := range sources {
		if src != SourceLive {
			t.Fatalf("caller %d got %s", i, src)
		}
	}
}

func TestFeedCallerDeadlineDoesNotWaitForSlowUpstream(t *testing.T) {
	release := make(chan struct{})
	feed, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(marketsBody))
	})
	defer close(release)

	go feed.List(context.Background())
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	coins, source := feed.List(ctx)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("waited %s for a slow upstream", elapsed)
	}
	if source != SourceSnapshot || len(coins) == 0 {
		t.Fatalf("expected snapshot fallback, got %s with %d coins", source, len(coins))
	}
}
