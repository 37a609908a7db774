package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
)

// Source tells callers where a price list came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceSnapshot Source = "snapshot"
)

// Feed reads current prices from a CoinGecko-compatible markets endpoint.
// It never fails: a broken upstream degrades to the last good response and
// then to ReferenceSnapshot.
type Feed struct {
	url    string
	limit  int
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	cached    []Cryptocurrency
	fetchedAt time.Time
}

// NewFeed returns a feed. An empty endpoint disables network access entirely.
func NewFeed(endpoint string, limit int, timeout, ttl time.Duration) *Feed {
	if limit <= 0 {
		limit = 20
	}
	return &Feed{
		url:    endpoint,
		limit:  limit,
		ttl:    ttl,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// List returns the current price list and where it came from. Concurrent
// callers share one upstream request, and each caller stops waiting for it
// when its own context ends.
func (f *Feed) List(ctx context.Context) ([]Cryptocurrency, Source) {
	if f == nil || f.url == "" {
		return ReferenceSnapshot(), SourceSnapshot
	}

	f.mu.Lock()
	if f.cached != nil && f.now().Sub(f.fetchedAt) < f.ttl {
		coins := clone(f.cached)
		f.mu.Unlock()
		return coins, SourceCache
	}
	f.mu.Unlock()

	// The shared request is bounded by the client timeout, not by whichever
	// caller happened to start it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan("markets", func() (any, error) {
		coins, err := f.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.cached = coins
		f.fetchedAt = f.now()
		f.mu.Unlock()
		return coins, nil
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return clone(res.Val.([]Cryptocurrency)), SourceLive
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	return f.fallback(err)
}

func (f *Feed) fallback(err error) ([]Cryptocurrency, Source) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil {
		logger.Warnf("price feed unavailable, serving cached prices from %s: %v", f.fetchedAt.Format(time.RFC3339), err)
		return clone(f.cached), SourceCache
	}
	logger.Warnf("price feed unavailable, serving reference snapshot: %v", err)
	return ReferenceSnapshot(), SourceSnapshot
}

// Lookup resolves ref (an asset id or symbol, any case) against the current prices.
func (f *Feed) Lookup(ctx context.Context, ref string) (Cryptocurrency, error) {
	coins, _ := f.List(ctx)
	if c, ok := find(coins, ref); ok {
		return c, nil
	}
	// A live list can be shorter than the snapshot; fall back so known assets stay tradable.
	if c, ok := find(ReferenceSnapshot(), ref); ok {
		return c, nil
	}
	return Cryptocurrency{}, apperrors.NotFound(apperrors.WithMessage("cryptocurrency not found: " + ref))
}

type marketRow struct {
	ID            string              `json:"id"`
	Symbol        string              `json:"symbol"`
	Name          string              `json:"name"`
	Image         string              `json:"image"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	MarketCap     decimal.NullDecimal `json:"market_cap"`
	MarketCapRank *int                `json:"market_cap_rank"`
	TotalVolume   decimal.NullDecimal `json:"total_volume"`
	Change1h      *float64            `json:"price_change_percentage_1h_in_currency"`
	Change24h     *float64            `json:"price_change_percentage_24h_in_currency"`
	Change7d      *float64            `json:"price_change_percentage_7d_in_currency"`
}

func (f *Feed) fetch(ctx context.Context) ([]Cryptocurrency, error) {
	u, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(f.limit))
	q.Set("page", "1")
	q.Set("price_change_percentage", "1h,24h,7d")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price feed status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rows []marketRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode price feed: %w", err)
	}

	coins := make([]Cryptocurrency, 0, len(rows))
	for i, r := range rows {
		// Rows without an id or a positive price cannot be traded against.
		if r.ID == "" || !r.CurrentPrice.Valid || !r.CurrentPrice.Decimal.IsPositive() {
			continue
		}
		rank := i + 1
		if r.MarketCapRank != nil {
			rank = *r.MarketCapRank
		}
		coins = append(coins, Cryptocurrency{
			ID:             r.ID,
			Rank:           rank,
			Name:           r.Name,
			Symbol:         strings.ToUpper(r.Symbol),
			Price:          r.CurrentPrice.Decimal,
			PriceChange1h:  deref(r.Change1h),
			PriceChange24h: deref(r.Change24h),
			PriceChange7d:  deref(r.Change7d),
			Volume24h:      r.TotalVolume.Decimal,
			MarketCap:      r.MarketCap.Decimal,
			Image:          r.Image,
		})
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("price feed returned no usable rows")
	}
	return coins, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func clone(in []Cryptocurrency) []Cryptocurrency {
	out := make([]Cryptocurrency, len(in))
	copy(out, in)
	return out
}
