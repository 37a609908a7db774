package market

import "context"

// WatchlistStore keeps the set of asset ids each user follows.
type WatchlistStore interface {
	Watchlist(ctx context.Context, userID string) ([]string, error)
	AddToWatchlist(ctx context.Context, userID, cryptoID string) ([]string, error)
	RemoveFromWatchlist(ctx context.Context, userID, cryptoID string) ([]string, error)
}
