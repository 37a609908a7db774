package postgres

import (
	"context"
	"strings"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
)

func (s *Store) Watchlist(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT crypto_id FROM watchlists WHERE user_id = $1 ORDER BY added_at, crypto_id`, userID)
	if err != nil {
		return nil, storageError("could not fetch watchlist", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageError("failed to read watchlist", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read watchlist", err)
	}
	return ids, nil
}

func (s *Store) AddToWatchlist(ctx context.Context, userID, cryptoID string) ([]string, error) {
	cryptoID = strings.TrimSpace(cryptoID)
	if cryptoID == "" {
		return nil, apperrors.Validation(apperrors.WithMessage("cryptoId is required"))
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watchlists (user_id, crypto_id, added_at)
		 SELECT $1, $2, $3
		 WHERE NOT EXISTS (SELECT 1 FROM watchlists WHERE user_id = $1 AND lower(crypto_id) = lower($2))`,
		userID, cryptoID, s.now())
	if err != nil && !isUniqueViolation(err) {
		return nil, storageError("could not update watchlist", err)
	}
	return s.Watchlist(ctx, userID)
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, cryptoID string) ([]string, error) {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM watchlists WHERE user_id = $1 AND lower(crypto_id) = lower($2)`,
		userID, strings.TrimSpace(cryptoID))
	if err != nil {
		return nil, storageError("could not update watchlist", err)
	}
	return s.Watchlist(ctx, userID)
}
