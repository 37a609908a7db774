// Package postgres implements the wallet stores on top of a pgx pool. The
// unit of work maps onto a database transaction with row locks on the
// transaction and account being changed.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/market"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// runner executes fn with a querier that is inside a transaction.
type runner func(ctx context.Context, fn func(q querier) error) error

var (
	_ wallet.Store          = (*Store)(nil)
	_ market.WatchlistStore = (*Store)(nil)
)

type Store struct {
	pool  *pgxpool.Pool
	now   func() time.Time
	newID func() string
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *Store) Ledger() wallet.LedgerStore {
	return ledger{q: s.pool, s: s}
}

func (s *Store) Accounts() wallet.AccountStore {
	return accounts{q: s.pool, run: s.inTx, s: s}
}

func (s *Store) Atomic(ctx context.Context, fn func(wallet.LedgerStore, wallet.AccountStore) error) error {
	return s.inTx(ctx, func(q querier) error {
		inline := func(ctx context.Context, fn func(q querier) error) error { return fn(q) }
		return fn(ledger{q: q, s: s, lock: true}, accounts{q: q, run: inline, s: s})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.Persistence(apperrors.WithMessage("database unreachable"), apperrors.WithError(err))
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageError("could not start transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageError("could not commit transaction", err)
	}
	return nil
}

// storageError passes typed errors through and wraps driver errors.
func storageError(msg string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	logger.Errorf("postgres: %s: %v", msg, err)
	return apperrors.Persistence(apperrors.WithMessage(msg), apperrors.WithError(err))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(what, id string) error {
	return apperrors.NotFound(apperrors.WithMessage(what + " not found: " + id))
}
