package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/coinvault/internal/logger"
)

// Connect opens a pool to Postgres and makes sure the wallet tables exist.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	logger.Info("Connected to Postgres successfully")

	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the tables the store needs and adds columns that
// older deployments lack.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"accounts", ensureAccountsTable},
		{"account_holdings", ensureHoldingsTable},
		{"transactions", ensureTransactionsTable},
		{"transactions.commission", ensureCommissionColumn},
		{"watchlists", ensureWatchlistsTable},
	}
	for _, s := range steps {
		if err := s.fn(ctx, pool); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	logger.Info("database schema ensured")
	return nil
}

func ensureAccountsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS accounts (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user','admin')),
            wallet_balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
            password_hash TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(lower(email));
    `)
	return err
}

func ensureHoldingsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS account_holdings (
            account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
            crypto_id TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            symbol TEXT NOT NULL DEFAULT '',
            amount NUMERIC(38,8) NOT NULL CHECK (amount > 0),
            image TEXT NOT NULL DEFAULT '',
            position SERIAL,
            PRIMARY KEY (account_id, crypto_id)
        );
    `)
	return err
}

func ensureTransactionsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            seq BIGSERIAL,
            user_id TEXT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('buy','sell','deposit','withdrawal')),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','completed','cancelled')),
            amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
            crypto_amount NUMERIC(38,8) NULL,
            cryptocurrency TEXT NOT NULL DEFAULT '',
            crypto_symbol TEXT NOT NULL DEFAULT '',
            crypto_name TEXT NOT NULL DEFAULT '',
            payment_details JSONB NULL,
            cancellation_reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            resolved_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, seq);
        CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status, seq);
    `)
	return err
}

// ensureCommissionColumn adds transactions.commission if missing
func ensureCommissionColumn(ctx context.Context, pool *pgxpool.Pool) error {
	var exists bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.columns
            WHERE table_schema = 'public' AND table_name = 'transactions' AND column_name = 'commission'
        )`).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = pool.Exec(ctx, `ALTER TABLE transactions ADD COLUMN IF NOT EXISTS commission NUMERIC(20,2) NULL`)
	if err == nil {
		logger.Info("transactions.commission column ensured")
	}
	return err
}

func ensureWatchlistsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS watchlists (
            user_id TEXT NOT NULL,
            crypto_id TEXT NOT NULL,
            added_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (user_id, crypto_id)
        );
    `)
	return err
}
