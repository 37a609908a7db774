package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerStore is the append-only record of transactions.
type LedgerStore interface {
	// Append assigns an id and creation time, stores tx and returns the stored record.
	Append(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	// List returns every transaction in insertion order.
	List(ctx context.Context) ([]Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]Transaction, error)
	ListByStatus(ctx context.Context, status Status) ([]Transaction, error)
	// Resolve moves a pending transaction to a terminal status. It fails with
	// InvalidState when the record is no longer pending.
	Resolve(ctx context.Context, id string, status Status, reason string, at time.Time) (Transaction, error)
}

// AccountStore holds user records with their balance and holdings.
type AccountStore interface {
	Create(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, userID string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	SetRole(ctx context.Context, userID string, role Role) (Account, error)
	SetName(ctx context.Context, userID, name string) (Account, error)

	Credit(ctx context.Context, userID string, amount decimal.Decimal) (Account, error)
	// Debit never takes the balance below zero.
	Debit(ctx context.Context, userID string, amount decimal.Decimal) (Account, error)
	AddHolding(ctx context.Context, userID string, asset Asset, qty decimal.Decimal) (Account, error)
	// RemoveHolding is a no-op when the account holds no matching asset.
	RemoveHolding(ctx context.Context, userID string, asset Asset, qty decimal.Decimal) (Account, error)
}

// Store groups both collections behind one unit of work.
type Store interface {
	Ledger() LedgerStore
	Accounts() AccountStore
	// Atomic runs fn against views of both collections. Writes made through
	// them become visible only if fn returns nil.
	Atomic(ctx context.Context, fn func(ledger LedgerStore, accounts AccountStore) error) error
}
