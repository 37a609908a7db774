// Package local keeps the ledger, accounts and watchlists in memory and,
// when opened on a directory, mirrors every committed write to one JSON
// snapshot file.
// It assumes a single writing process per directory.
package local

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/market"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

var (
	_ wallet.Store          = (*Store)(nil)
	_ market.WatchlistStore = (*Store)(nil)
)

type Store struct {
	mu    sync.Mutex
	data  *dataset
	files *files
	now   func() time.Time
	newID func() string
}

// NewMemory returns a store with no persistence.
func NewMemory() *Store {
	return &Store{
		data:  newDataset(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Open loads state from dir, creating it if needed. Malformed files are
// logged and treated as empty.
func Open(dir string) (*Store, error) {
	f, err := newFiles(dir)
	if err != nil {
		return nil, err
	}
	s := NewMemory()
	s.files = f
	s.data = f.load()
	return s, nil
}

func (s *Store) Ledger() wallet.LedgerStore { return ledger{s: s} }

func (s *Store) Accounts() wallet.AccountStore { return accounts{s: s} }

func (s *Store) Atomic(ctx context.Context, fn func(wallet.LedgerStore, wallet.AccountStore) error) error {
	return s.write(ctx, func(d *dataset) error {
		return fn(txLedger{d: d, s: s}, txAccounts{d: d, s: s})
	})
}

// Ping reports whether the last write reached disk.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files != nil && s.files.dirty {
		return apperrors.Persistence(apperrors.WithMessage("unsaved changes pending"))
	}
	return nil
}

func (s *Store) read(fn func(d *dataset)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// write runs fn on a clone of the state and commits it if fn succeeds. A failed
// save keeps the committed in-memory state and returns a Persistence error
// marked committed; the next successful save writes the full state.
func (s *Store) write(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	if s.files == nil {
		return nil
	}
	return s.files.save(work)
}

// ===== market.WatchlistStore =====

func (s *Store) Watchlist(_ context.Context, userID string) ([]string, error) {
	var out []string
	s.read(func(d *dataset) { out = d.watchlist(userID) })
	return out, nil
}

func (s *Store) AddToWatchlist(ctx context.Context, userID, cryptoID string) ([]string, error) {
	if strings.TrimSpace(cryptoID) == "" {
		return nil, apperrors.Validation(apperrors.WithMessage("cryptoId is required"))
	}
	var out []string
	err := s.write(ctx, func(d *dataset) error {
		out = d.addWatch(userID, cryptoID)
		return nil
	})
	return out, err
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, cryptoID string) ([]string, error) {
	var out []string
	err := s.write(ctx, func(d *dataset) error {
		out = d.removeWatch(userID, cryptoID)
		return nil
	})
	return out, err
}

// ===== views used inside a unit of work =====

type txLedger struct {
	d *dataset
	s *Store
}

func (l txLedger) Append(_ context.Context, tx wallet.Transaction) (wallet.Transaction, error) {
	tx.ID = l.s.newID()
	tx.Date = l.s.now()
	if tx.Status == "" {
		tx.Status = wallet.StatusPending
	}
	return l.d.appendTx(tx), nil
}

func (l txLedger) Get(_ context.Context, id string) (wallet.Transaction, error) {
	return l.d.getTx(id)
}

func (l txLedger) List(context.Context) ([]wallet.Transaction, error) {
	return l.d.filterTx(func(wallet.Transaction) bool { return true }), nil
}

func (l txLedger) ListByUser(_ context.Context, userID string) ([]wallet.Transaction, error) {
	return l.d.filterTx(func(t wallet.Transaction) bool { return t.UserID == userID }), nil
}

func (l txLedger) ListByStatus(_ context.Context, status wallet.Status) ([]wallet.Transaction, error) {
	return l.d.filterTx(func(t wallet.Transaction) bool { return t.Status == status }), nil
}

func (l txLedger) Resolve(_ context.Context, id string, status wallet.Status, reason string, at time.Time) (wallet.Transaction, error) {
	return l.d.resolveTx(id, status, reason, at)
}

type txAccounts struct {
	d *dataset
	s *Store
}

func (a txAccounts) Create(_ context.Context, acct wallet.Account) (wallet.Account, error) {
	if acct.ID == "" {
		acct.ID = a.s.newID()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = a.s.now()
	}
	if !acct.Role.Valid() {
		acct.Role = wallet.RoleUser
	}
	return a.d.createAccount(acct)
}

func (a txAccounts) Get(_ context.Context, userID string) (wallet.Account, error) {
	return a.d.getAccount(userID)
}

func (a txAccounts) FindByEmail(_ context.Context, email string) (wallet.Account, error) {
	return a.d.findByEmail(email)
}

func (a txAccounts) List(context.Context) ([]wallet.Account, error) {
	return a.d.listAccounts(), nil
}

func (a txAccounts) SetRole(_ context.Context, userID string, role wallet.Role) (wallet.Account, error) {
	if !role.Valid() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("unknown role: " + string(role)))
	}
	return a.d.updateAccount(userID, func(acct *wallet.Account) { acct.Role = role })
}

func (a txAccounts) SetName(_ context.Context, userID, name string) (wallet.Account, error) {
	return a.d.updateAccount(userID, func(acct *wallet.Account) { acct.Name = name })
}

func (a txAccounts) Credit(_ context.Context, userID string, amount decimal.Decimal) (wallet.Account, error) {
	return a.d.credit(userID, amount)
}

func (a txAccounts) Debit(_ context.Context, userID string, amount decimal.Decimal) (wallet.Account, error) {
	return a.d.debit(userID, amount)
}

func (a txAccounts) AddHolding(_ context.Context, userID string, asset wallet.Asset, qty decimal.Decimal) (wallet.Account, error) {
	if !asset.Resolved() || !qty.IsPositive() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("holding needs an asset and a positive quantity"))
	}
	return a.d.updateAccount(userID, func(acct *wallet.Account) {
		acct.CryptoHoldings = wallet.ApplyAddHolding(acct.CryptoHoldings, asset, qty)
	})
}

func (a txAccounts) RemoveHolding(_ context.Context, userID string, asset wallet.Asset, qty decimal.Decimal) (wallet.Account, error) {
	if !qty.IsPositive() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("quantity must be greater than zero"))
	}
	return a.d.updateAccount(userID, func(acct *wallet.Account) {
		acct.CryptoHoldings = wallet.ApplyRemoveHolding(acct.CryptoHoldings, asset, qty)
	})
}

// ===== standalone views: reads under the lock, writes as single-step units =====

type ledger struct{ s *Store }

func (l ledger) Append(ctx context.Context, tx wallet.Transaction) (out wallet.Transaction, err error) {
	err = l.s.write(ctx, func(d *dataset) error {
		out, err = txLedger{d: d, s: l.s}.Append(ctx, tx)
		return err
	})
	return out, err
}

func (l ledger) Get(_ context.Context, id string) (out wallet.Transaction, err error) {
	l.s.read(func(d *dataset) { out, err = d.getTx(id) })
	return out, err
}

func (l ledger) List(ctx context.Context) (out []wallet.Transaction, err error) {
	l.s.read(func(d *dataset) { out, err = txLedger{d: d}.List(ctx) })
	return out, err
}

func (l ledger) ListByUser(ctx context.Context, userID string) (out []wallet.Transaction, err error) {
	l.s.read(func(d *dataset) { out, err = txLedger{d: d}.ListByUser(ctx, userID) })
	return out, err
}

func (l ledger) ListByStatus(ctx context.Context, status wallet.Status) (out []wallet.Transaction, err error) {
	l.s.read(func(d *dataset) { out, err = txLedger{d: d}.ListByStatus(ctx, status) })
	return out, err
}

func (l ledger) Resolve(ctx context.Context, id string, status wallet.Status, reason string, at time.Time) (out wallet.Transaction, err error) {
	err = l.s.write(ctx, func(d *dataset) error {
		out, err = d.resolveTx(id, status, reason, at)
		return err
	})
	return out, err
}

type accounts struct{ s *Store }

// do runs a single account mutation as its own unit of work.
func (a accounts) do(ctx context.Context, fn func(txAccounts) (wallet.Account, error)) (out wallet.Account, err error) {
	err = a.s.write(ctx, func(d *dataset) error {
		out, err = fn(txAccounts{d: d, s: a.s})
		return err
	})
	return out, err
}

func (a accounts) Create(ctx context.Context, acct wallet.Account) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.Create(ctx, acct) })
}

func (a accounts) Get(_ context.Context, userID string) (out wallet.Account, err error) {
	a.s.read(func(d *dataset) { out, err = d.getAccount(userID) })
	return out, err
}

func (a accounts) FindByEmail(_ context.Context, email string) (out wallet.Account, err error) {
	a.s.read(func(d *dataset) { out, err = d.findByEmail(email) })
	return out, err
}

func (a accounts) List(context.Context) (out []wallet.Account, err error) {
	a.s.read(func(d *dataset) { out = d.listAccounts() })
	return out, nil
}

func (a accounts) SetRole(ctx context.Context, userID string, role wallet.Role) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.SetRole(ctx, userID, role) })
}

func (a accounts) SetName(ctx context.Context, userID, name string) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.SetName(ctx, userID, name) })
}

func (a accounts) Credit(ctx context.Context, userID string, amount decimal.Decimal) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.Credit(ctx, userID, amount) })
}

func (a accounts) Debit(ctx context.Context, userID string, amount decimal.Decimal) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.Debit(ctx, userID, amount) })
}

func (a accounts) AddHolding(ctx context.Context, userID string, asset wallet.Asset, qty decimal.Decimal) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.AddHolding(ctx, userID, asset, qty) })
}

func (a accounts) RemoveHolding(ctx context.Context, userID string, asset wallet.Asset, qty decimal.Decimal) (wallet.Account, error) {
	return a.do(ctx, func(t txAccounts) (wallet.Account, error) { return t.RemoveHolding(ctx, userID, asset, qty) })
}
