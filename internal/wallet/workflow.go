package wallet

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/market"
)

// PriceSource resolves an asset reference to its current price.
type PriceSource interface {
	Lookup(ctx context.Context, ref string) (market.Cryptocurrency, error)
}

// Workflow applies the pending → completed|cancelled state machine to ledger
// entries and mutates accounts on approval.
type Workflow struct {
	store      Store
	prices     PriceSource
	commission decimal.Decimal
	notifier   Notifier
	now        func() time.Time
}

type Option func(*Workflow)

func WithPrices(p PriceSource) Option {
	return func(w *Workflow) { w.prices = p }
}

func WithCommission(rate decimal.Decimal) Option {
	return func(w *Workflow) { w.commission = rate }
}

func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(store Store, opts ...Option) *Workflow {
	w := &Workflow{
		store:      store,
		prices:     market.NewFeed("", 0, 0, 0),
		commission: DefaultCommissionRate,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CreateRequest describes a new ledger entry. Fees must already be applied.
type CreateRequest struct {
	UserID         string
	Type           TransactionType
	Amount         decimal.Decimal
	CryptoAmount   decimal.Decimal
	Commission     decimal.Decimal
	Asset          Asset
	PaymentDetails *PaymentDetails
}

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return apperrors.Validation(apperrors.WithMessage("userId is required"))
	}
	if !r.Type.Valid() {
		return apperrors.Validation(apperrors.WithMessage("unknown transaction type: " + string(r.Type)))
	}
	if !r.Amount.IsPositive() {
		return apperrors.Validation(apperrors.WithMessage("amount must be greater than zero"))
	}
	if !fitsScale(r.Amount, fiatPrecision) {
		return apperrors.Validation(apperrors.WithMessage("amount must have at most 2 decimal places"))
	}
	if r.Type.NeedsAsset() {
		if !r.CryptoAmount.IsPositive() {
			return apperrors.Validation(apperrors.WithMessage("cryptoAmount must be greater than zero"))
		}
		if !fitsScale(r.CryptoAmount, cryptoPrecision) {
			return apperrors.Validation(apperrors.WithMessage("cryptoAmount must have at most 8 decimal places"))
		}
		if !r.Asset.Resolved() {
			return apperrors.Validation(apperrors.WithMessage("cryptocurrency is required"))
		}
	}
	return nil
}

// fitsScale reports whether d is stored exactly with places decimals.
func fitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// Create records a pending transaction. Balances are untouched until approval.
func (w *Workflow) Create(ctx context.Context, req CreateRequest) (Transaction, error) {
	if err := req.validate(); err != nil {
		return Transaction{}, err
	}

	acct, err := w.store.Accounts().Get(ctx, req.UserID)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		UserID: req.UserID,
		Type:   req.Type,
		Status: StatusPending,
		Amount: req.Amount,
	}
	if req.Type.NeedsAsset() {
		qty := req.CryptoAmount
		tx.CryptoAmount = &qty
		tx.Cryptocurrency = strings.ToLower(strings.TrimSpace(req.Asset.ID))
		tx.CryptoSymbol = strings.ToUpper(strings.TrimSpace(req.Asset.Symbol))
		tx.CryptoName = req.Asset.Name
	}
	if req.Commission.IsPositive() {
		fee := req.Commission
		tx.Commission = &fee
	}
	if pd := req.PaymentDetails; pd != nil {
		masked := *pd
		masked.CardLast4 = MaskCard(pd.CardLast4)
		tx.PaymentDetails = &masked
	}

	stored, err := w.store.Ledger().Append(ctx, tx)
	if err != nil && !apperrors.IsCommitted(err) {
		return Transaction{}, err
	}
	w.notify(ctx, Event{Kind: EventCreated, Transaction: stored, Account: acct})
	return stored, err
}

// Approve applies the account effect of a pending transaction and marks it
// completed, both in one unit of work. A committed storage error still returns
// the applied result and emits the event.
func (w *Workflow) Approve(ctx context.Context, id string) (Transaction, Account, error) {
	var (
		out  Transaction
		acct Account
	)
	err := w.store.Atomic(ctx, func(ledger LedgerStore, accounts AccountStore) error {
		tx, err := ledger.Get(ctx, id)
		if err != nil {
			return err
		}
		if tx.Status != StatusPending {
			return apperrors.InvalidState(apperrors.WithMessage("transaction is already " + string(tx.Status)))
		}
		if acct, err = applyEffect(ctx, accounts, tx); err != nil {
			return err
		}
		out, err = ledger.Resolve(ctx, tx.ID, StatusCompleted, "", w.now())
		return err
	})
	if err != nil && !apperrors.IsCommitted(err) {
		return Transaction{}, Account{}, err
	}
	w.notify(ctx, Event{Kind: EventCompleted, Transaction: out, Account: acct})
	return out, acct, err
}

func applyEffect(ctx context.Context, accounts AccountStore, tx Transaction) (Account, error) {
	switch tx.Type {
	case TypeDeposit:
		return accounts.Credit(ctx, tx.UserID, tx.Amount)
	case TypeWithdrawal:
		return accounts.Debit(ctx, tx.UserID, tx.Amount)
	case TypeBuy:
		if err := checkAssetFields(tx); err != nil {
			return Account{}, err
		}
		if _, err := accounts.Debit(ctx, tx.UserID, tx.Amount); err != nil {
			return Account{}, err
		}
		return accounts.AddHolding(ctx, tx.UserID, tx.Asset(), tx.Quantity())
	case TypeSell:
		if err := checkAssetFields(tx); err != nil {
			return Account{}, err
		}
		if _, err := accounts.Credit(ctx, tx.UserID, tx.Amount); err != nil {
			return Account{}, err
		}
		return accounts.RemoveHolding(ctx, tx.UserID, tx.Asset(), tx.Quantity())
	}
	return Account{}, apperrors.Validation(apperrors.WithMessage("unknown transaction type: " + string(tx.Type)))
}

// Stored records can predate validation, so re-check before touching holdings.
func checkAssetFields(tx Transaction) error {
	if !tx.Quantity().IsPositive() || !tx.Asset().Resolved() {
		return apperrors.Validation(apperrors.WithMessage("transaction has no crypto amount or asset"))
	}
	return nil
}

// Cancel marks a pending transaction cancelled with reason. Accounts are untouched.
func (w *Workflow) Cancel(ctx context.Context, id, reason string) (Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Transaction{}, apperrors.Validation(apperrors.WithMessage("cancellation reason is required"))
	}

	var out Transaction
	err := w.store.Atomic(ctx, func(ledger LedgerStore, _ AccountStore) error {
		tx, err := ledger.Get(ctx, id)
		if err != nil {
			return err
		}
		if tx.Status != StatusPending {
			return apperrors.InvalidState(apperrors.WithMessage("transaction is already " + string(tx.Status)))
		}
		out, err = ledger.Resolve(ctx, tx.ID, StatusCancelled, reason, w.now())
		return err
	})
	if err != nil && !apperrors.IsCommitted(err) {
		return Transaction{}, err
	}

	// The account is only needed for the notification; a missing one is not an error here.
	acct, _ := w.store.Accounts().Get(ctx, out.UserID)
	w.notify(ctx, Event{Kind: EventCancelled, Transaction: out, Account: acct})
	return out, err
}

func (w *Workflow) Get(ctx context.Context, id string) (Transaction, error) {
	return w.store.Ledger().Get(ctx, id)
}

func (w *Workflow) List(ctx context.Context) ([]Transaction, error) {
	return w.store.Ledger().List(ctx)
}

func (w *Workflow) ListByUser(ctx context.Context, userID string) ([]Transaction, error) {
	return w.store.Ledger().ListByUser(ctx, userID)
}

func (w *Workflow) ListByStatus(ctx context.Context, status Status) ([]Transaction, error) {
	if !status.Valid() {
		return nil, apperrors.Validation(apperrors.WithMessage("unknown status: " + string(status)))
	}
	return w.store.Ledger().ListByStatus(ctx, status)
}

func (w *Workflow) Account(ctx context.Context, userID string) (Account, error) {
	return w.store.Accounts().Get(ctx, userID)
}

func (w *Workflow) notify(ctx context.Context, evt Event) {
	if w.notifier != nil {
		w.notifier.Notify(ctx, evt)
	}
}
