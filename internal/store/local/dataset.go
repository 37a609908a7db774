package local

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// dataset is the full in-memory state. Every write works on a clone that is
// swapped in only when the whole unit of work succeeds.
type dataset struct {
	transactions []wallet.Transaction
	accounts     []wallet.Account
	watchlists   map[string][]string
}

func newDataset() *dataset {
	return &dataset{watchlists: make(map[string][]string)}
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		transactions: make([]wallet.Transaction, len(d.transactions)),
		accounts:     make([]wallet.Account, len(d.accounts)),
		watchlists:   make(map[string][]string, len(d.watchlists)),
	}
	copy(out.transactions, d.transactions)
	for i, a := range d.accounts {
		out.accounts[i] = copyAccount(a)
	}
	for k, v := range d.watchlists {
		out.watchlists[k] = append([]string(nil), v...)
	}
	return out
}

func copyAccount(a wallet.Account) wallet.Account {
	a.CryptoHoldings = append([]wallet.Holding{}, a.CryptoHoldings...)
	return a
}

func notFound(what, id string) error {
	return apperrors.NotFound(apperrors.WithMessage(what + " not found: " + id))
}

// ===== transactions =====

func (d *dataset) txIndex(id string) int {
	for i := range d.transactions {
		if d.transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *dataset) getTx(id string) (wallet.Transaction, error) {
	i := d.txIndex(id)
	if i < 0 {
		return wallet.Transaction{}, notFound("transaction", id)
	}
	return d.transactions[i], nil
}

func (d *dataset) filterTx(keep func(wallet.Transaction) bool) []wallet.Transaction {
	out := make([]wallet.Transaction, 0, len(d.transactions))
	for _, t := range d.transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (d *dataset) appendTx(tx wallet.Transaction) wallet.Transaction {
	d.transactions = append(d.transactions, tx)
	return tx
}

func (d *dataset) resolveTx(id string, status wallet.Status, reason string, at time.Time) (wallet.Transaction, error) {
	if !status.Terminal() {
		return wallet.Transaction{}, apperrors.Validation(apperrors.WithMessage("cannot resolve to status " + string(status)))
	}
	i := d.txIndex(id)
	if i < 0 {
		return wallet.Transaction{}, notFound("transaction", id)
	}
	tx := d.transactions[i]
	if tx.Status != wallet.StatusPending {
		return wallet.Transaction{}, apperrors.InvalidState(apperrors.WithMessage("transaction is already " + string(tx.Status)))
	}
	tx.Status = status
	if status == wallet.StatusCancelled {
		tx.CancellationReason = reason
	}
	resolved := at
	tx.ResolvedAt = &resolved
	d.transactions[i] = tx
	return tx, nil
}

// ===== accounts =====

func (d *dataset) acctIndex(id string) int {
	for i := range d.accounts {
		if d.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *dataset) getAccount(id string) (wallet.Account, error) {
	i := d.acctIndex(id)
	if i < 0 {
		return wallet.Account{}, notFound("account", id)
	}
	return copyAccount(d.accounts[i]), nil
}

func (d *dataset) findByEmail(email string) (wallet.Account, error) {
	for _, a := range d.accounts {
		if strings.EqualFold(a.Email, strings.TrimSpace(email)) {
			return copyAccount(a), nil
		}
	}
	return wallet.Account{}, notFound("account", email)
}

func (d *dataset) listAccounts() []wallet.Account {
	out := make([]wallet.Account, len(d.accounts))
	for i, a := range d.accounts {
		out[i] = copyAccount(a)
	}
	return out
}

func (d *dataset) createAccount(a wallet.Account) (wallet.Account, error) {
	if d.acctIndex(a.ID) >= 0 {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("account already exists: " + a.ID))
	}
	if _, err := d.findByEmail(a.Email); err == nil {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("email already registered"))
	}
	a = copyAccount(a)
	d.accounts = append(d.accounts, a)
	return copyAccount(a), nil
}

// updateAccount applies fn to the stored account in place.
func (d *dataset) updateAccount(id string, fn func(a *wallet.Account)) (wallet.Account, error) {
	i := d.acctIndex(id)
	if i < 0 {
		return wallet.Account{}, notFound("account", id)
	}
	fn(&d.accounts[i])
	return copyAccount(d.accounts[i]), nil
}

func (d *dataset) credit(id string, amount decimal.Decimal) (wallet.Account, error) {
	if amount.IsNegative() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("credit amount must not be negative"))
	}
	return d.updateAccount(id, func(a *wallet.Account) {
		a.WalletBalance = a.WalletBalance.Add(amount)
	})
}

func (d *dataset) debit(id string, amount decimal.Decimal) (wallet.Account, error) {
	if amount.IsNegative() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("debit amount must not be negative"))
	}
	return d.updateAccount(id, func(a *wallet.Account) {
		a.WalletBalance = wallet.ApplyDebit(a.WalletBalance, amount)
	})
}

// ===== watchlists =====

func (d *dataset) watchlist(userID string) []string {
	return append([]string{}, d.watchlists[userID]...)
}

func (d *dataset) addWatch(userID, cryptoID string) []string {
	cryptoID = strings.TrimSpace(cryptoID)
	for _, id := range d.watchlists[userID] {
		if strings.EqualFold(id, cryptoID) {
			return d.watchlist(userID)
		}
	}
	d.watchlists[userID] = append(d.watchlists[userID], cryptoID)
	return d.watchlist(userID)
}

func (d *dataset) removeWatch(userID, cryptoID string) []string {
	kept := d.watchlists[userID][:0:0]
	for _, id := range d.watchlists[userID] {
		if !strings.EqualFold(id, strings.TrimSpace(cryptoID)) {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(d.watchlists, userID)
	} else {
		d.watchlists[userID] = kept
	}
	return d.watchlist(userID)
}
