package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// snapshotFile holds every collection, so one rename commits one unit of work.
const snapshotFile = "coinvault.json"

// Per-collection files written by earlier versions. They are read only when
// no snapshot exists yet; the first save replaces them with a snapshot.
const (
	transactionsFile = "transactions.json"
	accountsFile     = "accounts.json"
	watchlistsFile   = "watchlists.json"
)

type files struct {
	dir    string
	dirty  bool
	rename func(oldpath, newpath string) error
}

func newFiles(dir string) (*files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Persistence(apperrors.WithMessage("create data dir"), apperrors.WithError(err))
	}
	return &files{dir: dir, rename: os.Rename}, nil
}

type snapshot struct {
	Transactions []transactionRecord `json:"transactions"`
	Accounts     []accountRecord     `json:"accounts"`
	Watchlists   map[string][]string `json:"watchlists"`
}

// rawSnapshot defers record decoding so a bad record can be skipped alone.
type rawSnapshot struct {
	Transactions []json.RawMessage `json:"transactions"`
	Accounts     []json.RawMessage `json:"accounts"`
	Watchlists   json.RawMessage   `json:"watchlists"`
}

// transactionRecord is the on-disk shape. Fields are loosely typed so one bad
// value does not take the whole collection down.
type transactionRecord struct {
	ID                 string                 `json:"id"`
	UserID             string                 `json:"userId"`
	Type               string                 `json:"type"`
	Status             string                 `json:"status"`
	Amount             decimal.Decimal        `json:"amount"`
	CryptoAmount       *decimal.Decimal       `json:"cryptoAmount,omitempty"`
	Commission         *decimal.Decimal       `json:"commission,omitempty"`
	Cryptocurrency     string                 `json:"cryptocurrency,omitempty"`
	CryptoSymbol       string                 `json:"cryptoSymbol,omitempty"`
	CryptoName         string                 `json:"cryptoName,omitempty"`
	Date               time.Time              `json:"date"`
	PaymentDetails     *wallet.PaymentDetails `json:"paymentDetails,omitempty"`
	CancellationReason string                 `json:"cancellationReason,omitempty"`
	ResolvedAt         *time.Time             `json:"resolvedAt,omitempty"`
}

type accountRecord struct {
	ID             string           `json:"id"`
	Email          string           `json:"email"`
	Name           string           `json:"name"`
	Role           string           `json:"role"`
	WalletBalance  decimal.Decimal  `json:"walletBalance"`
	CryptoHoldings []wallet.Holding `json:"cryptoHoldings"`
	PasswordHash   string           `json:"passwordHash,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

func toTransactionRecord(t wallet.Transaction) transactionRecord {
	return transactionRecord{
		ID:                 t.ID,
		UserID:             t.UserID,
		Type:               string(t.Type),
		Status:             string(t.Status),
		Amount:             t.Amount,
		CryptoAmount:       t.CryptoAmount,
		Commission:         t.Commission,
		Cryptocurrency:     t.Cryptocurrency,
		CryptoSymbol:       t.CryptoSymbol,
		CryptoName:         t.CryptoName,
		Date:               t.Date,
		PaymentDetails:     t.PaymentDetails,
		CancellationReason: t.CancellationReason,
		ResolvedAt:         t.ResolvedAt,
	}
}

func (r transactionRecord) toTransaction() wallet.Transaction {
	t := wallet.Transaction{
		ID:                 r.ID,
		UserID:             r.UserID,
		Type:               wallet.TransactionType(strings.ToLower(strings.TrimSpace(r.Type))),
		Status:             wallet.NormalizeStatus(r.Status),
		Amount:             r.Amount,
		CryptoAmount:       r.CryptoAmount,
		Commission:         r.Commission,
		Cryptocurrency:     r.Cryptocurrency,
		CryptoSymbol:       r.CryptoSymbol,
		CryptoName:         r.CryptoName,
		Date:               r.Date,
		PaymentDetails:     r.PaymentDetails,
		CancellationReason: r.CancellationReason,
		ResolvedAt:         r.ResolvedAt,
	}
	// Older data used "withdraw".
	if t.Type == "withdraw" {
		t.Type = wallet.TypeWithdrawal
	}
	if t.Status != wallet.StatusCancelled {
		t.CancellationReason = ""
	}
	if pd := t.PaymentDetails; pd != nil {
		masked := *pd
		masked.CardLast4 = wallet.MaskCard(pd.CardLast4)
		t.PaymentDetails = &masked
	}
	return t
}

func toAccountRecord(a wallet.Account) accountRecord {
	return accountRecord{
		ID:             a.ID,
		Email:          a.Email,
		Name:           a.Name,
		Role:           string(a.Role),
		WalletBalance:  a.WalletBalance,
		CryptoHoldings: a.CryptoHoldings,
		PasswordHash:   a.PasswordHash,
		CreatedAt:      a.CreatedAt,
	}
}

func (r accountRecord) toAccount() wallet.Account {
	a := wallet.Account{
		ID:            r.ID,
		Email:         r.Email,
		Name:          r.Name,
		Role:          wallet.Role(r.Role),
		WalletBalance: r.WalletBalance,
		PasswordHash:  r.PasswordHash,
		CreatedAt:     r.CreatedAt,
	}
	if !a.Role.Valid() {
		a.Role = wallet.RoleUser
	}
	if a.WalletBalance.IsNegative() {
		a.WalletBalance = decimal.Zero
	}
	a.CryptoHoldings = make([]wallet.Holding, 0, len(r.CryptoHoldings))
	for _, h := range r.CryptoHoldings {
		if h.Amount.IsPositive() {
			a.CryptoHoldings = append(a.CryptoHoldings, h)
		}
	}
	return a
}

// load reads the snapshot, or the older per-collection files when there is
// none. Any problem is logged and the affected collection (or record) starts empty.
func (f *files) load() *dataset {
	var raw rawSnapshot
	if b, ok := f.readFile(snapshotFile); ok {
		if err := json.Unmarshal(b, &raw); err != nil {
			logger.Errorf("ignoring malformed %s: %v", snapshotFile, err)
			raw = rawSnapshot{}
		}
	} else {
		raw.Transactions = f.readRecords(transactionsFile)
		raw.Accounts = f.readRecords(accountsFile)
		raw.Watchlists, _ = f.readFile(watchlistsFile)
	}

	d := newDataset()
	for _, r := range raw.Transactions {
		var rec transactionRecord
		if err := json.Unmarshal(r, &rec); err != nil || rec.ID == "" {
			logger.Errorf("skipping malformed transaction record: %v", err)
			continue
		}
		d.transactions = append(d.transactions, rec.toTransaction())
	}
	for _, r := range raw.Accounts {
		var rec accountRecord
		if err := json.Unmarshal(r, &rec); err != nil || rec.ID == "" {
			logger.Errorf("skipping malformed account record: %v", err)
			continue
		}
		d.accounts = append(d.accounts, rec.toAccount())
	}
	if len(raw.Watchlists) > 0 {
		var w map[string][]string
		if err := json.Unmarshal(raw.Watchlists, &w); err != nil {
			logger.Errorf("ignoring malformed watchlists: %v", err)
		} else if w != nil {
			d.watchlists = w
		}
	}

	logger.Infof("local store loaded from %s: %d transactions, %d accounts", f.dir, len(d.transactions), len(d.accounts))
	return d
}

func (f *files) readFile(name string) ([]byte, bool) {
	b, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		logger.Errorf("read %s: %v", name, err)
		return nil, false
	}
	return b, true
}

func (f *files) readRecords(name string) []json.RawMessage {
	b, ok := f.readFile(name)
	if !ok {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		logger.Errorf("ignoring malformed %s: %v", name, err)
		return nil
	}
	return raws
}

// save replaces the snapshot with d in a single rename. On failure the
// previous snapshot is left untouched.
func (f *files) save(d *dataset) error {
	snap := snapshot{
		Transactions: make([]transactionRecord, len(d.transactions)),
		Accounts:     make([]accountRecord, len(d.accounts)),
		Watchlists:   d.watchlists,
	}
	for i, t := range d.transactions {
		snap.Transactions[i] = toTransactionRecord(t)
	}
	for i, a := range d.accounts {
		snap.Accounts[i] = toAccountRecord(a)
	}

	if err := f.writeJSON(filepath.Join(f.dir, snapshotFile), snap); err != nil {
		f.dirty = true
		logger.Errorf("persist %s failed, keeping in-memory state: %v", snapshotFile, err)
		return apperrors.Persistence(
			apperrors.WithMessage("write "+snapshotFile),
			apperrors.WithError(err),
			apperrors.WithCommitted(),
		)
	}
	f.dirty = false
	return nil
}

// writeJSON replaces path atomically via a temp file in the same directory.
func (f *files) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return f.rename(tmp.Name(), path)
}
