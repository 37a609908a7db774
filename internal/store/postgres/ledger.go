package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

const txColumns = `id, user_id, type, status, amount::text, crypto_amount::text, commission::text,
	cryptocurrency, crypto_symbol, crypto_name, payment_details, cancellation_reason, created_at, resolved_at`

type ledger struct {
	q querier
	s *Store
	// lock takes a row lock on reads; only set inside a unit of work.
	lock bool
}

func (l ledger) Append(ctx context.Context, tx wallet.Transaction) (wallet.Transaction, error) {
	tx.ID = l.s.newID()
	tx.Date = l.s.now()
	if tx.Status == "" {
		tx.Status = wallet.StatusPending
	}

	var details []byte
	if tx.PaymentDetails != nil {
		b, err := json.Marshal(tx.PaymentDetails)
		if err != nil {
			return wallet.Transaction{}, apperrors.Validation(apperrors.WithMessage("invalid payment details"), apperrors.WithError(err))
		}
		details = b
	}

	_, err := l.q.Exec(ctx,
		`INSERT INTO transactions (id, user_id, type, status, amount, crypto_amount, commission,
			cryptocurrency, crypto_symbol, crypto_name, payment_details, cancellation_reason, created_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.UserID, string(tx.Type), string(tx.Status), tx.Amount.String(),
		optionalDecimal(tx.CryptoAmount), optionalDecimal(tx.Commission),
		tx.Cryptocurrency, tx.CryptoSymbol, tx.CryptoName, details, tx.CancellationReason, tx.Date,
	)
	if err != nil {
		return wallet.Transaction{}, storageError("could not record transaction", err)
	}
	return tx, nil
}

func (l ledger) Get(ctx context.Context, id string) (wallet.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	if l.lock {
		query += ` FOR UPDATE`
	}
	tx, err := scanTransaction(l.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Transaction{}, notFound("transaction", id)
	}
	if err != nil {
		return wallet.Transaction{}, storageError("could not fetch transaction", err)
	}
	return tx, nil
}

func (l ledger) List(ctx context.Context) ([]wallet.Transaction, error) {
	return l.list(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY seq`)
}

func (l ledger) ListByUser(ctx context.Context, userID string) ([]wallet.Transaction, error) {
	return l.list(ctx, `SELECT `+txColumns+` FROM transactions WHERE user_id = $1 ORDER BY seq`, userID)
}

func (l ledger) ListByStatus(ctx context.Context, status wallet.Status) ([]wallet.Transaction, error) {
	return l.list(ctx, `SELECT `+txColumns+` FROM transactions WHERE status = $1 ORDER BY seq`, string(status))
}

func (l ledger) Resolve(ctx context.Context, id string, status wallet.Status, reason string, at time.Time) (wallet.Transaction, error) {
	if !status.Terminal() {
		return wallet.Transaction{}, apperrors.Validation(apperrors.WithMessage("cannot resolve to status " + string(status)))
	}
	if status != wallet.StatusCancelled {
		reason = ""
	}

	tx, err := scanTransaction(l.q.QueryRow(ctx,
		`UPDATE transactions
		 SET status = $2, cancellation_reason = $3, resolved_at = $4
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+txColumns,
		id, string(status), reason, at,
	))
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return wallet.Transaction{}, storageError("could not update transaction", err)
	}

	// Nothing updated: either missing or no longer pending.
	var current string
	err = l.q.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Transaction{}, notFound("transaction", id)
	}
	if err != nil {
		return wallet.Transaction{}, storageError("could not fetch transaction", err)
	}
	return wallet.Transaction{}, apperrors.InvalidState(apperrors.WithMessage("transaction is already " + current))
}

func (l ledger) list(ctx context.Context, query string, args ...any) ([]wallet.Transaction, error) {
	rows, err := l.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("could not fetch transactions", err)
	}
	defer rows.Close()

	txs := []wallet.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			// A single unreadable row should not hide the rest of the ledger.
			logger.Errorf("postgres: skipping unreadable transaction row: %v", err)
			continue
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read transaction records", err)
	}
	return txs, nil
}

func scanTransaction(row pgx.Row) (wallet.Transaction, error) {
	var (
		t                        wallet.Transaction
		typ, status, amount      string
		cryptoAmount, commission *string
		details                  []byte
	)
	err := row.Scan(&t.ID, &t.UserID, &typ, &status, &amount, &cryptoAmount, &commission,
		&t.Cryptocurrency, &t.CryptoSymbol, &t.CryptoName, &details, &t.CancellationReason, &t.Date, &t.ResolvedAt)
	if err != nil {
		return wallet.Transaction{}, err
	}

	t.Type = wallet.TransactionType(typ)
	t.Status = wallet.NormalizeStatus(status)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return wallet.Transaction{}, err
	}
	if t.CryptoAmount, err = parseOptional(cryptoAmount); err != nil {
		return wallet.Transaction{}, err
	}
	if t.Commission, err = parseOptional(commission); err != nil {
		return wallet.Transaction{}, err
	}
	if len(details) > 0 {
		var pd wallet.PaymentDetails
		if err := json.Unmarshal(details, &pd); err != nil {
			return wallet.Transaction{}, err
		}
		t.PaymentDetails = &pd
	}
	return t, nil
}

func optionalDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseOptional(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
