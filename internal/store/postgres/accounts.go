package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/coinvault/internal/apperrors"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

const accountColumns = `id, email, name, role, wallet_balance::text, password_hash, created_at`

type accounts struct {
	q   querier
	run runner
	s   *Store
}

func (a accounts) Create(ctx context.Context, acct wallet.Account) (wallet.Account, error) {
	if acct.ID == "" {
		acct.ID = a.s.newID()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = a.s.now()
	}
	if !acct.Role.Valid() {
		acct.Role = wallet.RoleUser
	}
	acct.Email = strings.TrimSpace(acct.Email)

	err := a.run(ctx, func(q querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO accounts (id, email, name, role, wallet_balance, password_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
			acct.ID, acct.Email, acct.Name, string(acct.Role), acct.WalletBalance.String(), acct.PasswordHash, acct.CreatedAt,
		)
		if isUniqueViolation(err) {
			return apperrors.Validation(apperrors.WithMessage("email already registered"))
		}
		if err != nil {
			return storageError("could not create account", err)
		}
		return writeHoldings(ctx, q, acct.ID, acct.CryptoHoldings)
	})
	if err != nil {
		return wallet.Account{}, err
	}
	return acct, nil
}

func (a accounts) Get(ctx context.Context, userID string) (wallet.Account, error) {
	return a.fetch(ctx, a.q, `WHERE id = $1`, userID, userID)
}

func (a accounts) FindByEmail(ctx context.Context, email string) (wallet.Account, error) {
	email = strings.TrimSpace(email)
	return a.fetch(ctx, a.q, `WHERE lower(email) = lower($1)`, email, email)
}

func (a accounts) List(ctx context.Context) ([]wallet.Account, error) {
	rows, err := a.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, storageError("could not fetch accounts", err)
	}
	var list []wallet.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, storageError("failed to read account record", err)
		}
		list = append(list, acct)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read account records", err)
	}

	holdings, err := allHoldings(ctx, a.q)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].CryptoHoldings = append([]wallet.Holding{}, holdings[list[i].ID]...)
	}
	return list, nil
}

func (a accounts) SetRole(ctx context.Context, userID string, role wallet.Role) (wallet.Account, error) {
	if !role.Valid() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("unknown role: " + string(role)))
	}
	return a.update(ctx, userID, `UPDATE accounts SET role = $2 WHERE id = $1`, string(role))
}

func (a accounts) SetName(ctx context.Context, userID, name string) (wallet.Account, error) {
	return a.update(ctx, userID, `UPDATE accounts SET name = $2 WHERE id = $1`, name)
}

func (a accounts) Credit(ctx context.Context, userID string, amount decimal.Decimal) (wallet.Account, error) {
	if amount.IsNegative() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("credit amount must not be negative"))
	}
	return a.update(ctx, userID,
		`UPDATE accounts SET wallet_balance = wallet_balance + $2::numeric WHERE id = $1`, amount.String())
}

func (a accounts) Debit(ctx context.Context, userID string, amount decimal.Decimal) (wallet.Account, error) {
	if amount.IsNegative() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("debit amount must not be negative"))
	}
	return a.update(ctx, userID,
		`UPDATE accounts SET wallet_balance = GREATEST(wallet_balance - $2::numeric, 0) WHERE id = $1`, amount.String())
}

func (a accounts) AddHolding(ctx context.Context, userID string, asset wallet.Asset, qty decimal.Decimal) (wallet.Account, error) {
	if !asset.Resolved() || !qty.IsPositive() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("holding needs an asset and a positive quantity"))
	}
	return a.mutateHoldings(ctx, userID, func(h []wallet.Holding) []wallet.Holding {
		return wallet.ApplyAddHolding(h, asset, qty)
	})
}

func (a accounts) RemoveHolding(ctx context.Context, userID string, asset wallet.Asset, qty decimal.Decimal) (wallet.Account, error) {
	if !qty.IsPositive() {
		return wallet.Account{}, apperrors.Validation(apperrors.WithMessage("quantity must be greater than zero"))
	}
	return a.mutateHoldings(ctx, userID, func(h []wallet.Holding) []wallet.Holding {
		return wallet.ApplyRemoveHolding(h, asset, qty)
	})
}

// update runs a single-row UPDATE and returns the account as it is afterwards.
func (a accounts) update(ctx context.Context, userID, stmt string, arg any) (wallet.Account, error) {
	var out wallet.Account
	err := a.run(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, stmt, userID, arg)
		if err != nil {
			return storageError("could not update account", err)
		}
		if tag.RowsAffected() == 0 {
			return notFound("account", userID)
		}
		out, err = a.fetch(ctx, q, `WHERE id = $1`, userID, userID)
		return err
	})
	return out, err
}

// mutateHoldings locks the account row, applies fn to its holdings and
// rewrites them.
func (a accounts) mutateHoldings(ctx context.Context, userID string, fn func([]wallet.Holding) []wallet.Holding) (wallet.Account, error) {
	var out wallet.Account
	err := a.run(ctx, func(q querier) error {
		acct, err := a.fetch(ctx, q, `WHERE id = $1 FOR UPDATE`, userID, userID)
		if err != nil {
			return err
		}
		acct.CryptoHoldings = fn(acct.CryptoHoldings)
		if _, err := q.Exec(ctx, `DELETE FROM account_holdings WHERE account_id = $1`, userID); err != nil {
			return storageError("could not update holdings", err)
		}
		if err := writeHoldings(ctx, q, userID, acct.CryptoHoldings); err != nil {
			return err
		}
		out = acct
		return nil
	})
	return out, err
}

func (a accounts) fetch(ctx context.Context, q querier, where string, arg any, ref string) (wallet.Account, error) {
	acct, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Account{}, notFound("account", ref)
	}
	if err != nil {
		return wallet.Account{}, storageError("could not fetch account", err)
	}
	acct.CryptoHoldings, err = holdingsFor(ctx, q, acct.ID)
	if err != nil {
		return wallet.Account{}, err
	}
	return acct, nil
}

func scanAccount(row pgx.Row) (wallet.Account, error) {
	var (
		acct          wallet.Account
		role, balance string
	)
	if err := row.Scan(&acct.ID, &acct.Email, &acct.Name, &role, &balance, &acct.PasswordHash, &acct.CreatedAt); err != nil {
		return wallet.Account{}, err
	}
	acct.Role = wallet.Role(role)
	if !acct.Role.Valid() {
		acct.Role = wallet.RoleUser
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return wallet.Account{}, err
	}
	acct.WalletBalance = b
	return acct, nil
}

const holdingColumns = `account_id, crypto_id, name, symbol, amount::text, image`

func holdingsFor(ctx context.Context, q querier, accountID string) ([]wallet.Holding, error) {
	grouped, err := queryHoldings(ctx, q, `SELECT `+holdingColumns+` FROM account_holdings WHERE account_id = $1 ORDER BY position`, accountID)
	if err != nil {
		return nil, err
	}
	return append([]wallet.Holding{}, grouped[accountID]...), nil
}

func allHoldings(ctx context.Context, q querier) (map[string][]wallet.Holding, error) {
	return queryHoldings(ctx, q, `SELECT `+holdingColumns+` FROM account_holdings ORDER BY account_id, position`)
}

func queryHoldings(ctx context.Context, q querier, query string, args ...any) (map[string][]wallet.Holding, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("could not fetch holdings", err)
	}
	defer rows.Close()

	out := make(map[string][]wallet.Holding)
	for rows.Next() {
		var (
			accountID, amount string
			h                 wallet.Holding
		)
		if err := rows.Scan(&accountID, &h.CryptoID, &h.Name, &h.Symbol, &amount, &h.Image); err != nil {
			return nil, storageError("failed to read holding record", err)
		}
		if h.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, storageError("failed to read holding amount", err)
		}
		out[accountID] = append(out[accountID], h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("failed to read holding records", err)
	}
	return out, nil
}

func writeHoldings(ctx context.Context, q querier, accountID string, holdings []wallet.Holding) error {
	for _, h := range holdings {
		if !h.Amount.IsPositive() {
			continue
		}
		_, err := q.Exec(ctx,
			`INSERT INTO account_holdings (account_id, crypto_id, name, symbol, amount, image)
			 VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
			accountID, strings.ToLower(h.CryptoID), h.Name, h.Symbol, h.Amount.String(), h.Image,
		)
		if err != nil {
			return storageError("could not write holding", err)
		}
	}
	return nil
}
