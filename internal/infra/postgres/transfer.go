package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// transferTx adapts a pgx.Tx to store.TransferTx.
type transferTx struct {
	tx pgx.Tx
}

// InTransferTx runs fn in one database transaction. Balance updates and the
// conversion insert made through the supplied TransferTx commit together.
func (r *Repository) InTransferTx(ctx context.Context, fn func(tx store.TransferTx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&transferTx{tx: tx})
	})
}

// LockAccounts selects the accounts FOR UPDATE in id order, so two transfers
// touching the same pair always acquire locks in the same sequence.
func (t *transferTx) LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]*domain.Account, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	out := make(map[string]*domain.Account, len(ids))
	for _, id := range sorted {
		if _, seen := out[id]; seen {
			continue
		}
		a, err := scanAccount(t.tx.QueryRow(ctx, `
			SELECT `+accountColumns+`
			FROM currency_accounts
			WHERE id = $1 AND user_id = $2
			FOR UPDATE`, id, userID))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("LockAccounts: %s: %w", id, err)
		}
		out[id] = a
	}
	return out, nil
}

// AdjustBalance adds delta to the account balance.
func (t *transferTx) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE currency_accounts
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2`, delta, accountID)
	if err != nil {
		return fmt.Errorf("AdjustBalance: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("AdjustBalance: %s: %w", accountID, store.ErrNotFound)
	}
	return nil
}

// InsertConversion appends the conversion record.
func (t *transferTx) InsertConversion(ctx context.Context, c *domain.Conversion) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO currency_conversions (
			id, user_id, from_account_id, to_account_id, from_currency, to_currency,
			from_amount, to_amount, exchange_rate, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		c.ID, c.UserID, c.FromAccountID, c.ToAccountID, c.FromCurrency, c.ToCurrency,
		c.FromAmount, c.ToAmount, c.ExchangeRate, c.Description,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("InsertConversion: %w", mapErr(err))
	}
	return nil
}
