package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, user_id, currency, account_name, balance, is_default, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Currency, &a.AccountName, &a.Balance,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// ListAccounts returns the user's accounts, default first then newest first.
func (r *Repository) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM currency_accounts
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAccounts: rows: %w", err)
	}
	return out, nil
}

// GetAccountByCurrency returns the user's account in currency.
func (r *Repository) GetAccountByCurrency(ctx context.Context, userID, currency string) (*domain.Account, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM currency_accounts
		WHERE user_id = $1 AND currency = $2`, userID, currency))
	if err != nil {
		return nil, fmt.Errorf("GetAccountByCurrency: %w", err)
	}
	return a, nil
}

// CreateAccount inserts a. The (user_id, currency) unique index rejects a second
// account in the same currency with store.ErrDuplicate.
func (r *Repository) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO currency_accounts (id, user_id, currency, account_name, balance, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.Currency, a.AccountName, a.Balance, a.IsDefault,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreateAccount: %w", mapErr(err))
	}
	return nil
}

// ListConversions returns the user's latest conversions, newest first.
func (r *Repository) ListConversions(ctx context.Context, userID string, limit int) ([]*domain.Conversion, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT id, user_id, from_account_id, to_account_id, from_currency, to_currency,
		       from_amount, to_amount, exchange_rate, description, created_at
		FROM currency_conversions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListConversions: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Conversion
	for rows.Next() {
		var c domain.Conversion
		if err := rows.Scan(&c.ID, &c.UserID, &c.FromAccountID, &c.ToAccountID, &c.FromCurrency,
			&c.ToCurrency, &c.FromAmount, &c.ToAmount, &c.ExchangeRate, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListConversions: scan: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListConversions: rows: %w", err)
	}
	return out, nil
}
