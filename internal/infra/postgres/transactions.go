package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, date, amount, currency, merchant, category, notes,
	split, recurring_id, receipt_id, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t    domain.Transaction
		date time.Time
	)
	err := row.Scan(&t.ID, &t.UserID, &date, &t.Amount, &t.Currency, &t.Merchant, &t.Category,
		&t.Notes, &t.Split, &t.RecurringID, &t.ReceiptID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Date = civil.DateOf(date)
	if t.Split == nil {
		t.Split = []domain.Split{}
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// likePattern escapes LIKE wildcards in q and wraps it for a substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// ListTransactions returns one page ordered by date desc, id desc.
func (r *Repository) ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"user_id = $1"}
	args := []any{userID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.From != nil {
		where = append(where, "date >= "+arg(f.From.In(time.UTC)))
	}
	if f.To != nil {
		where = append(where, "date <= "+arg(f.To.In(time.UTC)))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Query != "" {
		p := arg(likePattern(f.Query))
		where = append(where, fmt.Sprintf("(merchant ILIKE %s OR notes ILIKE %s)", p, p))
	}
	if f.Cursor != nil {
		where = append(where, fmt.Sprintf("(date, id) < (%s, %s)",
			arg(f.Cursor.Date.In(time.UTC)), arg(f.Cursor.ID)))
	}

	sql := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date DESC, id DESC
		LIMIT ` + arg(f.Limit)

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	out, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return out, nil
}

// ListTransactionsBetween returns every transaction dated within [from, to], oldest first.
func (r *Repository) ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND date >= $2::date AND date <= $3::date
		ORDER BY date, created_at`,
		userID, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsBetween: query: %w", err)
	}
	out, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsBetween: %w", err)
	}
	return out, nil
}

// CountTransactions returns the user's total transaction count.
func (r *Repository) CountTransactions(ctx context.Context, userID string) (int64, error) {
	db, err := r.db(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountTransactions: %w", err)
	}
	return n, nil
}

// GetTransaction returns one of the user's transactions.
func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	t, err := scanTransaction(db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// CreateTransaction inserts t.
func (r *Repository) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	if err := insertTransaction(ctx, db, t); err != nil {
		return fmt.Errorf("CreateTransaction: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTransaction(ctx context.Context, q queryRower, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Split == nil {
		t.Split = []domain.Split{}
	}
	err := q.QueryRow(ctx, `
		INSERT INTO transactions (
			id, user_id, date, amount, currency, merchant, category, notes, split, recurring_id, receipt_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Date.In(time.UTC), t.Amount, t.Currency, t.Merchant, t.Category,
		t.Notes, t.Split, t.RecurringID, t.ReceiptID,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

// SetCategory updates the category in place.
func (r *Repository) SetCategory(ctx context.Context, userID, id string, category string) (*domain.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	t, err := scanTransaction(db.QueryRow(ctx, `
		UPDATE transactions SET category = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
		RETURNING `+transactionColumns, category, id, userID))
	if err != nil {
		return nil, fmt.Errorf("SetCategory: %w", err)
	}
	return t, nil
}

// SetSplit replaces the split list in place.
func (r *Repository) SetSplit(ctx context.Context, userID, id string, splits []domain.Split) (*domain.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	t, err := scanTransaction(db.QueryRow(ctx, `
		UPDATE transactions SET split = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
		RETURNING `+transactionColumns, splits, id, userID))
	if err != nil {
		return nil, fmt.Errorf("SetSplit: %w", err)
	}
	return t, nil
}

// ListUncategorized returns the user's newest uncategorised transactions.
func (r *Repository) ListUncategorized(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND (category IS NULL OR category = '')
		ORDER BY date DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUncategorized: query: %w", err)
	}
	out, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListUncategorized: %w", err)
	}
	return out, nil
}

// MerchantCategories returns merchant -> most recently used category.
func (r *Repository) MerchantCategories(ctx context.Context, userID string) (map[string]string, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT DISTINCT ON (lower(merchant)) merchant, category
		FROM transactions
		WHERE user_id = $1 AND category IS NOT NULL AND category <> ''
		ORDER BY lower(merchant), date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("MerchantCategories: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var merchant, category string
		if err := rows.Scan(&merchant, &category); err != nil {
			return nil, fmt.Errorf("MerchantCategories: scan: %w", err)
		}
		out[merchant] = category
	}
	return out, rows.Err()
}

// SpentByCategorySince sums |amount| of the user's expenses per category since the given day.
func (r *Repository) SpentByCategorySince(ctx context.Context, userID string, since time.Time) (map[string]decimal.Decimal, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT category, sum(abs(amount))
		FROM transactions
		WHERE user_id = $1 AND amount < 0 AND category IS NOT NULL AND date >= $2::date
		GROUP BY category`, userID, since.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("SpentByCategorySince: query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			category string
			total    decimal.Decimal
		)
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("SpentByCategorySince: scan: %w", err)
		}
		out[category] = total
	}
	return out, rows.Err()
}
