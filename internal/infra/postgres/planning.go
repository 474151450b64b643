package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListBudgets returns the user's budgets, oldest first. SpentToDate is left zero.
func (r *Repository) ListBudgets(ctx context.Context, userID string) ([]*domain.Budget, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT id, user_id, category, period, limit_amount, created_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Budget
	for rows.Next() {
		var b domain.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.Period, &b.Limit, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListBudgets: scan: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// CreateBudget inserts b.
func (r *Repository) CreateBudget(ctx context.Context, b *domain.Budget) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO budgets (id, user_id, category, period, limit_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		b.ID, b.UserID, b.Category, b.Period, b.Limit,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateBudget: %w", mapErr(err))
	}
	return nil
}

const receiptColumns = `id, user_id, file_url, file_name, content_type, size_bytes, extracted, created_at`

func scanReceipt(row pgx.Row) (*domain.Receipt, error) {
	var rc domain.Receipt
	err := row.Scan(&rc.ID, &rc.UserID, &rc.FileURL, &rc.FileName, &rc.ContentType,
		&rc.Size, &rc.Extracted, &rc.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rc, nil
}

// CreateReceipt inserts rc.
func (r *Repository) CreateReceipt(ctx context.Context, rc *domain.Receipt) error {
	if rc.ID == "" {
		rc.ID = uuid.New().String()
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO receipts (id, user_id, file_url, file_name, content_type, size_bytes, extracted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rc.ID, rc.UserID, rc.FileURL, rc.FileName, rc.ContentType, rc.Size, rc.Extracted,
	).Scan(&rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateReceipt: %w", mapErr(err))
	}
	return nil
}

// GetReceipt returns one of the user's receipts.
func (r *Repository) GetReceipt(ctx context.Context, userID, id string) (*domain.Receipt, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := scanReceipt(db.QueryRow(ctx, `
		SELECT `+receiptColumns+` FROM receipts WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, fmt.Errorf("GetReceipt: %w", err)
	}
	return rc, nil
}

// SetExtracted stores the OCR result on the receipt.
func (r *Repository) SetExtracted(ctx context.Context, userID, id string, e *domain.ExtractedReceipt) (*domain.Receipt, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := scanReceipt(db.QueryRow(ctx, `
		UPDATE receipts SET extracted = $1
		WHERE id = $2 AND user_id = $3
		RETURNING `+receiptColumns, e, id, userID))
	if err != nil {
		return nil, fmt.Errorf("SetExtracted: %w", err)
	}
	return rc, nil
}

const ruleColumns = `id, user_id, template, frequency, interval_count, next_run, active, created_at`

func scanRule(row pgx.Row) (*domain.RecurringRule, error) {
	var rule domain.RecurringRule
	err := row.Scan(&rule.ID, &rule.UserID, &rule.TemplateTransaction, &rule.Frequency.Type,
		&rule.Frequency.Interval, &rule.NextRun, &rule.Active, &rule.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]*domain.RecurringRule, error) {
	defer rows.Close()

	var out []*domain.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ListRules returns the user's recurring rules, soonest first.
func (r *Repository) ListRules(ctx context.Context, userID string) ([]*domain.RecurringRule, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+ruleColumns+` FROM recurring_rules WHERE user_id = $1 ORDER BY next_run`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListRules: query: %w", err)
	}
	out, err := collectRules(rows)
	if err != nil {
		return nil, fmt.Errorf("ListRules: %w", err)
	}
	return out, nil
}

// CreateRule inserts rule.
func (r *Repository) CreateRule(ctx context.Context, rule *domain.RecurringRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO recurring_rules (id, user_id, template, frequency, interval_count, next_run, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rule.ID, rule.UserID, rule.TemplateTransaction, rule.Frequency.Type,
		rule.Frequency.Interval, rule.NextRun, rule.Active,
	).Scan(&rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateRule: %w", mapErr(err))
	}
	return nil
}

// ListDueRules returns active rules due at or before now across all users.
func (r *Repository) ListDueRules(ctx context.Context, now time.Time, limit int) ([]*domain.RecurringRule, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM recurring_rules
		WHERE active AND next_run <= $1
		ORDER BY next_run
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ListDueRules: query: %w", err)
	}
	out, err := collectRules(rows)
	if err != nil {
		return nil, fmt.Errorf("ListDueRules: %w", err)
	}
	return out, nil
}

// Materialize inserts t and advances the rule in one transaction. The
// next_run guard makes concurrent runners materialise each occurrence once.
func (r *Repository) Materialize(ctx context.Context, rule *domain.RecurringRule, expected time.Time, t *domain.Transaction, nextRun time.Time) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE recurring_rules SET next_run = $1
			WHERE id = $2 AND next_run = $3 AND active`, nextRun, rule.ID, expected)
		if err != nil {
			return fmt.Errorf("Materialize: advancing rule: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("Materialize: rule %s: %w", rule.ID, store.ErrNotFound)
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return fmt.Errorf("Materialize: inserting transaction: %w", err)
		}
		return nil
	})
}

const groupColumns = `id, name, created_by, members, created_at`

func scanGroup(row pgx.Row) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.Members, &g.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// ListGroups returns groups the user created or belongs to, newest first.
func (r *Repository) ListGroups(ctx context.Context, userID string) ([]*domain.Group, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT `+groupColumns+`
		FROM expense_groups
		WHERE created_by = $1 OR members @> ARRAY[$1]::text[]
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListGroups: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("ListGroups: scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateGroup inserts g.
func (r *Repository) CreateGroup(ctx context.Context, g *domain.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO expense_groups (id, name, created_by, members)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		g.ID, g.Name, g.CreatedBy, g.Members,
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateGroup: %w", mapErr(err))
	}
	return nil
}

// GetGroupForMember returns the group only when userID is a member.
func (r *Repository) GetGroupForMember(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	g, err := scanGroup(db.QueryRow(ctx, `
		SELECT `+groupColumns+`
		FROM expense_groups
		WHERE id = $1 AND members @> ARRAY[$2]::text[]`, groupID, userID))
	if err != nil {
		return nil, fmt.Errorf("GetGroupForMember: %w", err)
	}
	return g, nil
}

// ListExpenses returns the group's expenses, newest first.
func (r *Repository) ListExpenses(ctx context.Context, groupID string) ([]*domain.GroupExpense, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT id, group_id, description, amount, paid_by, created_by, created_at
		FROM group_expenses
		WHERE group_id = $1
		ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.GroupExpense
	for rows.Next() {
		var e domain.GroupExpense
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.Amount, &e.PaidBy, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListExpenses: scan: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CreateExpense inserts e.
func (r *Repository) CreateExpense(ctx context.Context, e *domain.GroupExpense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	err = db.QueryRow(ctx, `
		INSERT INTO group_expenses (id, group_id, description, amount, paid_by, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		e.ID, e.GroupID, e.Description, e.Amount, e.PaidBy, e.CreatedBy,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("CreateExpense: %w", mapErr(err))
	}
	return nil
}
