package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes mapped onto store errors.
const (
	uniqueViolation  = "23505"
	invalidTextInput = "22P02"
)

// Repository implements every store repository on top of the shared Pool.
type Repository struct {
	pool *Pool
}

// NewRepository creates a repository sharing pool.
func NewRepository(pool *Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context) (*pgxpool.Pool, error) {
	return r.pool.Get(ctx)
}

// inTx runs fn in a transaction that commits only when fn returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("inTx: begin: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("inTx: commit: %w", err)
	}
	return nil
}

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case invalidTextInput:
			return store.ErrNotFound
		}
	}
	return err
}

var (
	_ store.UserRepository        = (*Repository)(nil)
	_ store.AccountRepository     = (*Repository)(nil)
	_ store.TransferRunner        = (*Repository)(nil)
	_ store.TransactionRepository = (*Repository)(nil)
	_ store.BudgetRepository      = (*Repository)(nil)
	_ store.ReceiptRepository     = (*Repository)(nil)
	_ store.RecurringRepository   = (*Repository)(nil)
	_ store.GroupRepository       = (*Repository)(nil)
)
