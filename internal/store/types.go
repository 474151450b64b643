package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate")
)

// UserRepository provides user persistence.
type UserRepository interface {
	// CreateUser inserts a new user. A taken email yields ErrDuplicate.
	CreateUser(ctx context.Context, u *domain.User) error

	// GetUserByEmail looks a user up by lower-cased email.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetUserByID looks a user up by id.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AccountRepository provides currency account persistence.
type AccountRepository interface {
	// ListAccounts returns the user's accounts, default first then newest first.
	ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error)

	// GetAccountByCurrency returns the user's account in currency, or ErrNotFound.
	GetAccountByCurrency(ctx context.Context, userID, currency string) (*domain.Account, error)

	// CreateAccount inserts an account. A second account in the same currency yields ErrDuplicate.
	CreateAccount(ctx context.Context, a *domain.Account) error

	// ListConversions returns the user's most recent conversions, newest first.
	ListConversions(ctx context.Context, userID string, limit int) ([]*domain.Conversion, error)
}

// TransferTx is the unit of work a currency transfer runs in.
// Every call made through one TransferTx commits or rolls back together.
type TransferTx interface {
	// LockAccounts loads and row-locks the user's accounts with the given ids.
	// Ids that do not exist or belong to someone else are absent from the result.
	LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]*domain.Account, error)

	// AdjustBalance adds delta to the account balance.
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error

	// InsertConversion appends the conversion record, filling ID and CreatedAt.
	InsertConversion(ctx context.Context, c *domain.Conversion) error
}

// TransferRunner runs fn inside one database transaction.
// The transaction commits only if fn returns nil.
type TransferRunner interface {
	InTransferTx(ctx context.Context, fn func(tx TransferTx) error) error
}

// TransactionRepository provides ledger persistence.
type TransactionRepository interface {
	// ListTransactions returns a page ordered by date desc, id desc.
	ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error)

	// ListTransactionsBetween returns every transaction dated within [from, to], oldest first.
	ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Transaction, error)

	// CountTransactions returns the user's total transaction count.
	CountTransactions(ctx context.Context, userID string) (int64, error)

	// GetTransaction returns one of the user's transactions, or ErrNotFound.
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)

	// CreateTransaction inserts t, filling ID and timestamps.
	CreateTransaction(ctx context.Context, t *domain.Transaction) error

	// SetCategory updates the category in place and returns the updated row.
	SetCategory(ctx context.Context, userID, id string, category string) (*domain.Transaction, error)

	// SetSplit replaces the split list in place and returns the updated row.
	SetSplit(ctx context.Context, userID, id string, splits []domain.Split) (*domain.Transaction, error)

	// ListUncategorized returns the user's newest uncategorised transactions.
	ListUncategorized(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)

	// MerchantCategories returns merchant -> most recent category for the user.
	MerchantCategories(ctx context.Context, userID string) (map[string]string, error)

	// SpentByCategorySince sums |amount| of expenses per category dated on or after since.
	SpentByCategorySince(ctx context.Context, userID string, since time.Time) (map[string]decimal.Decimal, error)
}

// BudgetRepository provides budget persistence.
type BudgetRepository interface {
	ListBudgets(ctx context.Context, userID string) ([]*domain.Budget, error)
	CreateBudget(ctx context.Context, b *domain.Budget) error
}

// ReceiptRepository provides receipt persistence.
type ReceiptRepository interface {
	CreateReceipt(ctx context.Context, r *domain.Receipt) error

	// GetReceipt returns one of the user's receipts, or ErrNotFound.
	GetReceipt(ctx context.Context, userID, id string) (*domain.Receipt, error)

	// SetExtracted stores the OCR result on the receipt.
	SetExtracted(ctx context.Context, userID, id string, e *domain.ExtractedReceipt) (*domain.Receipt, error)
}

// RecurringRepository provides recurring rule persistence.
type RecurringRepository interface {
	ListRules(ctx context.Context, userID string) ([]*domain.RecurringRule, error)
	CreateRule(ctx context.Context, r *domain.RecurringRule) error

	// ListDueRules returns active rules with next_run <= now across all users.
	ListDueRules(ctx context.Context, now time.Time, limit int) ([]*domain.RecurringRule, error)

	// Materialize inserts t and moves the rule's next run to nextRun in one transaction.
	// It returns ErrNotFound if the rule's next run no longer equals expected.
	Materialize(ctx context.Context, rule *domain.RecurringRule, expected time.Time, t *domain.Transaction, nextRun time.Time) error
}

// GroupRepository provides shared-expense group persistence.
type GroupRepository interface {
	// ListGroups returns groups the user created or belongs to.
	ListGroups(ctx context.Context, userID string) ([]*domain.Group, error)
	CreateGroup(ctx context.Context, g *domain.Group) error

	// GetGroupForMember returns the group only if userID is a member, else ErrNotFound.
	GetGroupForMember(ctx context.Context, groupID, userID string) (*domain.Group, error)

	ListExpenses(ctx context.Context, groupID string) ([]*domain.GroupExpense, error)
	CreateExpense(ctx context.Context, e *domain.GroupExpense) error
}
