package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry. Negative amounts are expenses.
// Category and Split are mutated in place after creation.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Date        civil.Date      `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Merchant    string          `json:"merchant"`
	Category    *string         `json:"category"`
	Notes       string          `json:"notes"`
	Split       []Split         `json:"split"`
	RecurringID *string         `json:"recurringId,omitempty"`
	ReceiptID   *string         `json:"receiptId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsExpense reports whether the transaction is an outflow.
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// CategoryOr returns the category or fallback when uncategorised.
func (t *Transaction) CategoryOr(fallback string) string {
	if t.Category == nil || *t.Category == "" {
		return fallback
	}
	return *t.Category
}

// Split is one share of a transaction. Amount is always resolved before storage;
// Percentage is kept when the client supplied it.
type Split struct {
	Amount     decimal.Decimal  `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Label      string           `json:"label,omitempty"`
	UserID     string           `json:"userId,omitempty"`
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	From     *civil.Date
	To       *civil.Date
	Category string
	Query    string
	Limit    int
	Cursor   *TransactionCursor
}

// TransactionCursor is the keyset position after which the next page starts.
type TransactionCursor struct {
	Date civil.Date
	ID   string
}

// TransactionPage is one page of a listing. NextCursor is empty on the last page.
type TransactionPage struct {
	Items      []*Transaction `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}
