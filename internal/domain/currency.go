package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAccountName is the display name of the account created on first listing.
const DefaultAccountName = "Primary Account"

// Account is a per-currency balance holder owned by one user.
// A user holds at most one account per currency.
type Account struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	AccountName string          `json:"accountName"`
	IsDefault   bool            `json:"isDefault"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Conversion is the immutable record of one committed currency transfer.
type Conversion struct {
	ID            string          `json:"id"`
	UserID        string          `json:"-"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	FromCurrency  string          `json:"fromCurrency"`
	ToCurrency    string          `json:"toCurrency"`
	FromAmount    decimal.Decimal `json:"fromAmount"`
	ToAmount      decimal.Decimal `json:"toAmount"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RateTable is a snapshot of advisory exchange rates relative to Base.
type RateTable struct {
	Base        string                     `json:"base"`
	Rates       map[string]decimal.Decimal `json:"rates"`
	LastUpdated time.Time                  `json:"lastUpdated"`
}
