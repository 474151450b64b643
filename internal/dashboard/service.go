// Package dashboard aggregates a user's accounts and ledger into summary figures
// and chart series.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/currency"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// overviewDays is the window of the spending overview chart.
	overviewDays = 30

	uncategorized = "Uncategorized"
)

// Dashboard is the aggregated view returned to the client.
type Dashboard struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Summary     Summary   `json:"summary"`
	Charts      Charts    `json:"charts"`
}

// Summary holds the headline figures.
type Summary struct {
	TotalBalance            decimal.Decimal `json:"totalBalance"`
	ReportingCurrency       string          `json:"reportingCurrency"`
	MonthlyIncome           decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpenses         decimal.Decimal `json:"monthlyExpenses"`
	TransactionCount        int64           `json:"transactionCount"`
	MonthlyTransactionCount int             `json:"monthlyTransactionCount"`
}

// Charts holds the chart series.
type Charts struct {
	CategoryDistribution []CategoryAmount `json:"categoryDistribution"`
	SpendingOverview     []DailyAmount    `json:"spendingOverview"`
}

// CategoryAmount is this month's expense total for one category.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// DailyAmount is one day's expense total.
type DailyAmount struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// Service builds dashboards.
type Service struct {
	accounts     store.AccountRepository
	transactions store.TransactionRepository
	rates        currency.RatesProvider
	reporting    string
	log          zerolog.Logger
	now          func() time.Time
}

// NewService creates a dashboard service that reports balances in reporting currency.
func NewService(accounts store.AccountRepository, transactions store.TransactionRepository, rates currency.RatesProvider, reporting string, log zerolog.Logger) *Service {
	if reporting == "" {
		reporting = "INR"
	}
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		rates:        rates,
		reporting:    domain.NormalizeCurrency(reporting),
		log:          log,
		now:          time.Now,
	}
}

// Get builds the user's dashboard as of now.
func (s *Service) Get(ctx context.Context, userID string) (*Dashboard, error) {
	now := s.now().UTC()

	total, err := s.totalBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	count, err := s.transactions.CountTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Get: counting transactions: %w", err)
	}

	monthStart := domain.StartOfMonth(now)
	monthEnd := monthStart.AddDate(0, 1, -1)
	overviewStart := now.AddDate(0, 0, -overviewDays)

	from := monthStart
	if overviewStart.Before(from) {
		from = overviewStart
	}
	txs, err := s.transactions.ListTransactionsBetween(ctx, userID, from, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("Get: loading transactions: %w", err)
	}

	d := &Dashboard{
		LastUpdated: now,
		Summary: Summary{
			TotalBalance:      total,
			ReportingCurrency: s.reporting,
			MonthlyIncome:     decimal.Zero,
			MonthlyExpenses:   decimal.Zero,
			TransactionCount:  count,
		},
	}

	mStart, mEnd := civil.DateOf(monthStart), civil.DateOf(monthEnd)
	oStart, oEnd := civil.DateOf(overviewStart), civil.DateOf(now)
	byCategory := make(map[string]decimal.Decimal)
	byDay := make(map[civil.Date]decimal.Decimal)

	for _, t := range txs {
		if within(t.Date, mStart, mEnd) {
			d.Summary.MonthlyTransactionCount++
			if t.Amount.IsPositive() {
				d.Summary.MonthlyIncome = d.Summary.MonthlyIncome.Add(t.Amount)
			} else {
				d.Summary.MonthlyExpenses = d.Summary.MonthlyExpenses.Add(t.Amount.Abs())
			}
			if t.IsExpense() {
				cat := t.CategoryOr(uncategorized)
				byCategory[cat] = byCategory[cat].Add(t.Amount.Abs())
			}
		}
		if t.IsExpense() && within(t.Date, oStart, oEnd) {
			byDay[t.Date] = byDay[t.Date].Add(t.Amount.Abs())
		}
	}

	d.Charts.CategoryDistribution = categorySeries(byCategory)
	d.Charts.SpendingOverview = dailySeries(byDay)
	return d, nil
}

// totalBalance sums every account converted into the reporting currency. An
// account whose currency has no known rate is counted unconverted.
func (s *Service) totalBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	accounts, err := s.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing accounts: %w", err)
	}

	total := decimal.Zero
	for _, a := range accounts {
		amount, ok, err := currency.Convert(ctx, s.rates, a.Balance, a.Currency, s.reporting)
		if err != nil {
			s.log.Warn().Err(err).Str("currency", a.Currency).Msg("Rate lookup failed, counting balance unconverted")
		} else if !ok {
			s.log.Debug().Str("currency", a.Currency).Str("reporting", s.reporting).Msg("No rate, counting balance unconverted")
		}
		total = total.Add(amount)
	}
	return total, nil
}

func within(d, lo, hi civil.Date) bool {
	return !d.Before(lo) && !d.After(hi)
}

// categorySeries orders categories by amount, largest first.
func categorySeries(m map[string]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for cat, amt := range m {
		out = append(out, CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func dailySeries(m map[civil.Date]decimal.Decimal) []DailyAmount {
	days := make([]civil.Date, 0, len(m))
	for d := range m {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]DailyAmount, 0, len(days))
	for _, d := range days {
		out = append(out, DailyAmount{Date: d.String(), Amount: m[d]})
	}
	return out
}
