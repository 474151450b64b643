package budgets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/shopspring/decimal"
)

// CreateRequest defines a spending cap.
type CreateRequest struct {
	Category string          `json:"category"`
	Period   string          `json:"period"`
	Limit    decimal.Decimal `json:"limit"`
}

// Service manages budgets.
type Service struct {
	budgets      store.BudgetRepository
	transactions store.TransactionRepository
	now          func() time.Time
}

// NewService creates a budget service.
func NewService(budgets store.BudgetRepository, transactions store.TransactionRepository) *Service {
	return &Service{budgets: budgets, transactions: transactions, now: time.Now}
}

// List returns the user's budgets with SpentToDate filled from this month's expenses.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Budget, error) {
	items, err := s.budgets.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	if len(items) == 0 {
		return []*domain.Budget{}, nil
	}

	spent, err := s.transactions.SpentByCategorySince(ctx, userID, domain.StartOfMonth(s.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("List: spending: %w", err)
	}
	for _, b := range items {
		b.SpentToDate = spent[b.Category]
	}
	return items, nil
}

// Create stores a budget. The limit must be positive.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*domain.Budget, error) {
	category := strings.TrimSpace(req.Category)
	period := strings.ToLower(strings.TrimSpace(req.Period))
	if category == "" || !domain.ValidPeriod(period) || req.Limit.Sign() <= 0 {
		return nil, domain.ErrValidation
	}

	b := &domain.Budget{
		UserID:      userID,
		Category:    category,
		Period:      period,
		Limit:       req.Limit,
		SpentToDate: decimal.Zero,
	}
	if err := s.budgets.CreateBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return b, nil
}
