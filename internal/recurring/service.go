package recurring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/rs/zerolog"
)

const (
	// dueBatchSize is how many due rules one run loads.
	dueBatchSize = 100

	// MaxCatchUp bounds how many missed occurrences one rule materialises per run.
	MaxCatchUp = 12
)

// CreateRequest defines a recurring rule.
type CreateRequest struct {
	TemplateTransaction *domain.TransactionTemplate `json:"templateTransaction"`
	Frequency           *domain.Frequency           `json:"frequency"`
}

// RunResult summarises one materialisation pass.
type RunResult struct {
	Rules        int `json:"rules"`
	Transactions int `json:"transactions"`
	Skipped      int `json:"skipped"`
}

// Service manages recurring rules and materialises due occurrences.
type Service struct {
	repo store.RecurringRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewService creates a recurring service.
func NewService(repo store.RecurringRepository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// List returns the user's rules ordered by next run.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.RecurringRule, error) {
	items, err := s.repo.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	if items == nil {
		items = []*domain.RecurringRule{}
	}
	return items, nil
}

// Create stores an active rule whose first run is one period from now.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*domain.RecurringRule, error) {
	if req.TemplateTransaction == nil || req.Frequency == nil {
		return nil, domain.ErrValidation
	}

	tpl := *req.TemplateTransaction
	tpl.Currency = domain.NormalizeCurrency(tpl.Currency)
	tpl.Merchant = strings.TrimSpace(tpl.Merchant)
	if tpl.Amount.IsZero() || tpl.Currency == "" || tpl.Merchant == "" {
		return nil, domain.ErrValidation
	}
	if !domain.ValidCurrency(tpl.Currency) {
		return nil, domain.ErrInvalidCurrency
	}

	freq, err := req.Frequency.Normalize()
	if err != nil {
		return nil, domain.Validation("Invalid frequency")
	}

	r := &domain.RecurringRule{
		UserID:              userID,
		TemplateTransaction: tpl,
		Frequency:           freq,
		NextRun:             freq.Next(s.now().UTC()),
		Active:              true,
	}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return r, nil
}

// RunDue materialises every occurrence that is due, across all users. Each
// occurrence inserts one transaction and advances the rule in one database
// transaction; a rule already advanced by a concurrent run is skipped.
func (s *Service) RunDue(ctx context.Context) (RunResult, error) {
	now := s.now().UTC()
	var res RunResult

	rules, err := s.repo.ListDueRules(ctx, now, dueBatchSize)
	if err != nil {
		return res, fmt.Errorf("RunDue: listing due rules: %w", err)
	}

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Rules++

		for i := 0; i < MaxCatchUp && !rule.NextRun.After(now); i++ {
			expected := rule.NextRun
			next := rule.Frequency.Next(expected)
			t := occurrence(rule, expected)

			err := s.repo.Materialize(ctx, rule, expected, t, next)
			if errors.Is(err, store.ErrNotFound) {
				res.Skipped++
				break
			}
			if err != nil {
				return res, fmt.Errorf("RunDue: rule %s: %w", rule.ID, err)
			}
			res.Transactions++
			rule.NextRun = next
		}
	}

	if res.Transactions > 0 {
		s.log.Info().
			Int("rules", res.Rules).
			Int("transactions", res.Transactions).
			Int("skipped", res.Skipped).
			Msg("Materialised recurring transactions")
	}
	return res, nil
}

func occurrence(rule *domain.RecurringRule, at time.Time) *domain.Transaction {
	tpl := rule.TemplateTransaction
	ruleID := rule.ID
	return &domain.Transaction{
		UserID:      rule.UserID,
		Date:        civil.DateOf(at.UTC()),
		Amount:      tpl.Amount,
		Currency:    tpl.Currency,
		Merchant:    tpl.Merchant,
		Category:    tpl.Category,
		Notes:       tpl.Notes,
		Split:       []domain.Split{},
		RecurringID: &ruleID,
	}
}
