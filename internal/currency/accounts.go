package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errDuplicateAccount = domain.Validation("Account with this currency already exists")

// CreateAccountRequest opens a new account for the user.
type CreateAccountRequest struct {
	UserID         string
	Currency       string
	AccountName    string
	InitialBalance decimal.Decimal
}

// AccountService manages per-currency accounts.
type AccountService struct {
	repo            store.AccountRepository
	defaultCurrency string
	log             zerolog.Logger
}

// NewAccountService creates an account service. defaultCurrency is used for the
// account opened automatically when a user has none.
func NewAccountService(repo store.AccountRepository, defaultCurrency string, log zerolog.Logger) *AccountService {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &AccountService{
		repo:            repo,
		defaultCurrency: domain.NormalizeCurrency(defaultCurrency),
		log:             log,
	}
}

// List returns the user's accounts, default first then newest first. A user with
// no accounts gets a zero-balance default account created on the spot.
func (s *AccountService) List(ctx context.Context, userID string) ([]*domain.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	if len(accounts) > 0 {
		return accounts, nil
	}

	def := &domain.Account{
		UserID:      userID,
		Currency:    s.defaultCurrency,
		Balance:     decimal.Zero,
		AccountName: domain.DefaultAccountName,
		IsDefault:   true,
	}
	if err := s.repo.CreateAccount(ctx, def); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("List: creating default account: %w", err)
		}
		// a concurrent request created it first
		return s.repo.ListAccounts(ctx, userID)
	}

	s.log.Info().Str("user_id", userID).Str("currency", def.Currency).Msg("Created default account")
	return []*domain.Account{def}, nil
}

// Create opens a new account. A user holds at most one account per currency.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*domain.Account, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	name := strings.TrimSpace(req.AccountName)
	if currency == "" || name == "" {
		return nil, domain.Validation("Currency and account name required")
	}
	if !domain.ValidCurrency(currency) {
		return nil, domain.ErrInvalidCurrency
	}

	if _, err := s.repo.GetAccountByCurrency(ctx, req.UserID, currency); err == nil {
		return nil, errDuplicateAccount
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("Create: checking existing account: %w", err)
	}

	acc := &domain.Account{
		UserID:      req.UserID,
		Currency:    currency,
		Balance:     req.InitialBalance,
		AccountName: name,
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errDuplicateAccount
		}
		return nil, fmt.Errorf("Create: %w", err)
	}
	return acc, nil
}
