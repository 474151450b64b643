package currency

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ConversionHistoryLimit caps the conversion history listing.
const ConversionHistoryLimit = 50

// TransferRequest moves Amount (source currency) from one of the user's
// accounts to another, crediting Amount x Rate in the destination currency.
type TransferRequest struct {
	UserID        string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Rate          decimal.Decimal
	Description   string
}

// TransferService executes currency transfers between a user's accounts.
type TransferService struct {
	runner   store.TransferRunner
	accounts store.AccountRepository
	log      zerolog.Logger
}

// NewTransferService creates a transfer service.
func NewTransferService(runner store.TransferRunner, accounts store.AccountRepository, log zerolog.Logger) *TransferService {
	return &TransferService{
		runner:   runner,
		accounts: accounts,
		log:      log,
	}
}

// Validate checks a request before any data is touched. Checks run in the order
// the errors are documented: identifiers, same account, amount, rate.
func (req TransferRequest) Validate() error {
	_, _, err := req.accountIDs()
	return err
}

// accountIDs validates the request and returns both account ids in canonical
// form. uuid.Parse accepts several spellings of one id, so sameness is decided
// on the parsed values.
func (req TransferRequest) accountIDs() (string, string, error) {
	if strings.TrimSpace(req.FromAccountID) == "" || strings.TrimSpace(req.ToAccountID) == "" {
		return "", "", domain.Validation("Missing required fields")
	}
	from, err := uuid.Parse(strings.TrimSpace(req.FromAccountID))
	if err != nil {
		return "", "", domain.ErrInvalidAccountID
	}
	to, err := uuid.Parse(strings.TrimSpace(req.ToAccountID))
	if err != nil {
		return "", "", domain.ErrInvalidAccountID
	}
	if from == to {
		return "", "", domain.ErrSameAccount
	}
	if req.Amount.Sign() <= 0 {
		return "", "", domain.ErrInvalidAmount
	}
	if req.Rate.Sign() <= 0 {
		return "", "", domain.ErrInvalidRate
	}
	return from.String(), to.String(), nil
}

// Transfer debits the source, credits the destination and appends a conversion
// record in one database transaction. On any failure nothing is written.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest) (*domain.Conversion, error) {
	fromID, toID, err := req.accountIDs()
	if err != nil {
		return nil, err
	}

	var conv *domain.Conversion
	err = s.runner.InTransferTx(ctx, func(tx store.TransferTx) error {
		locked, err := tx.LockAccounts(ctx, req.UserID, fromID, toID)
		if err != nil {
			return fmt.Errorf("locking accounts: %w", err)
		}
		src, srcOK := locked[fromID]
		dst, dstOK := locked[toID]
		if !srcOK || !dstOK {
			return domain.ErrAccountNotFound
		}
		if src.Balance.LessThan(req.Amount) {
			return domain.ErrInsufficientFunds
		}

		toAmount := req.Amount.Mul(req.Rate)

		if err := tx.AdjustBalance(ctx, src.ID, req.Amount.Neg()); err != nil {
			return fmt.Errorf("debiting source: %w", err)
		}
		if err := tx.AdjustBalance(ctx, dst.ID, toAmount); err != nil {
			return fmt.Errorf("crediting destination: %w", err)
		}

		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = fmt.Sprintf("Converted %s %s to %s", req.Amount.String(), src.Currency, dst.Currency)
		}

		c := &domain.Conversion{
			UserID:        req.UserID,
			FromAccountID: src.ID,
			ToAccountID:   dst.ID,
			FromCurrency:  src.Currency,
			ToCurrency:    dst.Currency,
			FromAmount:    req.Amount,
			ToAmount:      toAmount,
			ExchangeRate:  req.Rate,
			Description:   description,
		}
		if err := tx.InsertConversion(ctx, c); err != nil {
			return fmt.Errorf("recording conversion: %w", err)
		}
		conv = c
		return nil
	})
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return nil, err
		}
		s.log.Error().Err(err).
			Str("user_id", req.UserID).
			Str("from_account_id", fromID).
			Str("to_account_id", toID).
			Msg("Transfer rolled back")
		return nil, domain.ErrTransferFailed.Wrap(err)
	}

	s.log.Info().
		Str("user_id", req.UserID).
		Str("conversion_id", conv.ID).
		Str("from_currency", conv.FromCurrency).
		Str("to_currency", conv.ToCurrency).
		Str("from_amount", conv.FromAmount.String()).
		Str("to_amount", conv.ToAmount.String()).
		Msg("Transfer committed")

	return conv, nil
}

// History returns the user's most recent conversions, newest first.
func (s *TransferService) History(ctx context.Context, userID string) ([]*domain.Conversion, error) {
	convs, err := s.accounts.ListConversions(ctx, userID, ConversionHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	if convs == nil {
		convs = []*domain.Conversion{}
	}
	return convs, nil
}
