package transactions

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/categorize"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Listing limits.
const (
	DefaultLimit = 25
	MaxLimit     = 200
)

// splitTolerance is the largest accepted gap between the split sum and the total.
var splitTolerance = decimal.RequireFromString("0.01")

var errTransactionNotFound = domain.NotFound("Transaction not found")

// ListQuery is a listing request as received from the client.
type ListQuery struct {
	Limit    int
	From     string
	To       string
	Category string
	Query    string
	Cursor   string
}

// CreateRequest records a new transaction.
type CreateRequest struct {
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Merchant string          `json:"merchant"`
	Category *string         `json:"category"`
	Notes    string          `json:"notes"`
	Split    []domain.Split  `json:"split"`
}

// SplitInput is one requested share. Either Amount or Percentage must be set.
type SplitInput struct {
	Amount     *decimal.Decimal `json:"amount"`
	Percentage *decimal.Decimal `json:"percentage"`
	Label      string           `json:"label"`
	UserID     string           `json:"userId"`
}

// Suggestion pairs an uncategorised transaction with a proposed category.
type Suggestion struct {
	Transaction *domain.Transaction   `json:"transaction"`
	Suggestion  categorize.Suggestion `json:"suggestion"`
}

// Service implements the transaction ledger operations.
type Service struct {
	repo       store.TransactionRepository
	categories *categorize.Categorizer
	log        zerolog.Logger
}

// NewService creates a transaction service.
func NewService(repo store.TransactionRepository, categories *categorize.Categorizer, log zerolog.Logger) *Service {
	if categories == nil {
		categories = categorize.New()
	}
	return &Service{repo: repo, categories: categories, log: log}
}

// List returns one page, newest first. NextCursor is set iff the page is full.
func (s *Service) List(ctx context.Context, userID string, q ListQuery) (*domain.TransactionPage, error) {
	f := domain.TransactionFilter{
		Category: strings.TrimSpace(q.Category),
		Query:    strings.TrimSpace(q.Query),
		Limit:    q.Limit,
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	var err error
	if f.From, err = parseOptionalDate(q.From); err != nil {
		return nil, domain.Validation("Invalid from date")
	}
	if f.To, err = parseOptionalDate(q.To); err != nil {
		return nil, domain.Validation("Invalid to date")
	}
	if q.Cursor != "" {
		if f.Cursor, err = DecodeCursor(q.Cursor); err != nil {
			return nil, domain.Validation("Invalid cursor")
		}
	}

	items, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	if items == nil {
		items = []*domain.Transaction{}
	}

	page := &domain.TransactionPage{Items: items}
	if len(items) == f.Limit {
		last := items[len(items)-1]
		page.NextCursor = EncodeCursor(domain.TransactionCursor{Date: last.Date, ID: last.ID})
	}
	return page, nil
}

// Create validates and stores a transaction.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*domain.Transaction, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	merchant := strings.TrimSpace(req.Merchant)
	if req.Date == "" || req.Amount.IsZero() || currency == "" || merchant == "" {
		return nil, domain.ErrValidation
	}
	if !domain.ValidCurrency(currency) {
		return nil, domain.ErrInvalidCurrency
	}
	date, err := civil.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, domain.Validation("Invalid date")
	}

	splits := []domain.Split{}
	if len(req.Split) > 0 {
		if splits, err = ResolveSplits(req.Amount.Abs(), splitInputs(req.Split)); err != nil {
			return nil, err
		}
	}

	var category *string
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		c := strings.TrimSpace(*req.Category)
		category = &c
	}

	t := &domain.Transaction{
		UserID:   userID,
		Date:     date,
		Amount:   req.Amount,
		Currency: currency,
		Merchant: merchant,
		Category: category,
		Notes:    req.Notes,
		Split:    splits,
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return t, nil
}

// Categorize sets the transaction's category in place.
func (s *Service) Categorize(ctx context.Context, userID, id, category string) (*domain.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, domain.Validation("Category required")
	}

	t, err := s.repo.SetCategory(ctx, userID, id, category)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Categorize: %w", err)
	}
	return t, nil
}

// Split replaces the transaction's split list. Percentage entries are resolved
// against |amount| and the resolved amounts must sum to |amount| within 0.01.
func (s *Service) Split(ctx context.Context, userID, id string, inputs []SplitInput) (*domain.Transaction, error) {
	if len(inputs) == 0 {
		return nil, domain.Validation("Splits required")
	}

	t, err := s.repo.GetTransaction(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Split: %w", err)
	}

	splits, err := ResolveSplits(t.Amount.Abs(), inputs)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetSplit(ctx, userID, id, splits)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Split: %w", err)
	}
	return updated, nil
}

// ResolveSplits turns requested shares into stored splits against total.
func ResolveSplits(total decimal.Decimal, inputs []SplitInput) ([]domain.Split, error) {
	splits := make([]domain.Split, 0, len(inputs))
	sum := decimal.Zero
	for _, in := range inputs {
		sp := domain.Split{Label: in.Label, UserID: in.UserID, Percentage: in.Percentage}
		switch {
		case in.Amount != nil && !in.Amount.IsZero():
			sp.Amount = *in.Amount
		case in.Percentage != nil && !in.Percentage.IsZero():
			sp.Amount = total.Mul(*in.Percentage).Div(decimal.NewFromInt(100))
		default:
			return nil, domain.Validation("Each split must have amount or percentage")
		}
		sum = sum.Add(sp.Amount)
		splits = append(splits, sp)
	}

	if sum.Sub(total).Abs().GreaterThan(splitTolerance) {
		return nil, domain.Validation("Split amounts must sum to transaction amount")
	}
	return splits, nil
}

// splitInputs lets stored-form splits go through the same resolution as
// requested shares. A non-zero amount wins over a percentage.
func splitInputs(splits []domain.Split) []SplitInput {
	out := make([]SplitInput, 0, len(splits))
	for _, sp := range splits {
		in := SplitInput{Percentage: sp.Percentage, Label: sp.Label, UserID: sp.UserID}
		if !sp.Amount.IsZero() {
			amount := sp.Amount
			in.Amount = &amount
		}
		out = append(out, in)
	}
	return out
}

// Suggestions proposes categories for the user's newest uncategorised transactions.
func (s *Service) Suggestions(ctx context.Context, userID string, limit int) ([]Suggestion, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	items, err := s.repo.ListUncategorized(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("Suggestions: listing: %w", err)
	}
	known, err := s.repo.MerchantCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Suggestions: merchant history: %w", err)
	}

	out := make([]Suggestion, 0, len(items))
	for _, t := range items {
		out = append(out, Suggestion{Transaction: t, Suggestion: s.categories.Suggest(t.Merchant, known)})
	}
	return out, nil
}

// EncodeCursor renders a keyset position as an opaque token.
func EncodeCursor(c domain.TransactionCursor) string {
	return base64.RawURLEncoding.EncodeToString([]byte(c.Date.String() + "|" + c.ID))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (*domain.TransactionCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("DecodeCursor: %w", err)
	}
	date, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("DecodeCursor: malformed cursor")
	}
	d, err := civil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("DecodeCursor: %w", err)
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("DecodeCursor: id: %w", err)
	}
	return &domain.TransactionCursor{Date: d, ID: u.String()}, nil
}

func parseOptionalDate(s string) (*civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return &d, nil
	}
	// full timestamps are accepted and truncated to their UTC date
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	d := civil.DateOf(t.UTC())
	return &d, nil
}
