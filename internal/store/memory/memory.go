// Package memory is an in-memory implementation of the store interfaces.
// It is safe for concurrent use and backs service and handler tests.
// Data is lost on restart; production uses the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds every entity in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	users        map[string]*domain.User
	accounts     map[string]*domain.Account
	conversions  []*domain.Conversion
	transactions map[string]*domain.Transaction
	budgets      map[string]*domain.Budget
	receipts     map[string]*domain.Receipt
	rules        map[string]*domain.RecurringRule
	groups       map[string]*domain.Group
	expenses     []*domain.GroupExpense

	// txMu serialises transfer transactions the way row locks do.
	txMu sync.Mutex

	// FailAdjust, when set, is consulted before every balance adjustment.
	FailAdjust func(accountID string) error

	// FailInsertConversion, when set, is returned by InsertConversion.
	FailInsertConversion error

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]*domain.User),
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		budgets:      make(map[string]*domain.Budget),
		receipts:     make(map[string]*domain.Receipt),
		rules:        make(map[string]*domain.RecurringRule),
		groups:       make(map[string]*domain.Group),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("CreateUser: %w", store.ErrDuplicate)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Accounts

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetAccountByCurrency(ctx context.Context, userID, currency string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.UserID == userID && a.Currency == currency {
			cp := *a
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

// Account returns an account by id regardless of owner.
func (s *Store) Account(id string) (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.UserID == a.UserID && existing.Currency == a.Currency {
			return fmt.Errorf("CreateAccount: %w", store.ErrDuplicate)
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt, a.UpdatedAt = s.now(), s.now()
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) ListConversions(ctx context.Context, userID string, limit int) ([]*domain.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Conversion
	for i := len(s.conversions) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if c := s.conversions[i]; c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Transfers

type transferTx struct {
	s *Store
}

// InTransferTx runs fn with exclusive access and restores the previous balances
// and conversion log if fn fails.
func (s *Store) InTransferTx(ctx context.Context, fn func(tx store.TransferTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	balances := make(map[string]decimal.Decimal, len(s.accounts))
	for id, a := range s.accounts {
		balances[id] = a.Balance
	}
	nconv := len(s.conversions)
	s.mu.Unlock()

	if err := fn(&transferTx{s: s}); err != nil {
		s.mu.Lock()
		for id, b := range balances {
			if a, ok := s.accounts[id]; ok {
				a.Balance = b
			}
		}
		s.conversions = s.conversions[:nconv]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (t *transferTx) LockAccounts(ctx context.Context, userID string, ids ...string) (map[string]*domain.Account, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make(map[string]*domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := t.s.accounts[id]; ok && a.UserID == userID {
			cp := *a
			out[id] = &cp
		}
	}
	return out, nil
}

func (t *transferTx) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	if t.s.FailAdjust != nil {
		if err := t.s.FailAdjust(accountID); err != nil {
			return err
		}
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	a, ok := t.s.accounts[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = t.s.now()
	return nil
}

func (t *transferTx) InsertConversion(ctx context.Context, c *domain.Conversion) error {
	if t.s.FailInsertConversion != nil {
		return t.s.FailInsertConversion
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	c.ID = uuid.NewString()
	c.CreatedAt = t.s.now()
	cp := *c
	t.s.conversions = append(t.s.conversions, &cp)
	return nil
}

// Transactions

func (s *Store) ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(f.Query)
	var out []*domain.Transaction
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		if f.From != nil && t.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && t.Date.After(*f.To) {
			continue
		}
		if f.Category != "" && t.CategoryOr("") != f.Category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Merchant), q) && !strings.Contains(strings.ToLower(t.Notes), q) {
			continue
		}
		if c := f.Cursor; c != nil && !before(t, c.Date, c.ID) {
			continue
		}
		out = append(out, copyTransaction(t))
	}
	sort.Slice(out, func(i, j int) bool { return before(out[j], out[i].Date, out[i].ID) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// before reports whether t sorts after (date, id) in date desc, id desc order.
func before(t *domain.Transaction, date civil.Date, id string) bool {
	if t.Date != date {
		return t.Date.Before(date)
	}
	return t.ID < id
}

func (s *Store) ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := civil.DateOf(from), civil.DateOf(to)
	var out []*domain.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && !t.Date.Before(lo) && !t.Date.After(hi) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CountTransactions(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.transactions {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	return copyTransaction(t), nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertTransaction(t)
	return nil
}

func (s *Store) insertTransaction(t *domain.Transaction) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Split == nil {
		t.Split = []domain.Split{}
	}
	t.CreatedAt, t.UpdatedAt = s.now(), s.now()
	s.transactions[t.ID] = copyTransaction(t)
}

func (s *Store) SetCategory(ctx context.Context, userID, id string, category string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	t.Category = &category
	t.UpdatedAt = s.now()
	return copyTransaction(t), nil
}

func (s *Store) SetSplit(ctx context.Context, userID, id string, splits []domain.Split) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	t.Split = append([]domain.Split(nil), splits...)
	t.UpdatedAt = s.now()
	return copyTransaction(t), nil
}

func (s *Store) ListUncategorized(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	page, err := s.ListTransactions(ctx, userID, domain.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	var out []*domain.Transaction
	for _, t := range page {
		if t.Category == nil && (limit <= 0 || len(out) < limit) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) MerchantCategories(ctx context.Context, userID string) (map[string]string, error) {
	page, err := s.ListTransactions(ctx, userID, domain.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, t := range page {
		key := strings.ToLower(t.Merchant)
		if _, seen := out[key]; !seen && t.Category != nil {
			out[key] = *t.Category
		}
	}
	return out, nil
}

func (s *Store) SpentByCategorySince(ctx context.Context, userID string, since time.Time) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := civil.DateOf(since)
	out := make(map[string]decimal.Decimal)
	for _, t := range s.transactions {
		if t.UserID != userID || !t.IsExpense() || t.Category == nil || t.Date.Before(from) {
			continue
		}
		out[*t.Category] = out[*t.Category].Add(t.Amount.Abs())
	}
	return out, nil
}

func copyTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	cp.Split = append([]domain.Split{}, t.Split...)
	return &cp
}

// Budgets

func (s *Store) ListBudgets(ctx context.Context, userID string) ([]*domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateBudget(ctx context.Context, b *domain.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	cp := *b
	s.budgets[b.ID] = &cp
	return nil
}

// Receipts

func (s *Store) CreateReceipt(ctx context.Context, r *domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = s.now()
	cp := *r
	s.receipts[r.ID] = &cp
	return nil
}

func (s *Store) GetReceipt(ctx context.Context, userID, id string) (*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.receipts[id]
	if !ok || r.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) SetExtracted(ctx context.Context, userID, id string, e *domain.ExtractedReceipt) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[id]
	if !ok || r.UserID != userID {
		return nil, store.ErrNotFound
	}
	ext := *e
	r.Extracted = &ext
	cp := *r
	return &cp, nil
}

// Recurring rules

func (s *Store) ListRules(ctx context.Context, userID string) ([]*domain.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RecurringRule
	for _, r := range s.rules {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRun.Before(out[j].NextRun) })
	return out, nil
}

func (s *Store) CreateRule(ctx context.Context, r *domain.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *Store) ListDueRules(ctx context.Context, now time.Time, limit int) ([]*domain.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RecurringRule
	for _, r := range s.rules {
		if r.Active && !r.NextRun.After(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRun.Before(out[j].NextRun) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Materialize(ctx context.Context, rule *domain.RecurringRule, expected time.Time, t *domain.Transaction, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[rule.ID]
	if !ok || !r.Active || !r.NextRun.Equal(expected) {
		return store.ErrNotFound
	}
	r.NextRun = nextRun
	s.insertTransaction(t)
	return nil
}

// Groups

func (s *Store) ListGroups(ctx context.Context, userID string) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Group
	for _, g := range s.groups {
		if g.CreatedBy == userID || g.HasMember(userID) {
			out = append(out, copyGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateGroup(ctx context.Context, g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = uuid.NewString()
	g.CreatedAt = s.now()
	s.groups[g.ID] = copyGroup(g)
	return nil
}

func (s *Store) GetGroupForMember(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok || !g.HasMember(userID) {
		return nil, store.ErrNotFound
	}
	return copyGroup(g), nil
}

func (s *Store) ListExpenses(ctx context.Context, groupID string) ([]*domain.GroupExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.GroupExpense
	for i := len(s.expenses) - 1; i >= 0; i-- {
		if e := s.expenses[i]; e.GroupID == groupID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, e *domain.GroupExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.NewString()
	e.CreatedAt = s.now()
	cp := *e
	s.expenses = append(s.expenses, &cp)
	return nil
}

func copyGroup(g *domain.Group) *domain.Group {
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	return &cp
}

var (
	_ store.UserRepository        = (*Store)(nil)
	_ store.AccountRepository     = (*Store)(nil)
	_ store.TransferRunner        = (*Store)(nil)
	_ store.TransactionRepository = (*Store)(nil)
	_ store.BudgetRepository      = (*Store)(nil)
	_ store.ReceiptRepository     = (*Store)(nil)
	_ store.RecurringRepository   = (*Store)(nil)
	_ store.GroupRepository       = (*Store)(nil)
)
