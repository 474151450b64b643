package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store"
	"github.com/shopspring/decimal"
)

// balancePlaces is the rounding applied to reported balances.
const balancePlaces = 2

var (
	errGroupNotFound = domain.NotFound("Group not found")
	errInvalidPayer  = domain.NotFound("Group not found or invalid paidBy")
)

// CreateGroupRequest starts a new group. The caller is always a member.
type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// CreateExpenseRequest records a payment shared by the group.
type CreateExpenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      string          `json:"paidBy"`
}

// Service manages shared-expense groups.
type Service struct {
	repo store.GroupRepository
}

// NewService creates a group service.
func NewService(repo store.GroupRepository) *Service {
	return &Service{repo: repo}
}

// List returns groups the user created or belongs to.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Group, error) {
	items, err := s.repo.ListGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	if items == nil {
		items = []*domain.Group{}
	}
	return items, nil
}

// Create stores a group whose members are the caller followed by the requested
// members, de-duplicated.
func (s *Service) Create(ctx context.Context, userID string, req CreateGroupRequest) (*domain.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(req.Members) == 0 {
		return nil, domain.ErrValidation
	}

	members := []string{userID}
	seen := map[string]bool{userID: true}
	for _, m := range req.Members {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		members = append(members, m)
	}

	g := &domain.Group{Name: name, CreatedBy: userID, Members: members}
	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return g, nil
}

// Expenses lists a group's expenses. Non-members see not_found.
func (s *Service) Expenses(ctx context.Context, userID, groupID string) ([]*domain.GroupExpense, error) {
	if _, err := s.member(ctx, groupID, userID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("Expenses: %w", err)
	}
	if items == nil {
		items = []*domain.GroupExpense{}
	}
	return items, nil
}

// AddExpense records an expense. Both the caller and the payer must be members.
func (s *Service) AddExpense(ctx context.Context, userID, groupID string, req CreateExpenseRequest) (*domain.GroupExpense, error) {
	description := strings.TrimSpace(req.Description)
	paidBy := strings.TrimSpace(req.PaidBy)
	if description == "" || req.Amount.Sign() <= 0 || paidBy == "" {
		return nil, domain.ErrValidation
	}

	g, err := s.repo.GetGroupForMember(ctx, groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errInvalidPayer
	}
	if err != nil {
		return nil, fmt.Errorf("AddExpense: %w", err)
	}
	if !g.HasMember(paidBy) {
		return nil, errInvalidPayer
	}

	e := &domain.GroupExpense{
		GroupID:     g.ID,
		Description: description,
		Amount:      req.Amount,
		PaidBy:      paidBy,
		CreatedBy:   userID,
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("AddExpense: %w", err)
	}
	return e, nil
}

// Balances returns each member's net position, assuming every expense is shared
// equally by all current members. Positive means the member is owed money.
func (s *Service) Balances(ctx context.Context, userID, groupID string) ([]domain.MemberBalance, error) {
	g, err := s.member(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("Balances: %w", err)
	}
	return SettleEqually(g.Members, expenses), nil
}

// SettleEqually computes net balances for members, in member order.
func SettleEqually(members []string, expenses []*domain.GroupExpense) []domain.MemberBalance {
	net := make(map[string]decimal.Decimal, len(members))
	n := decimal.NewFromInt(int64(len(members)))
	for _, e := range expenses {
		if len(members) == 0 {
			break
		}
		share := e.Amount.Div(n)
		for _, m := range members {
			net[m] = net[m].Sub(share)
		}
		net[e.PaidBy] = net[e.PaidBy].Add(e.Amount)
	}

	out := make([]domain.MemberBalance, 0, len(members))
	for _, m := range members {
		out = append(out, domain.MemberBalance{UserID: m, Net: net[m].Round(balancePlaces)})
	}
	return out
}

func (s *Service) member(ctx context.Context, groupID, userID string) (*domain.Group, error) {
	g, err := s.repo.GetGroupForMember(ctx, groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("member: %w", err)
	}
	return g, nil
}
