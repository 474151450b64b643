package groups

import (
	"context"
	"testing"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	alice = "user_a000000000000000"
	bob   = "user_b000000000000000"
	carol = "user_c000000000000000"
	mal   = "user_m000000000000000"
)

func TestCreateGroup(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()

	g, err := svc.Create(ctx, alice, CreateGroupRequest{Name: " Trip ", Members: []string{bob, alice, bob, " ", carol}})
	require.NoError(t, err)
	require.Equal(t, "Trip", g.Name)
	require.Equal(t, []string{alice, bob, carol}, g.Members)

	_, err = svc.Create(ctx, alice, CreateGroupRequest{Name: "Solo"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Create(ctx, alice, CreateGroupRequest{Members: []string{bob}})
	require.ErrorIs(t, err, domain.ErrValidation)

	for _, u := range []string{alice, bob} {
		list, err := svc.List(ctx, u)
		require.NoError(t, err)
		require.Len(t, list, 1)
	}
	list, err := svc.List(ctx, mal)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestExpensesRequireMembership(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()
	g, err := svc.Create(ctx, alice, CreateGroupRequest{Name: "Flat", Members: []string{bob}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		caller  string
		req     CreateExpenseRequest
		wantErr error
	}{
		{"member pays", bob, CreateExpenseRequest{Description: "Rent", Amount: decimal.NewFromInt(900), PaidBy: alice}, nil},
		{"outsider caller", mal, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(1), PaidBy: alice}, domain.ErrNotFound},
		{"outsider payer", alice, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(1), PaidBy: mal}, domain.ErrNotFound},
		{"zero amount", alice, CreateExpenseRequest{Description: "x", PaidBy: alice}, domain.ErrValidation},
		{"missing payer", alice, CreateExpenseRequest{Description: "x", Amount: decimal.NewFromInt(1)}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := svc.AddExpense(ctx, tt.caller, g.ID, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, bob, e.CreatedBy)
		})
	}

	items, err := svc.Expenses(ctx, alice, g.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = svc.Expenses(ctx, mal, g.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettleEqually(t *testing.T) {
	members := []string{alice, bob, carol}
	expenses := []*domain.GroupExpense{
		{Amount: decimal.NewFromInt(90), PaidBy: alice},
		{Amount: decimal.NewFromInt(30), PaidBy: bob},
	}

	got := SettleEqually(members, expenses)
	want := map[string]string{alice: "50", bob: "-10", carol: "-40"}
	require.Len(t, got, 3)

	sum := decimal.Zero
	for _, b := range got {
		require.True(t, b.Net.Equal(decimal.RequireFromString(want[b.UserID])), "%s = %s", b.UserID, b.Net)
		sum = sum.Add(b.Net)
	}
	require.True(t, sum.IsZero())
	require.Equal(t, alice, got[0].UserID)
}

func TestBalances(t *testing.T) {
	svc := NewService(memory.New())
	ctx := context.Background()
	g, err := svc.Create(ctx, alice, CreateGroupRequest{Name: "Dinner", Members: []string{bob}})
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, alice, g.ID, CreateExpenseRequest{Description: "Pizza", Amount: decimal.NewFromInt(40), PaidBy: bob})
	require.NoError(t, err)

	got, err := svc.Balances(ctx, alice, g.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, alice, got[0].UserID)
	require.True(t, got[0].Net.Equal(decimal.NewFromInt(-20)))
	require.True(t, got[1].Net.Equal(decimal.NewFromInt(20)))
}
