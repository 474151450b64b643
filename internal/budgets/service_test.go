package budgets

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const userID = "user_00000000000000bb"

func TestCreateValidation(t *testing.T) {
	svc := NewService(memory.New(), memory.New())

	tests := []struct {
		name string
		req  CreateRequest
		ok   bool
	}{
		{"valid", CreateRequest{Category: "dining", Period: "Monthly", Limit: decimal.NewFromInt(5000)}, true},
		{"zero limit", CreateRequest{Category: "dining", Period: "monthly"}, false},
		{"negative limit", CreateRequest{Category: "dining", Period: "monthly", Limit: decimal.NewFromInt(-1)}, false},
		{"unknown period", CreateRequest{Category: "dining", Period: "daily", Limit: decimal.NewFromInt(1)}, false},
		{"missing category", CreateRequest{Period: "weekly", Limit: decimal.NewFromInt(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := svc.Create(context.Background(), userID, tt.req)
			if !tt.ok {
				require.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "monthly", b.Period)
			require.NotEmpty(t, b.ID)
		})
	}
}

func TestListSpentToDate(t *testing.T) {
	st := memory.New()
	svc := NewService(st, st)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	dining := "dining"
	add := func(date civil.Date, amount int64, category *string) {
		require.NoError(t, st.CreateTransaction(ctx, &domain.Transaction{
			UserID: userID, Date: date, Amount: decimal.NewFromInt(amount), Currency: "INR", Merchant: "m", Category: category,
		}))
	}
	add(civil.Date{Year: 2026, Month: 10, Day: 1}, -300, &dining)
	add(civil.Date{Year: 2026, Month: 10, Day: 17}, -200, &dining)
	add(civil.Date{Year: 2026, Month: 10, Day: 5}, 1000, &dining) // refund, not spending
	add(civil.Date{Year: 2026, Month: 9, Day: 30}, -999, &dining) // last month
	add(civil.Date{Year: 2026, Month: 10, Day: 2}, -50, nil)

	_, err := svc.Create(ctx, userID, CreateRequest{Category: "dining", Period: "monthly", Limit: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, CreateRequest{Category: "travel", Period: "yearly", Limit: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	items, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byCategory := map[string]decimal.Decimal{}
	for _, b := range items {
		byCategory[b.Category] = b.SpentToDate
	}
	require.True(t, byCategory["dining"].Equal(decimal.NewFromInt(500)), "dining = %s", byCategory["dining"])
	require.True(t, byCategory["travel"].IsZero())

	empty, err := svc.List(ctx, "user_nobody")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
