package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/store/memory"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockNotionService is a mock implementation of NotionService for testing.
type mockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error
}

func (m *mockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.CreatePageFunc(ctx, databaseID, properties)
}

func (m *mockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return m.UpdatePageFunc(ctx, pageID, properties)
}

func (m *mockNotionService) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return m.QueryDatabaseFunc(ctx, databaseID, filter)
}

func (m *mockNotionService) DeletePage(ctx context.Context, pageID string) error {
	return m.DeletePageFunc(ctx, pageID)
}

func existingPage(pageID, txID string, day civil.Date) notionapi.Page {
	d := notionapi.Date(day.In(time.UTC))
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			PropTransactionID: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: txID}},
			},
			PropDate: &notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &d},
			},
		},
	}
}

type calls struct {
	created []string
	updated []string
	deleted []string
}

func newMock(pages [][]notionapi.Page, c *calls) *mockNotionService {
	queries := 0
	return &mockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			if len(pages) == 0 {
				return &notionapi.DatabaseQueryResponse{}, nil
			}
			resp := &notionapi.DatabaseQueryResponse{Results: pages[queries]}
			queries++
			if queries < len(pages) {
				resp.HasMore = true
				resp.NextCursor = notionapi.Cursor("next")
			}
			return resp, nil
		},
		CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
			id := props[PropTransactionID].(notionapi.RichTextProperty).RichText[0].Text.Content
			c.created = append(c.created, id)
			return &notionapi.Page{ID: notionapi.ObjectID("page-" + id)}, nil
		},
		UpdatePageFunc: func(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
			c.updated = append(c.updated, pageID)
			return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
		},
		DeletePageFunc: func(ctx context.Context, pageID string) error {
			c.deleted = append(c.deleted, pageID)
			return nil
		},
	}
}

func seed(t *testing.T, st *memory.Store, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, st.CreateTransaction(context.Background(), &domain.Transaction{
			ID:       id,
			UserID:   "user_a",
			Date:     civil.Date{Year: 2026, Month: 10, Day: 1 + i},
			Amount:   decimal.NewFromInt(-10),
			Currency: "INR",
			Merchant: "Cafe " + id,
		}))
	}
}

var october = Options{From: civil.Date{Year: 2026, Month: 10, Day: 1}, To: civil.Date{Year: 2026, Month: 10, Day: 31}}

func TestSyncTransactionsUpserts(t *testing.T) {
	st := memory.New()
	seed(t, st, "tx1", "tx2", "tx3")

	c := &calls{}
	pages := [][]notionapi.Page{
		{existingPage("p1", "tx1", civil.Date{Year: 2026, Month: 10, Day: 1})},
		{existingPage("p9", "gone", civil.Date{Year: 2026, Month: 10, Day: 9}), existingPage("p8", "old", civil.Date{Year: 2026, Month: 9, Day: 1})},
	}
	s := NewSyncer(st, newMock(pages, c), "db", zerolog.Nop())

	opts := october
	opts.Prune = true
	res, err := s.SyncTransactions(context.Background(), "user_a", opts)
	require.NoError(t, err)

	require.Equal(t, []string{"p1"}, c.updated)
	require.Equal(t, []string{"tx2", "tx3"}, c.created)
	require.Equal(t, []string{"p9"}, c.deleted, "pages outside the range are kept")
	require.Equal(t, Result{Created: 2, Updated: 1, Deleted: 1, Total: 3}, *res)
}

func TestSyncTransactionsDryRun(t *testing.T) {
	st := memory.New()
	seed(t, st, "tx1", "tx2")

	c := &calls{}
	pages := [][]notionapi.Page{{
		existingPage("p1", "tx1", civil.Date{Year: 2026, Month: 10, Day: 1}),
		existingPage("p7", "tx_gone", civil.Date{Year: 2026, Month: 10, Day: 9}),
	}}
	s := NewSyncer(st, newMock(pages, c), "db", zerolog.Nop())

	opts := october
	opts.DryRun = true
	opts.Prune = true
	res, err := s.SyncTransactions(context.Background(), "user_a", opts)
	require.NoError(t, err)
	require.Empty(t, c.created)
	require.Empty(t, c.updated)
	require.Empty(t, c.deleted)
	require.Equal(t, Result{Created: 1, Updated: 1, Deleted: 1, Total: 2}, *res)
}

func TestSyncTransactionsCountsFailures(t *testing.T) {
	st := memory.New()
	seed(t, st, "tx1", "tx2")

	c := &calls{}
	m := newMock(nil, c)
	m.CreatePageFunc = func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
		return nil, errors.New("rate limited")
	}
	s := NewSyncer(st, m, "db", zerolog.Nop())

	res, err := s.SyncTransactions(context.Background(), "user_a", october)
	require.NoError(t, err)
	require.Equal(t, 2, res.Failed)
	require.Zero(t, res.Created)
}

func TestSyncTransactionsRejectsBadInput(t *testing.T) {
	s := NewSyncer(memory.New(), newMock(nil, &calls{}), "", zerolog.Nop())
	_, err := s.SyncTransactions(context.Background(), "user_a", october)
	require.Error(t, err)

	s.databaseID = "db"
	_, err = s.SyncTransactions(context.Background(), "user_a", Options{From: october.To, To: october.From})
	require.Error(t, err)
}

func TestTransactionToNotionProperties(t *testing.T) {
	cat := "dining"
	rid := "rule-1"
	tx := &domain.Transaction{
		ID:          "tx1",
		UserID:      "user_a",
		Date:        civil.Date{Year: 2026, Month: 10, Day: 3},
		Amount:      decimal.RequireFromString("-12.5"),
		Currency:    "EUR",
		Merchant:    "Cafe",
		Category:    &cat,
		Notes:       "  lunch ",
		RecurringID: &rid,
	}

	props := TransactionToNotionProperties(tx)
	require.Equal(t, -12.5, props[PropAmount].(notionapi.NumberProperty).Number)
	require.Equal(t, "dining", props[PropCategory].(notionapi.SelectProperty).Select.Name)
	require.Equal(t, "lunch", props[PropNotes].(notionapi.RichTextProperty).RichText[0].Text.Content)
	require.True(t, props[PropRecurring].(notionapi.CheckboxProperty).Checkbox)
	require.False(t, props[PropSplit].(notionapi.CheckboxProperty).Checkbox)
	_, hasCreated := props[PropCreatedAt]
	require.False(t, hasCreated)

	tx.Category = nil
	_, hasCategory := TransactionToNotionProperties(tx)[PropCategory]
	require.False(t, hasCategory)
}
