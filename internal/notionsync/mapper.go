package notionsync

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the Notion transactions database.
const (
	PropMerchant      = "Merchant"
	PropTransactionID = "Transaction ID"
	PropUser          = "User"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropCategory      = "Category"
	PropNotes         = "Notes"
	PropSplit         = "Is Split"
	PropRecurring     = "Recurring"
	PropCreatedAt     = "Created At"
)

// TransactionToNotionProperties converts a ledger transaction to Notion properties.
// Merchant is the page title; Transaction ID is the idempotency key.
func TransactionToNotionProperties(tx *domain.Transaction) notionapi.Properties {
	amount, _ := tx.Amount.Float64()

	props := notionapi.Properties{
		PropMerchant: notionapi.TitleProperty{
			Title: richText(tx.Merchant),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		PropUser: notionapi.RichTextProperty{
			RichText: richText(tx.UserID),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: dateOf(tx.Date)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: amount,
		},
		PropCurrency: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Currency},
		},
		PropSplit: notionapi.CheckboxProperty{
			Checkbox: len(tx.Split) > 0,
		},
		PropRecurring: notionapi.CheckboxProperty{
			Checkbox: tx.RecurringID != nil,
		},
	}

	if cat := tx.CategoryOr(""); cat != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: cat},
		}
	}

	if notes := strings.TrimSpace(tx.Notes); notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{
			RichText: richText(notes),
		}
	}

	if !tx.CreatedAt.IsZero() {
		created := notionapi.Date(tx.CreatedAt)
		props[PropCreatedAt] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &created},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

func dateOf(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(d.In(time.UTC))
	return &nd
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
