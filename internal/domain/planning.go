package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Budget periods.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// ValidPeriod reports whether p is a known budget period.
func ValidPeriod(p string) bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Budget caps spending in one category.
type Budget struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Category    string          `json:"category"`
	Period      string          `json:"period"`
	Limit       decimal.Decimal `json:"limit"`
	SpentToDate decimal.Decimal `json:"spentToDate"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Receipt is an uploaded file plus what OCR extracted from it.
type Receipt struct {
	ID          string            `json:"id"`
	UserID      string            `json:"-"`
	FileURL     string            `json:"fileUrl"`
	FileName    string            `json:"fileName"`
	ContentType string            `json:"contentType"`
	Size        int64             `json:"size"`
	Extracted   *ExtractedReceipt `json:"extracted"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// ExtractedReceipt is the structured OCR result.
type ExtractedReceipt struct {
	Total  decimal.Decimal `json:"total"`
	Date   string          `json:"date"`
	Vendor string          `json:"vendor"`
}

// Recurrence types.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Frequency is how often a recurring rule fires. On the wire it is either a bare
// type string ("monthly") or an object {"type":"monthly","interval":1}.
type Frequency struct {
	Type     string `json:"type"`
	Interval int    `json:"interval"`
}

// UnmarshalJSON accepts both the string and the object form.
func (f *Frequency) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Frequency{Type: s, Interval: 1}
		return nil
	}

	type plain Frequency
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Frequency(p)
	return nil
}

// Normalize lower-cases the type, defaults the interval to 1 and validates both.
func (f Frequency) Normalize() (Frequency, error) {
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	if f.Interval == 0 {
		f.Interval = 1
	}
	if f.Interval < 0 {
		return f, fmt.Errorf("interval must be positive")
	}
	switch f.Type {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return f, nil
	}
	return f, fmt.Errorf("unknown frequency %q", f.Type)
}

// Next returns the occurrence after t.
func (f Frequency) Next(t time.Time) time.Time {
	n := f.Interval
	if n <= 0 {
		n = 1
	}
	switch f.Type {
	case FrequencyDaily:
		return t.AddDate(0, 0, n)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7*n)
	case FrequencyYearly:
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, n, 0)
	}
}

// TransactionTemplate is the transaction a recurring rule materialises.
type TransactionTemplate struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Merchant string          `json:"merchant"`
	Category *string         `json:"category,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// RecurringRule materialises its template every Frequency, starting at NextRun.
type RecurringRule struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"-"`
	TemplateTransaction TransactionTemplate `json:"templateTransaction"`
	Frequency           Frequency           `json:"frequency"`
	NextRun             time.Time           `json:"nextRun"`
	Active              bool                `json:"active"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// Group is a set of users sharing expenses. Members always includes the creator.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// GroupExpense is one payment shared equally by a group's members.
type GroupExpense struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"groupId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      string          `json:"paidBy"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MemberBalance is a member's net position in a group. Positive means others owe them.
type MemberBalance struct {
	UserID string          `json:"userId"`
	Net    decimal.Decimal `json:"net"`
}
