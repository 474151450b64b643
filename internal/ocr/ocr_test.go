package ocr

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStubExtractorIsDeterministic(t *testing.T) {
	s := NewStubExtractor()
	s.now = func() time.Time { return time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC) }

	a, err := s.Extract(context.Background(), []byte("receipt one"), "image/png")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	b, _ := s.Extract(context.Background(), []byte("receipt one"), "image/png")

	if !a.Total.Equal(b.Total) {
		t.Errorf("totals differ: %s vs %s", a.Total, b.Total)
	}
	if a.Total.LessThan(decimal.NewFromInt(10)) || a.Total.GreaterThanOrEqual(decimal.NewFromInt(110)) {
		t.Errorf("total %s out of range", a.Total)
	}
	if a.Date != "2026-10-18" {
		t.Errorf("date = %q", a.Date)
	}
	if a.Vendor != MockVendor {
		t.Errorf("vendor = %q", a.Vendor)
	}
}

func TestParseModelReceipt(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTotal string
		wantErr   bool
	}{
		{
			name:      "plain object",
			raw:       `{"total": 42.5, "date": "2026-10-01", "vendor": "Blue Tokai"}`,
			wantTotal: "42.5",
		},
		{
			name:      "fenced",
			raw:       "```json\n{\"total\": 12, \"date\": \"\", \"vendor\": \" Cafe \"}\n```",
			wantTotal: "12",
		},
		{
			name:      "chatter around object",
			raw:       "Here you go: {\"total\": 7.25, \"date\": \"2026-01-02\", \"vendor\": \"x\"} hope it helps",
			wantTotal: "7.25",
		},
		{
			name:    "bad date",
			raw:     `{"total": 1, "date": "01/02/2026", "vendor": "x"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     "I cannot read this receipt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelReceipt(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseModelReceipt failed: %v", err)
			}
			if !got.Total.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestNewFallsBackToStub(t *testing.T) {
	e, err := New(context.Background(), "tesseract", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := e.(*StubExtractor); !ok {
		t.Errorf("got %T, want *StubExtractor", e)
	}
}
