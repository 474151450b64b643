package ocr

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/shopspring/decimal"
)

// Providers selectable through configuration.
const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
)

// MockVendor is the vendor reported by the stub extractor.
const MockVendor = "Mock Vendor"

// Extractor pulls structured fields out of a receipt image or PDF.
// This interface enables mocking and testing of OCR functionality.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*domain.ExtractedReceipt, error)
}

// StubExtractor returns a plausible result without reading the image.
// The total is derived from the content so repeated runs agree.
type StubExtractor struct {
	now func() time.Time
}

// NewStubExtractor creates the stub extractor.
func NewStubExtractor() *StubExtractor {
	return &StubExtractor{now: time.Now}
}

// Extract returns a total between 10 and 109.99, today's date and MockVendor.
func (s *StubExtractor) Extract(_ context.Context, data []byte, _ string) (*domain.ExtractedReceipt, error) {
	h := fnv.New32a()
	_, _ = h.Write(data)
	cents := int64(h.Sum32()%10000) + 1000

	return &domain.ExtractedReceipt{
		Total:  decimal.New(cents, -2),
		Date:   s.now().UTC().Format(domain.DateLayout),
		Vendor: MockVendor,
	}, nil
}

// Validate checks an extraction before it is stored.
func Validate(e *domain.ExtractedReceipt) error {
	if e == nil {
		return fmt.Errorf("Validate: empty extraction")
	}
	if e.Total.IsNegative() {
		return fmt.Errorf("Validate: negative total %s", e.Total)
	}
	if e.Date != "" {
		if _, err := time.Parse(domain.DateLayout, e.Date); err != nil {
			return fmt.Errorf("Validate: date %q is not YYYY-MM-DD", e.Date)
		}
	}
	e.Vendor = strings.TrimSpace(e.Vendor)
	return nil
}

// New returns the extractor for provider. Unknown providers fall back to the stub.
func New(ctx context.Context, provider, model string) (Extractor, error) {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return NewGeminiExtractor(ctx, model)
	default:
		return NewStubExtractor(), nil
	}
}
