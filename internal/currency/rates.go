package currency

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/budgetiq/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBase is used when a caller asks for an unknown or empty base.
const DefaultBase = "USD"

// RatesProvider returns advisory exchange rates. Transfers never consult it;
// they use the rate the caller supplies.
type RatesProvider interface {
	Rates(ctx context.Context, base string) (*domain.RateTable, error)
}

var staticRates = map[string]map[string]string{
	"USD": {"INR": "83.5", "EUR": "0.92", "GBP": "0.79", "JPY": "150.2", "CAD": "1.35", "AUD": "1.52", "CHF": "0.88", "CNY": "7.25"},
	"INR": {"USD": "0.012", "EUR": "0.011", "GBP": "0.0095", "JPY": "1.8", "CAD": "0.016", "AUD": "0.018", "CHF": "0.011", "CNY": "0.087"},
	"EUR": {"USD": "1.09", "INR": "90.8", "GBP": "0.86", "JPY": "163.5", "CAD": "1.47", "AUD": "1.65", "CHF": "0.96", "CNY": "7.9"},
}

// StaticRates serves the built-in rate table.
type StaticRates struct {
	now func() time.Time
}

// NewStaticRates creates the built-in provider.
func NewStaticRates() *StaticRates {
	return &StaticRates{now: time.Now}
}

// Rates returns the table for base, falling back to the USD table for unknown bases.
func (s *StaticRates) Rates(_ context.Context, base string) (*domain.RateTable, error) {
	base = domain.NormalizeCurrency(base)
	table, ok := staticRates[base]
	if !ok {
		base = DefaultBase
		table = staticRates[DefaultBase]
	}

	rates := make(map[string]decimal.Decimal, len(table))
	for code, r := range table {
		rates[code] = decimal.RequireFromString(r)
	}
	return &domain.RateTable{Base: base, Rates: rates, LastUpdated: s.now().UTC()}, nil
}

// LiveRates fetches rates from an exchangerate-api compatible endpoint
// (GET {baseURL}/{BASE} -> {"conversion_rates": {...}}), caches them per base
// for ttl and falls back to another provider when the fetch fails.
type LiveRates struct {
	baseURL  string
	ttl      time.Duration
	client   *http.Client
	fallback RatesProvider
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[string]*domain.RateTable
}

// NewLiveRates creates a caching live provider.
func NewLiveRates(baseURL string, ttl time.Duration, fallback RatesProvider, log zerolog.Logger) *LiveRates {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &LiveRates{
		baseURL:  strings.TrimRight(baseURL, "/"),
		ttl:      ttl,
		client:   &http.Client{Timeout: 10 * time.Second},
		fallback: fallback,
		log:      log,
		cache:    make(map[string]*domain.RateTable),
	}
}

// Rates returns cached rates for base, refreshing when older than the TTL.
// A base that is not a currency code is served as DefaultBase.
// A failed refresh serves stale cache, then the fallback provider.
func (l *LiveRates) Rates(ctx context.Context, base string) (*domain.RateTable, error) {
	base = domain.NormalizeCurrency(base)
	if !domain.ValidCurrency(base) {
		base = DefaultBase
	}

	l.mu.Lock()
	cached := l.cache[base]
	l.mu.Unlock()
	if cached != nil && time.Since(cached.LastUpdated) < l.ttl {
		return cached, nil
	}

	table, err := l.fetch(ctx, base)
	if err == nil {
		l.mu.Lock()
		l.cache[base] = table
		l.mu.Unlock()
		return table, nil
	}

	l.log.Warn().Err(err).Str("base", base).Msg("Failed to fetch exchange rates")
	if cached != nil {
		return cached, nil
	}
	if l.fallback != nil {
		return l.fallback.Rates(ctx, base)
	}
	return nil, err
}

func (l *LiveRates) fetch(ctx context.Context, base string) (*domain.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: building request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fetch: decoding: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(body.ConversionRates))
	for code, r := range body.ConversionRates {
		if r.Sign() > 0 && code != base {
			rates[code] = r
		}
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("fetch: no usable rates for %s", base)
	}
	return &domain.RateTable{Base: base, Rates: rates, LastUpdated: time.Now().UTC()}, nil
}

// Convert expresses amount (in from) in to. The boolean is false when no rate
// is known in either direction, in which case amount is returned unchanged.
func Convert(ctx context.Context, p RatesProvider, amount decimal.Decimal, from, to string) (decimal.Decimal, bool, error) {
	from, to = domain.NormalizeCurrency(from), domain.NormalizeCurrency(to)
	if from == to {
		return amount, true, nil
	}

	direct, err := p.Rates(ctx, from)
	if err != nil {
		return amount, false, err
	}
	if direct.Base == from {
		if r, ok := direct.Rates[to]; ok {
			return amount.Mul(r), true, nil
		}
	}

	inverse, err := p.Rates(ctx, to)
	if err != nil {
		return amount, false, err
	}
	if inverse.Base == to {
		if r, ok := inverse.Rates[from]; ok && r.Sign() > 0 {
			return amount.Div(r), true, nil
		}
	}
	return amount, false, nil
}
