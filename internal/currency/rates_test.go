package currency_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/budgetiq/internal/currency"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestStaticRates(t *testing.T) {
	tests := []struct {
		base     string
		wantBase string
		code     string
		want     string
	}{
		{"USD", "USD", "INR", "83.5"},
		{"inr", "INR", "USD", "0.012"},
		{"EUR", "EUR", "JPY", "163.5"},
		{"XYZ", "USD", "EUR", "0.92"},
		{"", "USD", "CNY", "7.25"},
	}

	p := currency.NewStaticRates()
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			table, err := p.Rates(context.Background(), tt.base)
			require.NoError(t, err)
			require.Equal(t, tt.wantBase, table.Base)
			require.Len(t, table.Rates, 8)
			require.True(t, table.Rates[tt.code].Equal(dec(tt.want)))
			require.False(t, table.LastUpdated.IsZero())
		})
	}
}

func TestLiveRatesCachesAndFallsBack(t *testing.T) {
	var calls atomic.Int32
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		require.Equal(t, "/GBP", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","conversion_rates":{"GBP":1,"USD":1.27,"INR":105.9}}`))
	}))
	defer srv.Close()

	live := currency.NewLiveRates(srv.URL+"/", time.Hour, currency.NewStaticRates(), zerolog.Nop())

	table, err := live.Rates(context.Background(), "gbp")
	require.NoError(t, err)
	require.Equal(t, "GBP", table.Base)
	require.True(t, table.Rates["USD"].Equal(dec("1.27")))
	_, self := table.Rates["GBP"]
	require.False(t, self)

	_, err = live.Rates(context.Background(), "GBP")
	require.NoError(t, err)
	require.EqualValues(t, 1, calls.Load())

	fail.Store(true)
	fallback, err := live.Rates(context.Background(), "EUR")
	require.NoError(t, err)
	require.Equal(t, "EUR", fallback.Base)
	require.True(t, fallback.Rates["INR"].Equal(dec("90.8")))
}

func TestLiveRatesIgnoresMalformedBase(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"conversion_rates":{"USD":1,"INR":83.5}}`))
	}))
	defer srv.Close()

	live := currency.NewLiveRates(srv.URL, time.Hour, nil, zerolog.Nop())
	for _, base := range []string{"../admin", "us d", "usdollar", ""} {
		table, err := live.Rates(context.Background(), base)
		require.NoError(t, err, base)
		require.Equal(t, currency.DefaultBase, table.Base)
	}
	require.Equal(t, []string{"/USD"}, paths)
}

func TestLiveRatesServesStaleCache(t *testing.T) {
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"conversion_rates":{"INR":84}}`))
	}))
	defer srv.Close()

	live := currency.NewLiveRates(srv.URL, time.Nanosecond, nil, zerolog.Nop())
	_, err := live.Rates(context.Background(), "USD")
	require.NoError(t, err)

	fail.Store(true)
	time.Sleep(time.Millisecond)
	table, err := live.Rates(context.Background(), "USD")
	require.NoError(t, err)
	require.True(t, table.Rates["INR"].Equal(dec("84")))
}

func TestConvert(t *testing.T) {
	p := currency.NewStaticRates()
	ctx := context.Background()

	tests := []struct {
		name      string
		amount    string
		from, to  string
		want      string
		converted bool
	}{
		{"same currency", "10", "INR", "INR", "10", true},
		{"direct", "10", "USD", "INR", "835", true},
		{"inverse", "181.6", "GBP", "EUR", "211.162791", true},
		{"unknown pair", "7", "SEK", "NOK", "7", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := currency.Convert(ctx, p, dec(tt.amount), tt.from, tt.to)
			require.NoError(t, err)
			require.Equal(t, tt.converted, ok)
			require.True(t, got.Round(6).Equal(dec(tt.want)), "got %s", got)
		})
	}
}
