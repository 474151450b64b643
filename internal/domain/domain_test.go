package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("Transfer: locking: %w", ErrInsufficientFunds)
	require.True(t, errors.Is(err, ErrInsufficientFunds))
	require.False(t, errors.Is(err, ErrSameAccount))

	v := Validation("Email and password are required")
	require.True(t, errors.Is(v, ErrValidation))
	require.Equal(t, http.StatusBadRequest, v.Status)
	require.Equal(t, "Invalid input", ErrValidation.Message, "WithMessage must not mutate the sentinel")
}

func TestAsErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("outer: %w", ErrTransferFailed.Wrap(cause))

	de, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, CodeTransferFailed, de.Code)
	require.True(t, errors.Is(err, cause))

	_, ok = AsError(cause)
	require.False(t, ok)
}

func TestFrequencyUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Frequency
	}{
		{name: "string form", in: `"monthly"`, want: Frequency{Type: "monthly", Interval: 1}},
		{name: "object form", in: `{"type":"weekly","interval":2}`, want: Frequency{Type: "weekly", Interval: 2}},
		{name: "object without interval", in: `{"type":"daily"}`, want: Frequency{Type: "daily"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Frequency
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			require.Equal(t, tt.want, f)
		})
	}
}

func TestFrequencyNormalizeAndNext(t *testing.T) {
	start := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		freq    Frequency
		want    time.Time
		wantErr bool
	}{
		{freq: Frequency{Type: "Daily"}, want: start.AddDate(0, 0, 1)},
		{freq: Frequency{Type: "weekly", Interval: 2}, want: start.AddDate(0, 0, 14)},
		{freq: Frequency{Type: "monthly", Interval: 1}, want: start.AddDate(0, 1, 0)},
		{freq: Frequency{Type: "yearly", Interval: 1}, want: start.AddDate(1, 0, 0)},
		{freq: Frequency{Type: "fortnightly"}, wantErr: true},
		{freq: Frequency{Type: "daily", Interval: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.freq.Type, func(t *testing.T) {
			f, err := tt.freq.Normalize()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, f.Next(start))
		})
	}
}

func TestDecimalRendersAsNumber(t *testing.T) {
	out, err := json.Marshal(Account{Balance: decimal.RequireFromString("90.5")})
	require.NoError(t, err)
	require.Contains(t, string(out), `"balance":90.5`)
}

func TestValidCurrency(t *testing.T) {
	require.True(t, ValidCurrency(NormalizeCurrency(" usd ")))
	require.False(t, ValidCurrency("US"))
	require.False(t, ValidCurrency("U5D"))
}

func TestGroupHasMember(t *testing.T) {
	g := &Group{Members: []string{"user_a", "user_b"}}
	require.True(t, g.HasMember("user_b"))
	require.False(t, g.HasMember("user_c"))
}
