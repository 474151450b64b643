package cmd

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{name: "valid", from: "2024-01-01", to: "2024-01-31"},
		{name: "single day", from: "2024-02-29", to: "2024-02-29"},
		{name: "missing to", from: "2024-01-01", wantErr: true},
		{name: "bad from", from: "01/01/2024", to: "2024-01-31", wantErr: true},
		{name: "reversed", from: "2024-02-01", to: "2024-01-31", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseRange(tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.from, from.String())
			require.Equal(t, tt.to, to.String())
		})
	}
}

func TestFakeTransactions(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 3, Day: 15}
	reqs := fakeTransactions(gofakeit.New(42), 40, 30, today, "INR")
	require.Len(t, reqs, 40)

	earliest := today.AddDays(-29)
	for _, r := range reqs {
		d, err := civil.ParseDate(r.Date)
		require.NoError(t, err)
		require.False(t, d.After(today))
		require.False(t, d.Before(earliest))
		require.True(t, r.Amount.IsNegative())
		require.Equal(t, "INR", r.Currency)
		require.NotEmpty(t, r.Merchant)
		require.Nil(t, r.Category)
	}

	again := fakeTransactions(gofakeit.New(42), 40, 30, today, "INR")
	require.Equal(t, reqs[0].Merchant, again[0].Merchant)
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "flag", firstNonEmpty("flag", "env"))
	require.Equal(t, "env", firstNonEmpty("", "env"))
	require.Empty(t, firstNonEmpty("", ""))
}

func TestRootRegistersCommands(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"seed"},
		{"recurring", "run"},
		{"export", "bigquery"},
		{"report", "categories"},
		{"sync-notion"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], c.Name())
	}
}
