package categorize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggestKeywords(t *testing.T) {
	c := New()

	tests := []struct {
		merchant string
		want     string
	}{
		{"AMAZON Marketplace", "shopping"},
		{"Flipkart", "shopping"},
		{"Uber *Trip", "transportation"},
		{"Ola Cabs", "transportation"},
		{"Blue Tokai Cafe", "dining"},
		{"Spice Restaurant", "dining"},
		{"Apollo Pharmacy", "healthcare"},
		{"NETFLIX.COM", "entertainment"},
		{"Spotify AB", "entertainment"},
		{"Electricity Board", "misc"},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			require.Equal(t, tt.want, c.Suggest(tt.merchant, nil).Category)
		})
	}
}

func TestSuggestHistory(t *testing.T) {
	c := New()
	known := map[string]string{
		"big bazaar":    "groceries",
		"city power co": "utilities",
	}

	got := c.Suggest("Big Bazar", known)
	require.Equal(t, "groceries", got.Category)
	require.Equal(t, SourceHistory, got.Source)
	require.GreaterOrEqual(t, got.Confidence, MinSimilarity)

	got = c.Suggest("Something Else Entirely", known)
	require.Equal(t, "misc", got.Category)
	require.Equal(t, SourceFallback, got.Source)

	// keyword rules take precedence over history
	got = c.Suggest("amazon", map[string]string{"amazon": "work"})
	require.Equal(t, "shopping", got.Category)
	require.Equal(t, SourceRule, got.Source)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
fallback: other
rules:
  - category: travel
    keywords: [" Indigo ", AIRLINE]
`))
	require.NoError(t, err)
	require.Equal(t, "travel", c.Suggest("IndiGo 6E-203", nil).Category)
	require.Equal(t, "travel", c.Suggest("some airline", nil).Category)
	require.Equal(t, "other", c.Suggest("amazon", nil).Category)

	_, err = Parse([]byte("rules:\n  - category: empty\n"))
	require.Error(t, err)

	_, err = Parse([]byte("rules: ["))
	require.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("Cafe", "cafe"))
	require.Equal(t, 0.0, Similarity("", ""))
	require.InDelta(t, 0.9, Similarity("big bazaar", "big bazar"), 0.01)
}
