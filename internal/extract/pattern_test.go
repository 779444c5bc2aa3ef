package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatement = `ACME Holdings - Balance Sheet
As of December 31

- Cash and Equivalents: $125,000.50
- Accounts Receivable: 42,300
- Inventory: 18,750.25
- Total Assets: $186,050.75
- Accounts Payable: (12,400)
- Total Liabilities: 12,400
- Shareholders' Equity: 173,650.75
`

func TestPatternTierExtractsLineItems(t *testing.T) {
	tier := NewPatternTier(nil)
	data, err := tier.TryExtract(context.Background(), Request{Text: sampleStatement, FileNameHint: "acme.txt"})
	require.NoError(t, err)
	require.NotNil(t, data)

	require.Len(t, data.Tables, 1)
	table := data.Tables[0]
	assert.Equal(t, "Balance Sheet", table.Title)
	require.NotEmpty(t, table.Rows)
	assert.Equal(t, []string{"Item", "Amount"}, table.Rows[0])
	assert.Len(t, table.Rows, 8, "header plus seven line items")

	assert.NotEmpty(t, data.Summary)
	assert.GreaterOrEqual(t, len(data.KeyFindings), 3)
	assert.LessOrEqual(t, len(data.KeyFindings), 5)
	assert.Equal(t, "pattern", data.Metadata["extraction_method"])
	assert.Equal(t, "7", data.Metadata["metric_count"])
}

func TestPatternTierDeduplicatesLabels(t *testing.T) {
	text := `Revenue: 100
revenue: 200
Expenses: 50
Assets: 10
Liabilities: 5
`
	tier := NewPatternTier(nil)
	data, err := tier.TryExtract(context.Background(), Request{Text: text})
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "4", data.Metadata["metric_count"])
}

func TestPatternTierBelowDensityYieldsNoResult(t *testing.T) {
	tier := NewPatternTier(nil)

	data, err := tier.TryExtract(context.Background(), Request{Text: "Total Assets: 100\nRevenue: 50\n"})
	require.NoError(t, err)
	assert.Nil(t, data, "two metrics is below the density floor")

	data, err = tier.TryExtract(context.Background(), Request{Text: "free-form prose with no structure at all"})
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.56", 1234.56, true},
		{"$1,234", 1234, true},
		{"(500)", -500, true},
		{"($2,000.10)", -2000.10, true},
		{"-42", -42, true},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 0.001, "input %q", tc.in)
		}
	}
}

func TestBucketFor(t *testing.T) {
	cases := map[string]string{
		"Total Liabilities":    "liabilities",
		"Accounts Payable":     "liabilities",
		"Shareholders' Equity": "equity",
		"Cash and Equivalents": "assets",
		"Operating Expenses":   "expenses",
		"Total Revenue":        "revenue",
	}
	for label, want := range cases {
		got, ok := bucketFor(label)
		assert.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}
	_, ok := bucketFor("Miscellaneous")
	assert.False(t, ok)
}
