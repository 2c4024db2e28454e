package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"suffix variants are identical", "Acme Inc", "ACME Incorporated", 1.0},
		{"llc against limited", "Beta LLC", "Beta Limited", 1.0},
		{"empty side", "", "Acme", 0.0},
		{"both empty", "", "", 0.0},
		{"containment boost", "Acme", "Acme Industrial", 2.0/3.0 + containmentBoost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NameSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNameSimilarity_DisjointNamesScoreLow(t *testing.T) {
	assert.Less(t, NameSimilarity("Acme", "Zeta"), 0.5)
	assert.Less(t, NameSimilarity("Zeta Corp", "Omega Traders"), 0.5)
}

func TestNameSimilarity_SymmetricAndBounded(t *testing.T) {
	names := []string{
		"Acme Inc",
		"Acme Industrial Supplies",
		"Beta Limited",
		"Delta Svc Group",
		"Delta Services",
		"Zeta Corp",
		"Müller GmbH",
		"",
	}

	for _, a := range names {
		for _, b := range names {
			ab := NameSimilarity(a, b)
			ba := NameSimilarity(b, a)
			assert.Equal(t, ab, ba, "sim(%q,%q)", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
		if Normalize(a) != "" {
			assert.Equal(t, 1.0, NameSimilarity(a, a), "sim(%q,%q)", a, a)
		}
	}
}

func TestAmountSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"equal", "1000.00", "1000", 1.0},
		{"both zero", "0", "0", 1.0},
		{"one percent off", "500.00", "505.00", 1 - 5.0/505.0},
		{"one side zero", "100", "0", 0.0},
		{"a third", "100", "300", 1 - 200.0/300.0},
		{"opposite signs", "-100", "100", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := decimal.RequireFromString(tt.a)
			b := decimal.RequireFromString(tt.b)
			assert.InDelta(t, tt.want, AmountSimilarity(a, b), 1e-9)
			assert.Equal(t, AmountSimilarity(a, b), AmountSimilarity(b, a))
		})
	}
}

func TestCurrencyMatch(t *testing.T) {
	assert.True(t, CurrencyMatch("USD", "usd"))
	assert.True(t, CurrencyMatch("USD", ""))
	assert.False(t, CurrencyMatch("USD", "EUR"))
}
