package posting

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cash-posting-backend/internal/models"
)

func sampleResults() []models.MatchResult {
	return []models.MatchResult{
		{
			PaymentRef:       "BNK-001",
			PayerName:        "Acme Inc",
			MatchedInvoice:   "INV-100",
			MatchType:        models.MatchTypeExact,
			Confidence:       0.99,
			PostingStatus:    models.PostingStatusPosted,
			Currency:         "USD",
			BankAmount:       decimal.RequireFromString("1000"),
			InvoiceAmount:    decimal.NewNullDecimal(decimal.RequireFromString("1000")),
			AmountDifference: decimal.NewNullDecimal(decimal.Zero),
		},
		{
			PaymentRef:    "BNK-002",
			PayerName:     "Zeta Corp",
			MatchType:     models.MatchTypeUnmatched,
			PostingStatus: models.PostingStatusException,
			BankAmount:    decimal.RequireFromString("9999"),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, sampleResults()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"BNK-001", "Acme Inc", "INV-100", "Exact", "99%", "Posted", "1000.00", "1000.00", "0.00"}, rows[1])
	assert.Equal(t, []string{"BNK-002", "Zeta Corp", "", "Unmatched", "0%", "Exception", "9999.00", "", ""}, rows[2])
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "87%", FormatConfidence(0.87))
	assert.Equal(t, "100%", FormatConfidence(1))
	assert.Equal(t, "0%", FormatConfidence(0))
	assert.Equal(t, "57%", FormatConfidence(0.579))
}

func TestGenerator_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	gen := NewGenerator(dir)
	now := time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC)

	path, err := gen.Save(sampleResults()[:1], now)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Matched_Postings_20240315_093005.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INV-100")

	path, err = gen.SaveExceptions(sampleResults()[1:], now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Exceptions_20240315_093005.csv"), path)
}

func TestJournalEntries(t *testing.T) {
	entries := JournalEntries(sampleResults(), "2024-03-15")

	require.Len(t, entries, 1)
	assert.Equal(t, DebitAccount, entries[0].DebitAccount)
	assert.Equal(t, CreditAccount, entries[0].CreditAccount)
	assert.Equal(t, "INV-100", entries[0].Invoice)
	assert.Equal(t, "Payment from Acme Inc for INV-100", entries[0].Description)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(1000)))
}
