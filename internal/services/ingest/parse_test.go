package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1000.00", "1000", false},
		{"1,234.50", "1234.5", false},
		{" $2,000 ", "2000", false},
		{"(150.25)", "-150.25", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-15", "03/15/2024", "15/03/2024", "15-03-2024"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}

	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}

func TestParseBankStatement(t *testing.T) {
	// Arrange
	csv := "Value_Date,Reference_No,Description,Payer_Name,Amount,Currency\n" +
		"2024-03-15,BNK-001,Wire ACME,Acme Inc,\"1,000.00\",USD\n" +
		"\n" +
		"2024-03-16,BNK-002,Wire,,500.00,USD\n" +
		"not-a-date,BNK-003,Wire,Beta LLC,oops,USD\n"

	// Act
	payments, warnings, err := ParseBankStatement(strings.NewReader(csv))

	// Assert
	require.NoError(t, err)
	require.Len(t, payments, 3)

	assert.Equal(t, "BNK-001", payments[0].ReferenceNo)
	assert.Equal(t, "Acme Inc", payments[0].PayerName)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "USD", payments[0].Currency)
	assert.Equal(t, 0, payments[0].Position)

	assert.Empty(t, payments[1].PayerName, "rows with a blank payer are kept for the engine")
	assert.Equal(t, 2, payments[2].Position)
	assert.True(t, payments[2].Amount.IsZero())
	assert.True(t, payments[2].ValueDate.IsZero())

	assert.Len(t, warnings, 2)
}

func TestParseBankStatement_MissingColumn(t *testing.T) {
	_, _, err := ParseBankStatement(strings.NewReader("Value_Date,Payer_Name,Amount\n2024-01-01,Acme,1\n"))

	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Reference_No")
}

func TestParseBankStatement_EmptyFile(t *testing.T) {
	_, _, err := ParseBankStatement(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseRemittances(t *testing.T) {
	csv := "\ufeffRemittance_ID,Payer_Name,Invoice_Reference,Payment_Amount,Notes\n" +
		"REM-1,Acme Inc,INV-100,1000.00,March retainer\n" +
		"REM-2,Beta LLC,,500.00,\n" +
		"REM-3,Gamma,INV-300,n/a,bad amount\n"

	remittances, warnings, err := ParseRemittances(strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, remittances, 2)
	assert.Equal(t, "REM-1", remittances[0].RemittanceID)
	assert.Equal(t, "INV-100", remittances[0].InvoiceReference)
	assert.Equal(t, "March retainer", remittances[0].Notes)
	assert.Empty(t, remittances[1].InvoiceReference)
	require.Len(t, warnings, 1)
	assert.Equal(t, 4, warnings[0].Line)
}

func TestParseInvoices(t *testing.T) {
	csv := "Invoice_ID,Client_Name,Matter_ID,Invoice_Date,Invoice_Amount (USD),Currency,Due_Date,Status\n" +
		"INV-100,Acme Incorporated,M-1,2024-02-01,\"1,000.00\",usd,2024-03-01,Open\n" +
		",Nobody,M-2,2024-02-01,10.00,USD,2024-03-01,Open\n" +
		"INV-102,Beta Limited,M-3,someday,505.00,USD,2024-03-01,Open\n" +
		"INV-103,Gamma Ltd,M-4,02/01/2024,75.00,USD,,Paid\n"

	invoices, warnings, err := ParseInvoices(strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, invoices, 2)

	inv := invoices[0]
	assert.Equal(t, "INV-100", inv.InvoiceNumber)
	assert.Equal(t, "Acme Incorporated", inv.CustomerName)
	assert.Equal(t, "M-1", inv.MatterID)
	assert.Equal(t, "USD", inv.Currency)
	assert.True(t, inv.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), inv.DueDate)

	assert.Equal(t, "Paid", invoices[1].Status)
	assert.True(t, invoices[1].DueDate.IsZero())
	assert.Len(t, warnings, 2)
}
