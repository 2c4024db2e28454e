package ingest

import (
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"cash-posting-backend/internal/models"
)

const bankStatementFile = "bank statement"

// ParseBankStatement reads bank statement lines.
//
// Expected header:
//
//	Value_Date,Reference_No,Description,Payer_Name,Amount,Currency
//
// Reference_No, Payer_Name and Amount are required columns. Rows with an
// unreadable amount or date are kept and reported.
func ParseBankStatement(r io.Reader) ([]models.Payment, []RowError, error) {
	t, err := openTable(bankStatementFile, r)
	if err != nil {
		return nil, nil, err
	}

	refCol, err := t.require("Reference_No", "Reference", "Payment_Ref")
	if err != nil {
		return nil, nil, err
	}
	payerCol, err := t.require("Payer_Name", "Payer")
	if err != nil {
		return nil, nil, err
	}
	amountCol, err := t.require("Amount", "Payment_Amount")
	if err != nil {
		return nil, nil, err
	}
	dateCol, _ := t.lookup("Value_Date", "Date", "Transaction_Date")
	descCol, _ := t.lookup("Description", "Narrative")
	currencyCol, _ := t.lookup("Currency")

	var payments []models.Payment
	var warnings []RowError
	for {
		row, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			warnings = append(warnings, t.rowError("%v", err))
			continue
		}

		p := models.Payment{
			Position:    len(payments),
			ReferenceNo: field(row, refCol),
			PayerName:   field(row, payerCol),
			Description: field(row, descCol),
			Currency:    field(row, currencyCol),
		}

		amount, err := ParseAmount(field(row, amountCol))
		if err != nil {
			warnings = append(warnings, t.rowError("payment %s: %v", p.ReferenceNo, err))
			amount = decimal.Zero
		}
		p.Amount = amount

		if raw := field(row, dateCol); raw != "" {
			date, err := ParseDate(raw)
			if err != nil {
				warnings = append(warnings, t.rowError("payment %s: %v", p.ReferenceNo, err))
				date = time.Time{}
			}
			p.ValueDate = date
		}

		payments = append(payments, p)
	}
	return payments, warnings, nil
}
