package ingest

import (
	"errors"
	"io"

	"cash-posting-backend/internal/models"
)

const remittanceFile = "remittance"

// ParseRemittances reads remittance advice lines.
//
// Expected header:
//
//	Remittance_ID,Payer_Name,Invoice_Reference,Payment_Amount,Notes
//
// Currency and Date columns are read when present. Rows with an unreadable
// amount are skipped.
func ParseRemittances(r io.Reader) ([]models.Remittance, []RowError, error) {
	t, err := openTable(remittanceFile, r)
	if err != nil {
		return nil, nil, err
	}

	payerCol, err := t.require("Payer_Name", "Payer")
	if err != nil {
		return nil, nil, err
	}
	refCol, err := t.require("Invoice_Reference", "Invoice_Ref", "Invoice_ID")
	if err != nil {
		return nil, nil, err
	}
	amountCol, err := t.require("Payment_Amount", "Amount")
	if err != nil {
		return nil, nil, err
	}
	idCol, _ := t.lookup("Remittance_ID", "ID")
	notesCol, _ := t.lookup("Notes")
	currencyCol, _ := t.lookup("Currency")
	dateCol, _ := t.lookup("Date", "Payment_Date", "Remittance_Date")

	var remittances []models.Remittance
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

		amount, err := ParseAmount(field(row, amountCol))
		if err != nil {
			warnings = append(warnings, t.rowError("skipping remittance: %v", err))
			continue
		}

		rem := models.Remittance{
			RemittanceID:     field(row, idCol),
			PayerName:        field(row, payerCol),
			InvoiceReference: field(row, refCol),
			Amount:           amount,
			Currency:         field(row, currencyCol),
			Notes:            field(row, notesCol),
		}
		if raw := field(row, dateCol); raw != "" {
			if date, err := ParseDate(raw); err == nil {
				rem.Date = date
			} else {
				warnings = append(warnings, t.rowError("remittance %s: %v", rem.RemittanceID, err))
			}
		}
		remittances = append(remittances, rem)
	}
	return remittances, warnings, nil
}
