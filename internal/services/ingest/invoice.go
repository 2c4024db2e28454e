package ingest

import (
	"errors"
	"io"
	"strings"
	"time"

	"cash-posting-backend/internal/models"
)

const invoiceFile = "erp invoices"

// ParseInvoices reads the ERP open-invoice export.
//
// Expected header:
//
//	Invoice_ID,Client_Name,Matter_ID,Invoice_Date,Invoice_Amount (USD),Currency,Due_Date,Status
//
// Rows with an unreadable amount or date, or without an invoice number, are skipped.
func ParseInvoices(r io.Reader) ([]models.Invoice, []RowError, error) {
	t, err := openTable(invoiceFile, r)
	if err != nil {
		return nil, nil, err
	}

	numberCol, err := t.require("Invoice_ID", "Invoice_Number", "Invoice_No")
	if err != nil {
		return nil, nil, err
	}
	customerCol, err := t.require("Client_Name", "Customer_Name", "Customer")
	if err != nil {
		return nil, nil, err
	}
	amountCol, err := t.require("Invoice_Amount (USD)", "Invoice_Amount", "Amount")
	if err != nil {
		return nil, nil, err
	}
	matterCol, _ := t.lookup("Matter_ID")
	invoiceDateCol, _ := t.lookup("Invoice_Date")
	dueDateCol, _ := t.lookup("Due_Date")
	currencyCol, _ := t.lookup("Currency")
	statusCol, _ := t.lookup("Status")

	var invoices []models.Invoice
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

		number := field(row, numberCol)
		if number == "" {
			warnings = append(warnings, t.rowError("skipping invoice: empty invoice id"))
			continue
		}
		amount, err := ParseAmount(field(row, amountCol))
		if err != nil {
			warnings = append(warnings, t.rowError("skipping invoice %s: %v", number, err))
			continue
		}

		inv := models.Invoice{
			InvoiceNumber: number,
			CustomerName:  field(row, customerCol),
			MatterID:      field(row, matterCol),
			Amount:        amount,
			Currency:      strings.ToUpper(field(row, currencyCol)),
			Status:        field(row, statusCol),
		}

		if inv.InvoiceDate, err = optionalDate(field(row, invoiceDateCol)); err != nil {
			warnings = append(warnings, t.rowError("skipping invoice %s: %v", number, err))
			continue
		}
		if inv.DueDate, err = optionalDate(field(row, dueDateCol)); err != nil {
			warnings = append(warnings, t.rowError("skipping invoice %s: %v", number, err))
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, warnings, nil
}

func optionalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return ParseDate(raw)
}
