package matching

import (
	"strings"

	"cash-posting-backend/internal/models"
)

// InvoicePool is the run-scoped set of candidate invoices.
//
// Claim is the only state transition: once an invoice is claimed it is no
// longer offered to later payments in the same run. A pool belongs to a
// single run and is not safe for concurrent use.
type InvoicePool struct {
	entries []*poolEntry
	byRef   map[string]*poolEntry
}

type poolEntry struct {
	invoice *models.Invoice
	claimed bool
}

// NewInvoicePool builds a pool from open, well-formed invoices. Invoices that
// are closed or malformed are returned separately with the reason they were
// left out. Duplicate references keep the first occurrence.
func NewInvoicePool(invoices []models.Invoice) (*InvoicePool, []SkippedInvoice) {
	pool := &InvoicePool{
		entries: make([]*poolEntry, 0, len(invoices)),
		byRef:   make(map[string]*poolEntry, len(invoices)),
	}

	var skipped []SkippedInvoice
	for i := range invoices {
		inv := &invoices[i]
		if reason := invoiceDefect(inv); reason != "" {
			skipped = append(skipped, SkippedInvoice{InvoiceNumber: inv.InvoiceNumber, Reason: reason})
			continue
		}
		key := referenceKey(inv.InvoiceNumber)
		if _, dup := pool.byRef[key]; dup {
			skipped = append(skipped, SkippedInvoice{InvoiceNumber: inv.InvoiceNumber, Reason: "duplicate invoice reference"})
			continue
		}
		entry := &poolEntry{invoice: inv}
		pool.entries = append(pool.entries, entry)
		pool.byRef[key] = entry
	}
	return pool, skipped
}

// SkippedInvoice records an invoice that never entered the pool.
type SkippedInvoice struct {
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// Lookup returns the unclaimed invoice with the given reference.
func (p *InvoicePool) Lookup(ref string) (*models.Invoice, bool) {
	entry, ok := p.byRef[referenceKey(ref)]
	if !ok || entry.claimed {
		return nil, false
	}
	return entry.invoice, true
}

// Claim marks the invoice consumed. It returns false if the invoice is unknown
// or was already claimed.
func (p *InvoicePool) Claim(ref string) bool {
	entry, ok := p.byRef[referenceKey(ref)]
	if !ok || entry.claimed {
		return false
	}
	entry.claimed = true
	return true
}

// Available returns the unclaimed invoices in input order.
func (p *InvoicePool) Available() []*models.Invoice {
	out := make([]*models.Invoice, 0, len(p.entries))
	for _, e := range p.entries {
		if !e.claimed {
			out = append(out, e.invoice)
		}
	}
	return out
}

// Len is the number of unclaimed invoices.
func (p *InvoicePool) Len() int {
	n := 0
	for _, e := range p.entries {
		if !e.claimed {
			n++
		}
	}
	return n
}

func referenceKey(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

func invoiceDefect(inv *models.Invoice) string {
	switch {
	case strings.TrimSpace(inv.InvoiceNumber) == "":
		return "missing invoice reference"
	case strings.TrimSpace(inv.CustomerName) == "":
		return "missing customer name"
	case inv.Amount.IsZero():
		return "missing amount"
	case !inv.IsOpen():
		return "invoice status " + inv.Status
	}
	return ""
}
