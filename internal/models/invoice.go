package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"index" json:"invoice_number"`
	CustomerName  string          `gorm:"index" json:"customer_name"`
	MatterID      string          `json:"matter_id,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);index" json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `gorm:"index" json:"status"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       time.Time       `json:"due_date"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	// NumberKey is InvoiceNumber as compared: trimmed and upper-cased.
	NumberKey string `gorm:"uniqueIndex" json:"-"`
}

// closedInvoiceStatuses are never offered to the matcher.
var closedInvoiceStatuses = map[string]bool{
	"paid":        true,
	"closed":      true,
	"cancelled":   true,
	"canceled":    true,
	"void":        true,
	"written off": true,
	"written_off": true,
}

// ClosedInvoiceStatuses lists the lower-case statuses that close an invoice.
func ClosedInvoiceStatuses() []string {
	statuses := make([]string, 0, len(closedInvoiceStatuses))
	for status := range closedInvoiceStatuses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return statuses
}

// InvoiceKey canonicalises an invoice number for lookups and uniqueness.
func InvoiceKey(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// IsOpen reports whether the invoice can still receive a payment.
// An empty status is treated as open.
func (i *Invoice) IsOpen() bool {
	return !closedInvoiceStatuses[strings.ToLower(strings.TrimSpace(i.Status))]
}
