package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a single bank statement line.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RunID       uuid.UUID       `gorm:"type:uuid;index" json:"run_id"`
	Position    int             `json:"position"`
	ReferenceNo string          `gorm:"index" json:"reference_no"`
	PayerName   string          `json:"payer_name"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2)" json:"amount"`
	Currency    string          `json:"currency"`
	ValueDate   time.Time       `json:"value_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Remittance is a payer-supplied advice naming the invoice a payment settles.
// Remittances are only held in memory for the run they arrive with.
type Remittance struct {
	RemittanceID     string          `json:"remittance_id"`
	PayerName        string          `json:"payer_name"`
	InvoiceReference string          `json:"invoice_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency,omitempty"`
	Date             time.Time       `json:"date,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}
