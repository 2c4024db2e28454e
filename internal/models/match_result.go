package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type MatchType string

const (
	MatchTypeExact       MatchType = "Exact"
	MatchTypeReference   MatchType = "Reference"
	MatchTypeFuzzyName   MatchType = "Fuzzy-Name"
	MatchTypeFuzzyAmount MatchType = "Fuzzy-Amount"
	MatchTypeContextual  MatchType = "Contextual"
	MatchTypeUnmatched   MatchType = "Unmatched"
	// MatchTypeManual marks an exception resolved by a reviewer.
	MatchTypeManual MatchType = "Manual"
)

const (
	PostingStatusPosted    = "Posted"
	PostingStatusException = "Exception"
)

// MatchResult is the outcome for one payment in one run.
// Confidence is a fraction in [0,1]; percentages are a presentation concern.
type MatchResult struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	RunID            uuid.UUID           `gorm:"type:uuid;index" json:"run_id"`
	Position         int                 `json:"position"`
	PaymentRef       string              `gorm:"index" json:"payment_ref"`
	PayerName        string              `json:"payer_name"`
	MatchedInvoice   string              `gorm:"index" json:"matched_invoice,omitempty"`
	RemittanceID     string              `json:"remittance_id,omitempty"`
	MatchType        MatchType           `gorm:"index" json:"match_type"`
	Confidence       float64             `json:"confidence"`
	PostingStatus    string              `gorm:"index" json:"posting_status"`
	Currency         string              `json:"currency"`
	BankAmount       decimal.Decimal     `gorm:"type:numeric(18,2)" json:"bank_amount"`
	InvoiceAmount    decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"invoice_amount"`
	AmountDifference decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"amount_difference"`
	NameSimilarity   float64             `json:"name_similarity"`
	AmountSimilarity float64             `json:"amount_similarity"`
	CurrencyMatch    bool                `json:"currency_match"`
	BestScore        float64             `json:"best_score,omitempty"`
	Reason           string              `json:"reason,omitempty"`
	Details          datatypes.JSON      `json:"details,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (r *MatchResult) IsPosted() bool {
	return r.PostingStatus == PostingStatusPosted
}
