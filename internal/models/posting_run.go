package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

type PostingRun struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BankFile       string     `json:"bank_file"`
	RemittanceFile string     `json:"remittance_file"`
	InvoiceFile    string     `json:"invoice_file,omitempty"`
	TotalPayments  int        `json:"total_payments"`
	MatchedCount   int        `json:"matched_count"`
	ExceptionCount int        `json:"exception_count"`
	MatchRate      float64    `json:"match_rate"`
	OutputPath     string     `json:"output_path,omitempty"`
	ExceptionsPath string     `json:"exceptions_path,omitempty"`
	Status         string     `gorm:"index" json:"status"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
