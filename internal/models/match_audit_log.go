package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchAuditLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RunID           uuid.UUID `gorm:"type:uuid;index" json:"run_id"`
	ResultID        uuid.UUID `gorm:"type:uuid;index" json:"result_id"`
	Action          string    `json:"action"`
	PreviousInvoice string    `json:"previous_invoice,omitempty"`
	NewInvoice      string    `json:"new_invoice,omitempty"`
	PerformedBy     string    `json:"performed_by"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}
