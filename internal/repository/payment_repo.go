package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cash-posting-backend/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// BulkCreate stores the statement lines of a run. Missing IDs are generated.
func (r *PaymentRepository) BulkCreate(runID uuid.UUID, payments []models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	for i := range payments {
		if payments[i].ID == uuid.Nil {
			payments[i].ID = uuid.New()
		}
		payments[i].RunID = runID
	}
	return r.db.CreateInBatches(payments, 200).Error
}

// ListByRun returns a run's payments in statement order.
func (r *PaymentRepository) ListByRun(runID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("run_id = ?", runID).Order("position ASC").Find(&payments).Error
	return payments, err
}
