package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cash-posting-backend/internal/models"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

// Upsert inserts invoices, updating the stored row when the invoice number
// already exists. Numbers compare trimmed and case-insensitive. PaidAt is left
// alone. Within one call the first occurrence of a number wins, matching how
// the engine treats duplicates.
func (r *InvoiceRepository) Upsert(invoices []models.Invoice) error {
	seen := make(map[string]bool, len(invoices))
	rows := make([]models.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		key := models.InvoiceKey(inv.InvoiceNumber)
		if seen[key] {
			continue
		}
		seen[key] = true
		inv.NumberKey = key
		if inv.ID == uuid.Nil {
			inv.ID = uuid.New()
		}
		rows = append(rows, inv)
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "number_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"invoice_number", "customer_name", "matter_id", "amount", "currency", "status", "invoice_date", "due_date",
		}),
	}).CreateInBatches(rows, 100).Error
}

// ListOpen returns invoices that can still receive a payment, oldest first.
func (r *InvoiceRepository) ListOpen() ([]models.Invoice, error) {
	var all []models.Invoice
	if err := r.db.Order("created_at ASC, invoice_number ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	open := all[:0]
	for _, inv := range all {
		if inv.IsOpen() {
			open = append(open, inv)
		}
	}
	return open, nil
}

// GetByNumber fetches a single invoice by invoice number, ignoring case.
func (r *InvoiceRepository) GetByNumber(number string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "number_key = ?", models.InvoiceKey(number)).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MarkPaid closes the named invoices that are still open and returns how many
// it closed. Unknown and already closed numbers are ignored, so a caller that
// needs an invoice for itself checks the count.
func (r *InvoiceRepository) MarkPaid(numbers []string, at time.Time) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	keys := make([]string, len(numbers))
	for i, n := range numbers {
		keys[i] = models.InvoiceKey(n)
	}
	result := r.db.Model(&models.Invoice{}).
		Where("number_key IN ?", keys).
		Where("LOWER(TRIM(status)) NOT IN ?", models.ClosedInvoiceStatuses()).
		Updates(map[string]interface{}{
			"status":  "paid",
			"paid_at": at,
		})
	return result.RowsAffected, result.Error
}

// Search is used by the invoice listing with optional filters.
func (r *InvoiceRepository) Search(query, status string) ([]models.Invoice, error) {
	var invoices []models.Invoice

	dbQuery := r.db.Model(&models.Invoice{})

	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbQuery = dbQuery.Where("LOWER(customer_name) LIKE ? OR LOWER(invoice_number) LIKE ?", like, like)
	}
	if status != "" {
		dbQuery = dbQuery.Where("LOWER(status) = ?", strings.ToLower(status))
	}

	err := dbQuery.Order("invoice_number ASC").Find(&invoices).Error
	return invoices, err
}
