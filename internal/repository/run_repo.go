package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cash-posting-backend/internal/models"
)

// RunRepository stores posting runs, their results and the audit trail of
// manual changes to those results.
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) WithTx(tx *gorm.DB) *RunRepository {
	return &RunRepository{db: tx}
}

func (r *RunRepository) Create(run *models.PostingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.Create(run).Error
}

// Complete saves the final counts, paths and status of a run.
func (r *RunRepository) Complete(run *models.PostingRun) error {
	return r.db.Save(run).Error
}

func (r *RunRepository) Get(id uuid.UUID) (*models.PostingRun, error) {
	var run models.PostingRun
	if err := r.db.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Latest returns the most recently started completed run.
func (r *RunRepository) Latest() (*models.PostingRun, error) {
	var run models.PostingRun
	err := r.db.
		Where("status = ?", models.RunStatusCompleted).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveResults stores results for a run. Missing IDs are generated.
func (r *RunRepository) SaveResults(runID uuid.UUID, results []models.MatchResult) error {
	if len(results) == 0 {
		return nil
	}
	for i := range results {
		if results[i].ID == uuid.Nil {
			results[i].ID = uuid.New()
		}
		results[i].RunID = runID
	}
	return r.db.CreateInBatches(results, 200).Error
}

// ListResults returns a run's results in payment order, optionally filtered by
// posting status.
func (r *RunRepository) ListResults(runID uuid.UUID, postingStatus string) ([]models.MatchResult, error) {
	var results []models.MatchResult

	query := r.db.Where("run_id = ?", runID)
	if postingStatus != "" {
		query = query.Where("posting_status = ?", postingStatus)
	}

	err := query.Order("position ASC").Find(&results).Error
	return results, err
}

func (r *RunRepository) GetResult(id uuid.UUID) (*models.MatchResult, error) {
	var result models.MatchResult
	if err := r.db.First(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// PostException writes a reviewer's match onto a result that is still an
// exception. It returns false, without error, when the result was already
// posted by someone else.
func (r *RunRepository) PostException(result *models.MatchResult) (bool, error) {
	res := r.db.Model(&models.MatchResult{}).
		Where("id = ? AND posting_status = ?", result.ID, models.PostingStatusException).
		Updates(map[string]interface{}{
			"matched_invoice":   result.MatchedInvoice,
			"match_type":        result.MatchType,
			"confidence":        result.Confidence,
			"posting_status":    result.PostingStatus,
			"invoice_amount":    result.InvoiceAmount,
			"amount_difference": result.AmountDifference,
			"currency_match":    result.CurrencyMatch,
			"reason":            result.Reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementCounts moves n results of a run from exceptions to matched and
// recomputes the match rate in the same statement.
func (r *RunRepository) IncrementCounts(runID uuid.UUID, n int) error {
	return r.db.Model(&models.PostingRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"matched_count":   gorm.Expr("matched_count + ?", n),
			"exception_count": gorm.Expr("exception_count - ?", n),
			"match_rate": gorm.Expr(
				"CASE WHEN total_payments > 0 THEN ROUND((matched_count + ?) * 100.0 / total_payments, 2) ELSE 0 END", n),
		}).Error
}

func (r *RunRepository) CreateAuditLog(entry *models.MatchAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.Create(entry).Error
}

// AuditLogs returns the audit trail of a run, oldest first.
func (r *RunRepository) AuditLogs(runID uuid.UUID) ([]models.MatchAuditLog, error) {
	var logs []models.MatchAuditLog
	err := r.db.Where("run_id = ?", runID).Order("created_at ASC").Find(&logs).Error
	return logs, err
}
