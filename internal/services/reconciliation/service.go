// Package reconciliation runs cash posting end to end over uploaded files and
// keeps each run so reviewers can work through its exceptions.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cash-posting-backend/internal/logging"
	"cash-posting-backend/internal/models"
	"cash-posting-backend/internal/repository"
	"cash-posting-backend/internal/services/ingest"
	"cash-posting-backend/internal/services/matching"
	"cash-posting-backend/internal/services/posting"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrRunNotFound        = errors.New("posting run not found")
	ErrResultNotFound     = errors.New("match result not found")
	ErrAlreadyMatched     = errors.New("payment is already posted")
	ErrInvoiceUnavailable = errors.New("invoice is not open")
)

type ReconciliationService struct {
	db          *gorm.DB
	invoiceRepo *repository.InvoiceRepository
	paymentRepo *repository.PaymentRepository
	runRepo     *repository.RunRepository
	engine      *matching.Engine
	generator   *posting.Generator
	logger      *slog.Logger
	now         func() time.Time

	summaryCache sync.Map // runID -> *RunSummary
	latestMu     sync.RWMutex
	latestRunID  uuid.UUID
}

func NewReconciliationService(
	db *gorm.DB,
	engine *matching.Engine,
	generator *posting.Generator,
	logger *slog.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationService{
		db:          db,
		invoiceRepo: repository.NewInvoiceRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		runRepo:     repository.NewRunRepository(db),
		engine:      engine,
		generator:   generator,
		logger:      logging.WithComponent(logger, "reconciliation"),
		now:         time.Now,
	}
}

// Input is one set of uploaded files. Invoices is optional; without it the
// open invoices already stored are used.
type Input struct {
	BankFile       string
	Bank           io.Reader
	RemittanceFile string
	Remittances    io.Reader
	InvoiceFile    string
	Invoices       io.Reader
}

// RunSummary is what a posting run reports back to the caller.
type RunSummary struct {
	RunID              uuid.UUID                 `json:"run_id"`
	TotalPayments      int                       `json:"total_payments"`
	MatchedCount       int                       `json:"matched_count"`
	UnmatchedCount     int                       `json:"unmatched_count"`
	MatchRate          float64                   `json:"match_rate"`
	MatchedPostings    []models.MatchResult      `json:"matched_postings"`
	UnmatchedPayments  []models.MatchResult      `json:"unmatched_payments"`
	OutputFilePath     string                    `json:"output_file_path,omitempty"`
	ExceptionsFilePath string                    `json:"exceptions_file_path,omitempty"`
	Warnings           []string                  `json:"warnings,omitempty"`
	SkippedInvoices    []matching.SkippedInvoice `json:"skipped_invoices,omitempty"`
	IgnoredRemittances int                       `json:"ignored_remittances"`
}

// Process runs one reconciliation and persists it. A run that fails after it
// was created is stored with status failed.
func (s *ReconciliationService) Process(ctx context.Context, in Input) (*RunSummary, error) {
	if in.Bank == nil || in.Remittances == nil {
		return nil, fmt.Errorf("%w: bank statement and remittance files are required", ErrInvalidInput)
	}

	var warnings []string
	addWarnings := func(rows []ingest.RowError) {
		for _, w := range rows {
			warnings = append(warnings, w.Error())
		}
	}

	payments, rowErrs, err := ingest.ParseBankStatement(in.Bank)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	addWarnings(rowErrs)

	remittances, rowErrs, err := ingest.ParseRemittances(in.Remittances)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	addWarnings(rowErrs)

	invoices, err := s.loadInvoices(in, addWarnings)
	if err != nil {
		return nil, err
	}

	run := &models.PostingRun{
		BankFile:       in.BankFile,
		RemittanceFile: in.RemittanceFile,
		InvoiceFile:    in.InvoiceFile,
		TotalPayments:  len(payments),
		Status:         models.RunStatusProcessing,
		StartedAt:      s.now(),
	}
	if err := s.runRepo.Create(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	logger := s.logger.With("run_id", run.ID)
	logger.Info("processing run", "payments", len(payments), "remittances", len(remittances), "invoices", len(invoices))

	out, err := s.engine.RunContext(ctx, payments, remittances, invoices)
	if err != nil {
		s.fail(run, err)
		return nil, fmt.Errorf("match payments: %w", err)
	}

	if len(out.Matched) > 0 {
		if run.OutputPath, err = s.generator.Save(out.Matched, run.StartedAt); err != nil {
			s.fail(run, err)
			return nil, fmt.Errorf("write postings: %w", err)
		}
	}
	if len(out.Exceptions) > 0 {
		if run.ExceptionsPath, err = s.generator.SaveExceptions(out.Exceptions, run.StartedAt); err != nil {
			s.fail(run, err)
			return nil, fmt.Errorf("write exceptions: %w", err)
		}
	}

	run.MatchedCount = len(out.Matched)
	run.ExceptionCount = len(out.Exceptions)
	run.MatchRate = matchRate(run.MatchedCount, run.TotalPayments)
	run.Status = models.RunStatusCompleted
	completedAt := s.now()
	run.CompletedAt = &completedAt

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.paymentRepo.WithTx(tx).BulkCreate(run.ID, payments); err != nil {
			return fmt.Errorf("save payments: %w", err)
		}
		runs := s.runRepo.WithTx(tx)
		if err := runs.SaveResults(run.ID, out.Matched); err != nil {
			return fmt.Errorf("save matched results: %w", err)
		}
		if err := runs.SaveResults(run.ID, out.Exceptions); err != nil {
			return fmt.Errorf("save exceptions: %w", err)
		}
		if _, err := s.invoiceRepo.WithTx(tx).MarkPaid(matchedInvoices(out.Matched), completedAt); err != nil {
			return fmt.Errorf("mark invoices paid: %w", err)
		}
		return runs.Complete(run)
	})
	if err != nil {
		s.fail(run, err)
		return nil, err
	}

	summary := &RunSummary{
		RunID:              run.ID,
		TotalPayments:      run.TotalPayments,
		MatchedCount:       run.MatchedCount,
		UnmatchedCount:     run.ExceptionCount,
		MatchRate:          run.MatchRate,
		MatchedPostings:    out.Matched,
		UnmatchedPayments:  out.Exceptions,
		OutputFilePath:     run.OutputPath,
		ExceptionsFilePath: run.ExceptionsPath,
		Warnings:           warnings,
		SkippedInvoices:    out.SkippedInvoices,
		IgnoredRemittances: out.IgnoredRemittances,
	}
	s.summaryCache.Store(run.ID, summary)
	s.setLatest(run.ID)

	logger.Info("run completed",
		"matched", run.MatchedCount,
		"exceptions", run.ExceptionCount,
		"match_rate", run.MatchRate,
		"warnings", len(warnings),
	)
	return summary, nil
}

// loadInvoices parses the uploaded ERP file and stores it, or falls back to
// the open invoices on record.
func (s *ReconciliationService) loadInvoices(in Input, addWarnings func([]ingest.RowError)) ([]models.Invoice, error) {
	if in.Invoices == nil {
		invoices, err := s.invoiceRepo.ListOpen()
		if err != nil {
			return nil, fmt.Errorf("list open invoices: %w", err)
		}
		return invoices, nil
	}

	invoices, rowErrs, err := ingest.ParseInvoices(in.Invoices)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	addWarnings(rowErrs)

	if err := s.invoiceRepo.Upsert(invoices); err != nil {
		return nil, fmt.Errorf("store invoices: %w", err)
	}
	return invoices, nil
}

// fail records a failed run. Posting files already written for it are
// removed so they cannot be imported.
func (s *ReconciliationService) fail(run *models.PostingRun, cause error) {
	for _, path := range []string{run.OutputPath, run.ExceptionsPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("failed to remove posting file", "run_id", run.ID, "path", path, "error", err)
		}
	}
	run.OutputPath = ""
	run.ExceptionsPath = ""
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	if err := s.runRepo.Complete(run); err != nil {
		s.logger.Error("failed to record run failure", "run_id", run.ID, "error", err)
	}
	s.logger.Error("run failed", "run_id", run.ID, "error", cause)
}

func (s *ReconciliationService) setLatest(id uuid.UUID) {
	s.latestMu.Lock()
	s.latestRunID = id
	s.latestMu.Unlock()
}

// resolveRun returns the given run, or the latest completed one when id is nil.
func (s *ReconciliationService) resolveRun(id *uuid.UUID) (*models.PostingRun, error) {
	if id == nil {
		s.latestMu.RLock()
		latest := s.latestRunID
		s.latestMu.RUnlock()
		if latest != uuid.Nil {
			id = &latest
		}
	}

	var run *models.PostingRun
	var err error
	if id == nil {
		run, err = s.runRepo.Latest()
	} else {
		run, err = s.runRepo.Get(*id)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Results returns the posted results of a run (latest when id is nil).
func (s *ReconciliationService) Results(id *uuid.UUID) ([]models.MatchResult, error) {
	return s.listResults(id, models.PostingStatusPosted)
}

// Exceptions returns the unresolved exceptions of a run (latest when id is nil).
func (s *ReconciliationService) Exceptions(id *uuid.UUID) ([]models.MatchResult, error) {
	return s.listResults(id, models.PostingStatusException)
}

func (s *ReconciliationService) listResults(id *uuid.UUID, status string) ([]models.MatchResult, error) {
	run, err := s.resolveRun(id)
	if err != nil {
		return nil, err
	}
	return s.runRepo.ListResults(run.ID, status)
}

// Run returns the stored run record.
func (s *ReconciliationService) Run(id uuid.UUID) (*models.PostingRun, error) {
	return s.resolveRun(&id)
}

// Summary returns the cached summary of a run, rebuilding it from storage
// when it is not cached. Rebuilt summaries carry no warnings.
func (s *ReconciliationService) Summary(id uuid.UUID) (*RunSummary, error) {
	if val, ok := s.summaryCache.Load(id); ok {
		return val.(*RunSummary), nil
	}

	run, err := s.resolveRun(&id)
	if err != nil {
		return nil, err
	}
	results, err := s.runRepo.ListResults(run.ID, "")
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		RunID:              run.ID,
		TotalPayments:      run.TotalPayments,
		MatchedCount:       run.MatchedCount,
		UnmatchedCount:     run.ExceptionCount,
		MatchRate:          matchRate(run.MatchedCount, run.TotalPayments),
		MatchedPostings:    []models.MatchResult{},
		UnmatchedPayments:  []models.MatchResult{},
		OutputFilePath:     run.OutputPath,
		ExceptionsFilePath: run.ExceptionsPath,
	}
	for _, r := range results {
		if r.IsPosted() {
			summary.MatchedPostings = append(summary.MatchedPostings, r)
		} else {
			summary.UnmatchedPayments = append(summary.UnmatchedPayments, r)
		}
	}

	if run.Status == models.RunStatusCompleted {
		s.summaryCache.Store(run.ID, summary)
	}
	return summary, nil
}

// Journal returns the journal entries for the posted results of a run, dated
// on the day the run started.
func (s *ReconciliationService) Journal(id uuid.UUID) ([]posting.JournalEntry, error) {
	run, err := s.resolveRun(&id)
	if err != nil {
		return nil, err
	}
	results, err := s.runRepo.ListResults(run.ID, models.PostingStatusPosted)
	if err != nil {
		return nil, err
	}
	return posting.JournalEntries(results, run.StartedAt.Format("2006-01-02")), nil
}

// ResolveException posts an exception against an open invoice chosen by a
// reviewer. The change is written to the audit log.
func (s *ReconciliationService) ResolveException(resultID uuid.UUID, invoiceNumber, performedBy, reason string) (*models.MatchResult, error) {
	result, err := s.runRepo.GetResult(resultID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	if result.IsPosted() {
		return nil, ErrAlreadyMatched
	}

	invoice, err := s.invoiceRepo.GetByNumber(invoiceNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s not found", ErrInvoiceUnavailable, invoiceNumber)
	}
	if err != nil {
		return nil, err
	}
	if !invoice.IsOpen() {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvoiceUnavailable, invoice.InvoiceNumber, invoice.Status)
	}

	if performedBy == "" {
		performedBy = "reviewer"
	}
	previous := result.MatchedInvoice
	now := s.now()

	result.MatchedInvoice = invoice.InvoiceNumber
	result.MatchType = models.MatchTypeManual
	result.Confidence = 1
	result.PostingStatus = models.PostingStatusPosted
	result.InvoiceAmount = decimal.NewNullDecimal(invoice.Amount)
	result.AmountDifference = decimal.NewNullDecimal(result.BankAmount.Sub(invoice.Amount))
	result.CurrencyMatch = matching.CurrencyMatch(result.Currency, invoice.Currency)
	result.Reason = ""

	// Both writes are conditional: a concurrent resolve that got there first
	// leaves zero affected rows and rolls this one back.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		runs := s.runRepo.WithTx(tx)
		posted, err := runs.PostException(result)
		if err != nil {
			return fmt.Errorf("update result: %w", err)
		}
		if !posted {
			return ErrAlreadyMatched
		}
		closed, err := s.invoiceRepo.WithTx(tx).MarkPaid([]string{invoice.InvoiceNumber}, now)
		if err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		if closed != 1 {
			return fmt.Errorf("%w: %s was closed concurrently", ErrInvoiceUnavailable, invoice.InvoiceNumber)
		}
		if err := runs.IncrementCounts(result.RunID, 1); err != nil {
			return fmt.Errorf("update run counts: %w", err)
		}
		return runs.CreateAuditLog(&models.MatchAuditLog{
			RunID:           result.RunID,
			ResultID:        result.ID,
			Action:          "manual_match",
			PreviousInvoice: previous,
			NewInvoice:      invoice.InvoiceNumber,
			PerformedBy:     performedBy,
			Reason:          reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.summaryCache.Delete(result.RunID)
	s.logger.Info("exception resolved",
		"run_id", result.RunID,
		"payment_ref", result.PaymentRef,
		"invoice", invoice.InvoiceNumber,
		"by", performedBy,
	)
	return result, nil
}

// UploadInvoices stores an ERP invoice export and returns how many rows were
// accepted together with the rows that were skipped.
func (s *ReconciliationService) UploadInvoices(r io.Reader) (int, []ingest.RowError, error) {
	invoices, warnings, err := ingest.ParseInvoices(r)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.invoiceRepo.Upsert(invoices); err != nil {
		return 0, warnings, fmt.Errorf("store invoices: %w", err)
	}
	s.logger.Info("invoices uploaded", "accepted", len(invoices), "skipped", len(warnings))
	return len(invoices), warnings, nil
}

func (s *ReconciliationService) ListInvoices(query, status string) ([]models.Invoice, error) {
	return s.invoiceRepo.Search(query, status)
}

// matchRate is the matched share of payments as a percentage with two decimals.
func matchRate(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(matched)/float64(total)*10000) / 100
}

func matchedInvoices(results []models.MatchResult) []string {
	numbers := make([]string, 0, len(results))
	for _, r := range results {
		if r.MatchedInvoice != "" {
			numbers = append(numbers, r.MatchedInvoice)
		}
	}
	return numbers
}
