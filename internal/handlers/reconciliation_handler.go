package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cash-posting-backend/internal/logging"
	"cash-posting-backend/internal/services/ingest"
	service "cash-posting-backend/internal/services/reconciliation"
)

type ReconciliationHandler struct {
	service *service.ReconciliationService
	logger  *slog.Logger
}

func NewReconciliationHandler(s *service.ReconciliationService, logger *slog.Logger) *ReconciliationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconciliationHandler{service: s, logger: logging.WithComponent(logger, "api")}
}

// Process runs a posting run over the uploaded statement, remittance and
// optional ERP invoice files.
func (h *ReconciliationHandler) Process(c *gin.Context) {
	bank, bankName, ok := h.openCSV(c, "bank_statement_file", true)
	if !ok {
		return
	}
	defer bank.Close()

	remittances, remittanceName, ok := h.openCSV(c, "remittance_file", true)
	if !ok {
		return
	}
	defer remittances.Close()

	in := service.Input{
		BankFile:       bankName,
		Bank:           bank,
		RemittanceFile: remittanceName,
		Remittances:    remittances,
	}

	invoices, invoiceName, ok := h.openCSV(c, "erp_invoice_file", false)
	if !ok {
		return
	}
	if invoices != nil {
		defer invoices.Close()
		in.InvoiceFile = invoiceName
		in.Invoices = invoices
	}

	summary, err := h.service.Process(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// openCSV returns the named multipart file. A missing optional file yields a
// nil file and ok. The response is written when ok is false.
func (h *ReconciliationHandler) openCSV(c *gin.Context, field string, required bool) (multipart.File, string, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, "", true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " required"})
		return nil, "", false
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		file.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be a .csv file"})
		return nil, "", false
	}
	h.logger.Debug("received file", "field", field, "name", header.Filename, "size", header.Size)
	return file, header.Filename, true
}

// GetResults lists posted results of the latest run, or of ?run_id=.
func (h *ReconciliationHandler) GetResults(c *gin.Context) {
	runID, ok := optionalRunID(c)
	if !ok {
		return
	}
	results, err := h.service.Results(runID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(results), "matched_postings": results})
}

// GetExceptions lists exceptions of the latest run, or of ?run_id=.
func (h *ReconciliationHandler) GetExceptions(c *gin.Context) {
	runID, ok := optionalRunID(c)
	if !ok {
		return
	}
	results, err := h.service.Exceptions(runID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(results), "exceptions": results})
}

func (h *ReconciliationHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}
	summary, err := h.service.Summary(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconciliationHandler) GetJournal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}
	entries, err := h.service.Journal(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "entries": entries})
}

func (h *ReconciliationHandler) ResolveException(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result ID"})
		return
	}

	var payload struct {
		InvoiceNumber string `json:"invoice_number" binding:"required"`
		PerformedBy   string `json:"performed_by"`
		Reason        string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.service.ResolveException(id, payload.InvoiceNumber, payload.PerformedBy, payload.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "exception resolved", "result": result})
}

func (h *ReconciliationHandler) UploadInvoices(c *gin.Context) {
	file, name, ok := h.openCSV(c, "file", true)
	if !ok {
		return
	}
	defer file.Close()

	inserted, warnings, err := h.service.UploadInvoices(file)
	if err != nil {
		h.fail(c, err)
		return
	}
	if warnings == nil {
		warnings = []ingest.RowError{}
	}
	c.JSON(http.StatusOK, gin.H{
		"file":          name,
		"invoicesAdded": inserted,
		"warnings":      warnings,
	})
}

func (h *ReconciliationHandler) ListInvoices(c *gin.Context) {
	invoices, err := h.service.ListInvoices(c.Query("q"), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(invoices), "invoices": invoices})
}

func optionalRunID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("run_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run_id"})
		return nil, false
	}
	return &id, true
}

// fail maps service errors to status codes.
func (h *ReconciliationHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, service.ErrResultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyMatched), errors.Is(err, service.ErrInvoiceUnavailable):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
