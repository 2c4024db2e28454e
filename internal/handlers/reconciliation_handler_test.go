package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cash-posting-backend/internal/repository"
	"cash-posting-backend/internal/services/matching"
	"cash-posting-backend/internal/services/posting"
	service "cash-posting-backend/internal/services/reconciliation"
)

const (
	bankCSV = "Value_Date,Reference_No,Description,Payer_Name,Amount,Currency\n" +
		"2024-03-15,BNK-001,Wire,Acme Inc,1000.00,USD\n" +
		"2024-03-16,BNK-002,Wire,Unknown Payer,777.00,USD\n"
	remittanceCSV = "Remittance_ID,Payer_Name,Invoice_Reference,Payment_Amount,Notes\n" +
		"REM-1,Acme Inc,INV-100,1000.00,\n"
	invoiceCSV = "Invoice_ID,Client_Name,Matter_ID,Invoice_Date,Invoice_Amount (USD),Currency,Due_Date,Status\n" +
		"INV-100,Acme Inc,M-1,2024-02-01,1000.00,USD,2024-03-01,Open\n" +
		"INV-300,Initech LLC,M-3,2024-02-01,5000.00,USD,2024-03-01,Open\n"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := slog.New(slog.DiscardHandler)
	engine, err := matching.NewEngine(matching.DefaultConfig(), log)
	require.NoError(t, err)
	svc := service.NewReconciliationService(db, engine, posting.NewGenerator(t.TempDir()), log)
	h := NewReconciliationHandler(svc, log)

	r := gin.New()
	r.POST("/process", h.Process)
	r.GET("/results", h.GetResults)
	r.GET("/exceptions", h.GetExceptions)
	r.POST("/exceptions/:id/resolve", h.ResolveException)
	r.GET("/runs/:runId", h.GetRun)
	r.GET("/runs/:runId/journal", h.GetJournal)
	r.POST("/invoices/upload", h.UploadInvoices)
	r.GET("/invoices", h.ListInvoices)
	return r
}

// multipartBody builds a form with one file per entry of files (field -> name, content).
func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, f := range files {
		part, err := w.CreateFormFile(field, f[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(r *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func processFull(t *testing.T, r *gin.Engine) service.RunSummary {
	t.Helper()
	body, ct := multipartBody(t, map[string][2]string{
		"bank_statement_file": {"bank.csv", bankCSV},
		"remittance_file":     {"remittance.csv", remittanceCSV},
		"erp_invoice_file":    {"erp.CSV", invoiceCSV},
	})
	w := do(r, http.MethodPost, "/process", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary service.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	return summary
}

func TestProcess(t *testing.T) {
	r := setupRouter(t)

	summary := processFull(t, r)

	assert.Equal(t, 2, summary.TotalPayments)
	assert.Equal(t, 1, summary.MatchedCount)
	assert.Equal(t, 1, summary.UnmatchedCount)
	assert.Equal(t, 50.0, summary.MatchRate)
	assert.NotEmpty(t, summary.OutputFilePath)
}

func TestProcess_Validation(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name  string
		files map[string][2]string
		want  string
	}{
		{
			name:  "missing remittance file",
			files: map[string][2]string{"bank_statement_file": {"bank.csv", bankCSV}},
			want:  "remittance_file required",
		},
		{
			name: "wrong extension",
			files: map[string][2]string{
				"bank_statement_file": {"bank.xlsx", bankCSV},
				"remittance_file":     {"remittance.csv", remittanceCSV},
			},
			want: "bank_statement_file must be a .csv file",
		},
		{
			name: "missing column",
			files: map[string][2]string{
				"bank_statement_file": {"bank.csv", "Date,Amount\n2024-01-01,5\n"},
				"remittance_file":     {"remittance.csv", remittanceCSV},
			},
			want: "missing required column",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.files)

			w := do(r, http.MethodPost, "/process", body, ct)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestResultsAndExceptions(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodGet, "/results", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	summary := processFull(t, r)

	w = do(r, http.MethodGet, "/results", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matched_invoice":"INV-100"`)

	w = do(r, http.MethodGet, "/exceptions?run_id="+summary.RunID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_ref":"BNK-002"`)

	w = do(r, http.MethodGet, "/exceptions?run_id=nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRunAndJournal(t *testing.T) {
	r := setupRouter(t)
	summary := processFull(t, r)

	w := do(r, http.MethodGet, "/runs/"+summary.RunID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matched_count":1`)

	w = do(r, http.MethodGet, "/runs/"+summary.RunID.String()+"/journal", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"credit_account":"Accounts Receivable"`)

	w = do(r, http.MethodGet, "/runs/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/runs/bad-id", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveException(t *testing.T) {
	r := setupRouter(t)
	summary := processFull(t, r)
	path := "/exceptions/" + summary.UnmatchedPayments[0].ID.String() + "/resolve"

	w := do(r, http.MethodPost, path, bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, path, bytes.NewBufferString(`{"invoice_number":"INV-100"}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code, "INV-100 was paid by the run")

	w = do(r, http.MethodPost, path, bytes.NewBufferString(`{"invoice_number":"INV-300","performed_by":"ana"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"match_type":"Manual"`)

	w = do(r, http.MethodPost, path, bytes.NewBufferString(`{"invoice_number":"INV-300"}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/exceptions/"+uuid.NewString()+"/resolve", bytes.NewBufferString(`{"invoice_number":"INV-300"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoices(t *testing.T) {
	r := setupRouter(t)
	body, ct := multipartBody(t, map[string][2]string{"file": {"erp.csv", invoiceCSV}})

	w := do(r, http.MethodPost, "/invoices/upload", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"invoicesAdded":2`)

	w = do(r, http.MethodGet, "/invoices?status=open", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	w = do(r, http.MethodGet, "/invoices?q=initech", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "INV-300"))
}
