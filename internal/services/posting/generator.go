// Package posting renders match results as CSV files for the ERP import and
// as Bank/AR journal lines.
package posting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cash-posting-backend/internal/models"
)

// Columns is the posting file header.
var Columns = []string{
	"Payment_Ref",
	"Payer_Name",
	"Matched_Invoice",
	"Match_Type",
	"Confidence",
	"Posting_Status",
	"Bank_Amount",
	"Invoice_Amount",
	"Amount_Difference",
}

const timestampLayout = "20060102_150405"

// Generator writes posting files into a directory.
type Generator struct {
	outputDir string
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// Save writes Matched_Postings_<timestamp>.csv and returns its path.
func (g *Generator) Save(results []models.MatchResult, now time.Time) (string, error) {
	return g.save("Matched_Postings", results, now)
}

// SaveExceptions writes Exceptions_<timestamp>.csv and returns its path.
func (g *Generator) SaveExceptions(results []models.MatchResult, now time.Time) (string, error) {
	return g.save("Exceptions", results, now)
}

func (g *Generator) save(prefix string, results []models.MatchResult, now time.Time) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(g.outputDir, fmt.Sprintf("%s_%s.csv", prefix, now.Format(timestampLayout)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteCSV(f, results); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// WriteCSV writes the header and one row per result.
func WriteCSV(w io.Writer, results []models.MatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range results {
		if err := cw.Write(Row(&results[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row formats one result in Columns order.
func Row(r *models.MatchResult) []string {
	return []string{
		r.PaymentRef,
		r.PayerName,
		r.MatchedInvoice,
		string(r.MatchType),
		FormatConfidence(r.Confidence),
		r.PostingStatus,
		r.BankAmount.StringFixed(2),
		formatNullable(r.InvoiceAmount),
		formatNullable(r.AmountDifference),
	}
}

// FormatConfidence renders a [0,1] confidence as a whole percentage, e.g. "87%".
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%d%%", int(math.Floor(c*100+1e-9)))
}

func formatNullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
