// Package ingest turns uploaded CSV files into the records the matching engine
// consumes: bank statement payments, remittance advices and ERP invoices.
//
// Columns are located by header name, case-insensitively, so column order in
// the file does not matter. Invoice and remittance rows that cannot be parsed
// are skipped and reported as RowErrors. Payment rows are never dropped: a
// payment with an unreadable amount is kept with a zero amount so the engine
// routes it to the exception list.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// RowError describes a problem with a single CSV line.
type RowError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.File, e.Line, e.Message)
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
	time.RFC3339,
}

// ParseAmount parses a money amount, accepting thousands separators, a leading
// currency symbol and accounting-style parentheses for negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	negative := strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")")
	if negative {
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}
	cleaned = strings.NewReplacer(",", "", " ", "", "$", "", "€", "", "£", "").Replace(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// ParseDate tries the supported layouts in order. Ambiguous day/month values
// resolve as month first.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", s)
}

// table is a CSV file with a header index.
type table struct {
	file    string
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func openTable(file string, r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file", file)
		}
		return nil, fmt.Errorf("%s: read header: %w", file, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}
	return &table{file: file, reader: reader, columns: columns, line: 1}, nil
}

// require resolves the first present alias for a required column.
func (t *table) require(aliases ...string) (int, error) {
	if idx, ok := t.lookup(aliases...); ok {
		return idx, nil
	}
	return 0, fmt.Errorf("%s: %w: %s", t.file, ErrMissingColumn, aliases[0])
}

func (t *table) lookup(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if idx, ok := t.columns[headerKey(a)]; ok {
			return idx, true
		}
	}
	return -1, false
}

// next returns the following non-blank row. It returns io.EOF at the end.
func (t *table) next() ([]string, error) {
	for {
		row, err := t.reader.Read()
		t.line++
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		return row, nil
	}
}

func (t *table) rowError(format string, args ...any) RowError {
	return RowError{File: t.file, Line: t.line, Message: fmt.Sprintf(format, args...)}
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}
