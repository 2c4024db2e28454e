package posting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cash-posting-backend/internal/models"
)

const (
	DebitAccount  = "Bank Account"
	CreditAccount = "Accounts Receivable"
)

// JournalEntry is a cash receipt applied to an invoice.
type JournalEntry struct {
	Date          string          `json:"date"`
	DebitAccount  string          `json:"debit_account"`
	CreditAccount string          `json:"credit_account"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Reference     string          `json:"reference"`
	Invoice       string          `json:"invoice"`
	Description   string          `json:"description"`
}

// JournalEntries builds one Bank/AR entry per posted result. Exceptions are skipped.
// date is an ISO 8601 calendar date.
func JournalEntries(results []models.MatchResult, date string) []JournalEntry {
	entries := make([]JournalEntry, 0, len(results))
	for _, r := range results {
		if !r.IsPosted() {
			continue
		}
		entries = append(entries, JournalEntry{
			Date:          date,
			DebitAccount:  DebitAccount,
			CreditAccount: CreditAccount,
			Amount:        r.BankAmount,
			Currency:      r.Currency,
			Reference:     r.PaymentRef,
			Invoice:       r.MatchedInvoice,
			Description:   fmt.Sprintf("Payment from %s for %s", r.PayerName, r.MatchedInvoice),
		})
	}
	return entries
}
