// Package matching is the payment-to-invoice reconciliation engine.
//
// For every bank payment the engine first tries to follow an invoice reference
// carried on a matching remittance advice, then falls back to a fuzzy search of
// open invoices by payer name and amount. Each payment yields exactly one
// models.MatchResult, either Posted against an invoice or routed to the
// exception list for manual review. An invoice is matched at most once per run.
//
// The engine is synchronous and does no I/O:
//
//	matched, exceptions, err := matching.Run(payments, remittances, invoices, matching.DefaultConfig())
package matching

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"cash-posting-backend/internal/logging"
	"cash-posting-backend/internal/models"
)

const (
	stageReference = "reference"
	stageFuzzy     = "fuzzy"
	stageRejected  = "rejected"
)

// Engine runs reconciliation with a validated Config.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// Outcome is everything one run produced.
type Outcome struct {
	Matched            []models.MatchResult `json:"matched"`
	Exceptions         []models.MatchResult `json:"exceptions"`
	SkippedInvoices    []SkippedInvoice     `json:"skipped_invoices,omitempty"`
	IgnoredRemittances int                  `json:"ignored_remittances"`
}

// NewEngine validates cfg. A nil logger falls back to slog.Default().
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logging.WithComponent(logger, "matching")}, nil
}

// Run reconciles payments against invoices and returns the matched and
// exception lists, each in input payment order.
func Run(payments []models.Payment, remittances []models.Remittance, invoices []models.Invoice, cfg Config) ([]models.MatchResult, []models.MatchResult, error) {
	engine, err := NewEngine(cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	out, err := engine.RunContext(context.Background(), payments, remittances, invoices)
	if err != nil {
		return nil, nil, err
	}
	return out.Matched, out.Exceptions, nil
}

// RunContext is Run with cancellation checked between payments. When ctx is
// done the payments processed so far are returned together with ctx.Err().
func (e *Engine) RunContext(ctx context.Context, payments []models.Payment, remittances []models.Remittance, invoices []models.Invoice) (*Outcome, error) {
	pool, skipped := NewInvoicePool(invoices)
	for _, s := range skipped {
		e.logger.Debug("invoice left out of pool", "invoice", s.InvoiceNumber, "reason", s.Reason)
	}

	out := &Outcome{
		Matched:         make([]models.MatchResult, 0, len(payments)),
		Exceptions:      make([]models.MatchResult, 0),
		SkippedInvoices: skipped,
	}
	for i := range remittances {
		if remittanceDefect(&remittances[i]) != "" {
			out.IgnoredRemittances++
		}
	}

	for i := range payments {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("run abandoned", "processed", i, "total", len(payments))
			return out, err
		}

		result := e.matchPayment(i, &payments[i], remittances, pool)
		if result.IsPosted() {
			out.Matched = append(out.Matched, result)
		} else {
			out.Exceptions = append(out.Exceptions, result)
		}
	}

	e.logger.Info("run complete",
		"payments", len(payments),
		"matched", len(out.Matched),
		"exceptions", len(out.Exceptions),
		"invoices_in_pool", len(invoices)-len(skipped),
		"invoices_left", pool.Len(),
	)
	return out, nil
}

// matchPayment drives one payment through
// START -> TRY_REFERENCE -> (MATCHED | TRY_FUZZY) -> (MATCHED | UNMATCHED).
func (e *Engine) matchPayment(pos int, p *models.Payment, remittances []models.Remittance, pool *InvoicePool) models.MatchResult {
	if reason := paymentDefect(p); reason != "" {
		e.logger.Warn("malformed payment", "payment_ref", p.ReferenceNo, "reason", reason)
		return e.exception(pos, p, nil, reason)
	}

	if c, ok := matchByReference(p, remittances, pool, e.cfg); ok && pool.Claim(c.invoice.InvoiceNumber) {
		return e.posted(pos, p, c, stageReference)
	}

	best, accepted := matchByFuzzy(p, pool, e.cfg)
	if accepted && pool.Claim(best.invoice.InvoiceNumber) {
		return e.posted(pos, p, best, stageFuzzy)
	}

	reason := "no open invoices"
	if best != nil {
		reason = "best candidate below fuzzy accept threshold"
	}
	return e.exception(pos, p, best, reason)
}

type matchDetails struct {
	Stage           string   `json:"stage"`
	Evidence        Evidence `json:"evidence"`
	CombinedScore   float64  `json:"combined_score"`
	Invoice         string   `json:"invoice,omitempty"`
	RemittanceID    string   `json:"remittance_id,omitempty"`
	RemittanceRef   string   `json:"remittance_invoice_reference,omitempty"`
	AcceptThreshold float64  `json:"accept_threshold,omitempty"`
	Reason          string   `json:"reason,omitempty"`
}

func (e *Engine) posted(pos int, p *models.Payment, c *candidate, stage string) models.MatchResult {
	matchType, confidence := Classify(c.evidence, e.cfg)

	details := matchDetails{
		Stage:         stage,
		Evidence:      c.evidence,
		CombinedScore: c.score,
		Invoice:       c.invoice.InvoiceNumber,
	}
	r := models.MatchResult{
		Position:         pos,
		PaymentRef:       p.ReferenceNo,
		PayerName:        p.PayerName,
		MatchedInvoice:   c.invoice.InvoiceNumber,
		MatchType:        matchType,
		Confidence:       confidence,
		PostingStatus:    models.PostingStatusPosted,
		Currency:         p.Currency,
		BankAmount:       p.Amount,
		InvoiceAmount:    decimal.NewNullDecimal(c.invoice.Amount),
		AmountDifference: decimal.NewNullDecimal(p.Amount.Sub(c.invoice.Amount)),
		NameSimilarity:   c.evidence.NameSimilarity,
		AmountSimilarity: c.evidence.AmountSimilarity,
		CurrencyMatch:    c.evidence.CurrencyMatch,
	}
	if c.remittance != nil {
		r.RemittanceID = c.remittance.RemittanceID
		details.RemittanceID = c.remittance.RemittanceID
		details.RemittanceRef = c.remittance.InvoiceReference
	}
	r.Details = mustJSON(details)

	e.logger.Debug("payment matched",
		"payment_ref", p.ReferenceNo,
		"invoice", r.MatchedInvoice,
		"match_type", r.MatchType,
		"confidence", r.Confidence,
	)
	return r
}

func (e *Engine) exception(pos int, p *models.Payment, best *candidate, reason string) models.MatchResult {
	r := models.MatchResult{
		Position:      pos,
		PaymentRef:    p.ReferenceNo,
		PayerName:     p.PayerName,
		MatchType:     models.MatchTypeUnmatched,
		PostingStatus: models.PostingStatusException,
		Currency:      p.Currency,
		BankAmount:    p.Amount,
		CurrencyMatch: true,
		Reason:        reason,
	}
	details := matchDetails{Stage: stageRejected, Reason: reason}
	if best != nil {
		r.BestScore = best.score
		r.NameSimilarity = best.evidence.NameSimilarity
		r.AmountSimilarity = best.evidence.AmountSimilarity
		r.CurrencyMatch = best.evidence.CurrencyMatch
		details.Evidence = best.evidence
		details.CombinedScore = best.score
		details.Invoice = best.invoice.InvoiceNumber
		details.AcceptThreshold = e.cfg.FuzzyAcceptThreshold
	}
	r.Details = mustJSON(details)

	e.logger.Debug("payment routed to exceptions", "payment_ref", p.ReferenceNo, "reason", reason, "best_score", r.BestScore)
	return r
}

func paymentDefect(p *models.Payment) string {
	switch {
	case strings.TrimSpace(p.PayerName) == "":
		return "missing payer name"
	case p.Amount.IsZero():
		return "missing amount"
	}
	return ""
}

// mustJSON marshals match details. The input types contain only plain fields,
// so an error here is a programming mistake.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
