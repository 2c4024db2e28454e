package matching

import (
	"sort"
	"strings"

	"cash-posting-backend/internal/models"
)

// candidate is a scored payment/invoice pair.
type candidate struct {
	invoice    *models.Invoice
	remittance *models.Remittance
	evidence   Evidence
	score      float64
}

type rankedRemittance struct {
	remittance *models.Remittance
	score      float64
}

// matchByReference links a payment to an invoice through the invoice reference
// on a remittance from the same payer for a similar amount.
//
// Qualifying remittances are tried from the highest combined score down; the
// first whose reference resolves to an unclaimed invoice wins. The pool is not
// modified here.
func matchByReference(p *models.Payment, remittances []models.Remittance, pool *InvoicePool, cfg Config) (*candidate, bool) {
	var ranked []rankedRemittance
	for i := range remittances {
		rem := &remittances[i]
		if strings.TrimSpace(rem.InvoiceReference) == "" || remittanceDefect(rem) != "" {
			continue
		}

		nameSim := NameSimilarity(p.PayerName, rem.PayerName)
		if nameSim < cfg.NameMatchThreshold {
			continue
		}
		amountSim := AmountSimilarity(p.Amount, rem.Amount)
		if amountSim < cfg.AmountMatchThreshold {
			continue
		}

		score := cfg.penalize(cfg.combine(nameSim, amountSim), CurrencyMatch(p.Currency, rem.Currency))
		ranked = append(ranked, rankedRemittance{remittance: rem, score: score})
	}

	// Stable keeps input order among equal scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	for _, r := range ranked {
		inv, ok := pool.Lookup(r.remittance.InvoiceReference)
		if !ok {
			continue
		}
		ev := Evidence{
			NameSimilarity:   NameSimilarity(p.PayerName, inv.CustomerName),
			AmountSimilarity: AmountSimilarity(p.Amount, inv.Amount),
			CurrencyMatch:    CurrencyMatch(p.Currency, inv.Currency),
			HasReference:     true,
		}
		return &candidate{
			invoice:    inv,
			remittance: r.remittance,
			evidence:   ev,
			score:      cfg.penalize(cfg.combine(ev.NameSimilarity, ev.AmountSimilarity), ev.CurrencyMatch),
		}, true
	}
	return nil, false
}

func remittanceDefect(rem *models.Remittance) string {
	switch {
	case strings.TrimSpace(rem.PayerName) == "":
		return "missing payer name"
	case rem.Amount.IsZero():
		return "missing amount"
	}
	return ""
}
