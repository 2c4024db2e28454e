package matching

import "cash-posting-backend/internal/models"

// scoreEpsilon treats float scores this close together as tied.
const scoreEpsilon = 1e-9

// matchByFuzzy scans every unclaimed invoice and returns the best candidate by
// combined score. Ties go to the higher amount similarity, then to the invoice
// seen first. accepted is false when the best score is below
// FuzzyAcceptThreshold; the best candidate is still returned so callers can
// report how close the payment came. The pool is not modified here.
func matchByFuzzy(p *models.Payment, pool *InvoicePool, cfg Config) (best *candidate, accepted bool) {
	for _, inv := range pool.Available() {
		ev := Evidence{
			NameSimilarity:   NameSimilarity(p.PayerName, inv.CustomerName),
			AmountSimilarity: AmountSimilarity(p.Amount, inv.Amount),
			CurrencyMatch:    CurrencyMatch(p.Currency, inv.Currency),
		}
		score := cfg.penalize(cfg.combine(ev.NameSimilarity, ev.AmountSimilarity), ev.CurrencyMatch)

		if best == nil || beats(score, ev.AmountSimilarity, best) {
			best = &candidate{invoice: inv, evidence: ev, score: score}
		}
	}

	if best == nil {
		return nil, false
	}
	return best, best.score+scoreEpsilon >= cfg.FuzzyAcceptThreshold
}

func beats(score, amountSim float64, best *candidate) bool {
	if score > best.score+scoreEpsilon {
		return true
	}
	if score < best.score-scoreEpsilon {
		return false
	}
	return amountSim > best.evidence.AmountSimilarity+scoreEpsilon
}
