package matching

import "cash-posting-backend/internal/models"

// Evidence is what the matchers know about a payment/invoice pair.
type Evidence struct {
	NameSimilarity   float64 `json:"name_similarity"`
	AmountSimilarity float64 `json:"amount_similarity"`
	CurrencyMatch    bool    `json:"currency_match"`
	HasReference     bool    `json:"has_reference"`
}

// Classify maps evidence to a match type and a confidence in [0,1].
//
// It is a pure function of its arguments. Reference-backed evidence is Exact when
// both similarities reach ExactSimilarityThreshold and Reference otherwise; its
// confidence is lifted towards 1 by ReferenceBoost. Other evidence is classified
// Fuzzy-Name, Fuzzy-Amount or Contextual and its confidence is the combined score.
// A currency mismatch applies CurrencyMismatchPenalty, and the result never
// exceeds MaxConfidence.
func Classify(ev Evidence, cfg Config) (models.MatchType, float64) {
	base := cfg.combine(ev.NameSimilarity, ev.AmountSimilarity)

	var matchType models.MatchType
	confidence := base
	if ev.HasReference {
		matchType = models.MatchTypeReference
		if ev.NameSimilarity >= cfg.ExactSimilarityThreshold && ev.AmountSimilarity >= cfg.ExactSimilarityThreshold {
			matchType = models.MatchTypeExact
		}
		confidence = base + (1-base)*cfg.ReferenceBoost
	} else {
		matchType = fuzzyType(ev, cfg)
	}

	confidence = cfg.penalize(confidence, ev.CurrencyMatch)
	return matchType, clamp01(min(confidence, cfg.MaxConfidence))
}

func fuzzyType(ev Evidence, cfg Config) models.MatchType {
	switch {
	case ev.NameSimilarity >= cfg.NameMatchThreshold && ev.AmountSimilarity >= cfg.AmountMatchThreshold:
		return models.MatchTypeFuzzyName
	case ev.AmountSimilarity >= cfg.AmountMatchThreshold:
		return models.MatchTypeFuzzyAmount
	default:
		return models.MatchTypeContextual
	}
}
