package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// containmentBoost is added when one name is a whole-token part of the other,
// e.g. "acme" against "acme industrial".
const containmentBoost = 0.2

// NameSimilarity returns a symmetric similarity in [0,1] between two names.
//
// Both names are normalized first. The score is the larger of a character-level
// Levenshtein ratio and a token-set Dice coefficient, plus containmentBoost when
// one name appears as whole tokens inside the other. Identical non-empty names
// score 1.0; if either name normalizes to empty the score is 0.
func NameSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	score := max(levenshteinRatio(na, nb), tokenDice(na, nb))
	if containsTokens(na, nb) || containsTokens(nb, na) {
		score += containmentBoost
	}
	return clamp01(score)
}

// AmountSimilarity returns 1 - |a-b| / max(|a|, |b|), clamped to [0,1].
// Equal amounts score 1.0, including two zero amounts.
func AmountSimilarity(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 1
	}
	denom := decimal.Max(a.Abs(), b.Abs())
	if denom.IsZero() {
		return 1
	}
	ratio := a.Sub(b).Abs().Div(denom).InexactFloat64()
	return clamp01(1 - ratio)
}

// CurrencyMatch compares ISO codes case-insensitively. A missing currency on
// either side is not treated as a mismatch.
func CurrencyMatch(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}

func levenshteinRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func tokenDice(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for tok := range setA {
		if setB[tok] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// containsTokens reports whether short occurs in long on token boundaries.
func containsTokens(long, short string) bool {
	if short == "" || len(short) >= len(long) {
		return false
	}
	return strings.Contains(" "+long+" ", " "+short+" ")
}
