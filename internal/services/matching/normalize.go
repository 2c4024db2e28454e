package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// entitySuffixes are trailing legal-entity tokens dropped before comparison.
var entitySuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"llp":          true,
	"lp":           true,
	"ltd":          true,
	"limited":      true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"pte":          true,
	"pty":          true,
	"plc":          true,
	"gmbh":         true,
	"ag":           true,
	"sa":           true,
	"bv":           true,
	"nv":           true,
	"group":        true,
	"holdings":     true,
}

// Normalize canonicalizes a payer or customer name for comparison.
//
// The name is NFKC-normalized and case-folded, every rune that is not a letter
// or digit becomes a separator, whitespace runs collapse to one space, and
// trailing entity suffixes ("Inc", "LLC", "Ltd.", ...) are removed for as long as
// more than one token remains. Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	folded := cases.Fold().String(norm.NFKC.String(name))

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for len(tokens) > 1 && entitySuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}
