package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid matching config")

// weightTolerance absorbs float noise when checking that weights sum to 1.
const weightTolerance = 1e-6

// Config holds every threshold the engine uses. It is validated once per run.
type Config struct {
	// NameMatchThreshold is the name similarity at which two payers count as the same payer.
	NameMatchThreshold float64 `yaml:"name_match_threshold" json:"name_match_threshold"`
	// AmountMatchThreshold is the amount similarity treated as "amounts agree".
	AmountMatchThreshold float64 `yaml:"amount_match_threshold" json:"amount_match_threshold"`
	// FuzzyAcceptThreshold is the minimum combined score for a fuzzy match.
	FuzzyAcceptThreshold float64 `yaml:"fuzzy_accept_threshold" json:"fuzzy_accept_threshold"`
	// ExactSimilarityThreshold promotes a reference match to Exact.
	ExactSimilarityThreshold float64 `yaml:"exact_similarity_threshold" json:"exact_similarity_threshold"`

	NameWeight   float64 `yaml:"name_weight" json:"name_weight"`
	AmountWeight float64 `yaml:"amount_weight" json:"amount_weight"`

	// CurrencyMismatchPenalty is the fraction taken off a score when currencies differ.
	CurrencyMismatchPenalty float64 `yaml:"currency_mismatch_penalty" json:"currency_mismatch_penalty"`
	// ReferenceBoost moves reference-backed confidence this far towards 1.
	ReferenceBoost float64 `yaml:"reference_boost" json:"reference_boost"`
	MaxConfidence  float64 `yaml:"max_confidence" json:"max_confidence"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		NameMatchThreshold:       0.80,
		AmountMatchThreshold:     0.85,
		FuzzyAcceptThreshold:     0.70,
		ExactSimilarityThreshold: 0.95,
		NameWeight:               0.40,
		AmountWeight:             0.60,
		CurrencyMismatchPenalty:  0.20,
		ReferenceBoost:           0.50,
		MaxConfidence:            0.99,
	}
}

// Validate checks ranges and that the weights sum to 1.0.
func (c Config) Validate() error {
	fractions := []struct {
		name  string
		value float64
	}{
		{"name_match_threshold", c.NameMatchThreshold},
		{"amount_match_threshold", c.AmountMatchThreshold},
		{"fuzzy_accept_threshold", c.FuzzyAcceptThreshold},
		{"exact_similarity_threshold", c.ExactSimilarityThreshold},
		{"name_weight", c.NameWeight},
		{"amount_weight", c.AmountWeight},
		{"currency_mismatch_penalty", c.CurrencyMismatchPenalty},
		{"reference_boost", c.ReferenceBoost},
		{"max_confidence", c.MaxConfidence},
	}
	for _, f := range fractions {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, f.name, f.value)
		}
	}

	if sum := c.NameWeight + c.AmountWeight; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: name_weight + amount_weight must equal 1.0, got %v", ErrInvalidConfig, sum)
	}
	if c.MaxConfidence == 0 {
		return fmt.Errorf("%w: max_confidence must be greater than 0", ErrInvalidConfig)
	}
	return nil
}

// combine returns the weighted name/amount score.
func (c Config) combine(nameSim, amountSim float64) float64 {
	return clamp01(c.NameWeight*nameSim + c.AmountWeight*amountSim)
}

// penalize applies the currency mismatch penalty when currencies differ.
func (c Config) penalize(score float64, currencyMatch bool) float64 {
	if currencyMatch {
		return score
	}
	return clamp01(score * (1 - c.CurrencyMismatchPenalty))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
