package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cash-posting-backend/internal/services/matching"
)

// LoadMatching returns the default thresholds overlaid with the YAML file at
// path (skipped when path is empty) and then MATCH_* variables.
// The result is validated.
func LoadMatching(path string) (matching.Config, error) {
	cfg := matching.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read matching config: %w", err)
		}
		// Expand environment variables (e.g., ${NAME_WEIGHT})
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, fmt.Errorf("parse matching config %s: %w", path, err)
		}
	}

	overrides := []struct {
		key string
		dst *float64
	}{
		{"MATCH_NAME_THRESHOLD", &cfg.NameMatchThreshold},
		{"MATCH_AMOUNT_THRESHOLD", &cfg.AmountMatchThreshold},
		{"MATCH_ACCEPT_THRESHOLD", &cfg.FuzzyAcceptThreshold},
		{"MATCH_EXACT_THRESHOLD", &cfg.ExactSimilarityThreshold},
		{"MATCH_NAME_WEIGHT", &cfg.NameWeight},
		{"MATCH_AMOUNT_WEIGHT", &cfg.AmountWeight},
		{"MATCH_CURRENCY_PENALTY", &cfg.CurrencyMismatchPenalty},
		{"MATCH_REFERENCE_BOOST", &cfg.ReferenceBoost},
		{"MATCH_MAX_CONFIDENCE", &cfg.MaxConfidence},
	}
	for _, o := range overrides {
		v, err := getEnvFloat(o.key, *o.dst)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", matching.ErrInvalidConfig, err)
		}
		*o.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
