// Package config loads server settings from the environment.
//
// Matching thresholds come from matching.DefaultConfig, then an optional YAML
// file named by MATCHING_CONFIG, then MATCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"cash-posting-backend/internal/logging"
	"cash-posting-backend/internal/services/matching"
)

// AppConfig is the whole server configuration.
type AppConfig struct {
	Port           string
	OutputDir      string
	AllowedOrigins []string
	Logging        logging.Config
	DB             DBConfig
	Matching       matching.Config
}

// Load reads the environment. It fails when the matching config file cannot be
// read or when the resulting thresholds are invalid.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:           getEnv("PORT", "8080"),
		OutputDir:      getEnv("OUTPUT_DIR", "output"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Logging: logging.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		DB: LoadDBConfig(),
	}

	m, err := LoadMatching(os.Getenv("MATCHING_CONFIG"))
	if err != nil {
		return nil, err
	}
	cfg.Matching = m
	return cfg, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
