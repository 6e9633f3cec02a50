// Package config loads the core's own operational tunables: the knobs named
// in spec.md §6 ("Configuration (enumerated options the core consumes)").
// It does not load outer application config (CSV storage paths, HTTP
// settings, auth) — those remain an external collaborator's responsibility.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default values, named the way spec.md §6 names the options.
const (
	DefaultReviewThreshold         = 88
	DefaultIngestRowLimit          = 20000
	DefaultDefaultEncodingFallback = "latin1"
	DefaultBlockPrefixLen          = 4
)

// Options holds the core's tunables plus the storage DSN it needs to reach
// its own persistence (Catalog, Registry, Registrations, Review Queue).
type Options struct {
	// review_threshold: similarity cutoff (0..100) for enqueueing duplicate
	// review pairs. Default 88.
	ReviewThreshold int

	// institution_email_suffixes: accepted institutional email domain
	// suffixes; anything else is tagged email.non_institutional.
	InstitutionEmailSuffixes []string

	// default_encoding_fallback: encoding tried on UTF-8 CSV decode failure.
	DefaultEncodingFallback string

	// ingest_row_limit: maximum rows per batch before parse.too_large.
	IngestRowLimit int

	// block_prefix_len: length of the folded-token prefix the Duplicate
	// Detector's blocking keys use. Default 4.
	BlockPrefixLen int

	// alias_table: per canonical field, folded accepted header labels.
	// Keys are canonical field names (schemafit.CanonicalField values as
	// plain strings, to avoid an import cycle); callers merge this on top
	// of schemafit.DefaultAliasTable.
	AliasTable map[string][]string

	// DatabaseURL is the Postgres DSN used by the pgx-backed stores.
	DatabaseURL string
}

// Load reads Options from the environment, applying defaults for anything
// unset. Mirrors the teacher's getEnv/getEnvInt/getEnvBool loader shape.
func Load() *Options {
	return &Options{
		ReviewThreshold:          getEnvInt("REVIEW_THRESHOLD", DefaultReviewThreshold),
		InstitutionEmailSuffixes: splitCSV(getEnv("INSTITUTION_EMAIL_SUFFIXES", "")),
		DefaultEncodingFallback:  getEnv("DEFAULT_ENCODING_FALLBACK", DefaultDefaultEncodingFallback),
		IngestRowLimit:           getEnvInt("INGEST_ROW_LIMIT", DefaultIngestRowLimit),
		BlockPrefixLen:           getEnvInt("BLOCK_PREFIX_LEN", DefaultBlockPrefixLen),
		AliasTable:               nil, // populated by schemafit.DefaultAliasTable unless overridden
		DatabaseURL:              getEnv("DATABASE_URL", ""),
	}
}

// Validate fails fast on invalid configuration, the same role as the
// teacher's ValidateConfig.
func Validate(o *Options) error {
	if o.ReviewThreshold < 0 || o.ReviewThreshold > 100 {
		return fmt.Errorf("REVIEW_THRESHOLD must be in range 0..100, got %d", o.ReviewThreshold)
	}
	if o.IngestRowLimit <= 0 {
		return fmt.Errorf("INGEST_ROW_LIMIT must be positive, got %d", o.IngestRowLimit)
	}
	if o.BlockPrefixLen <= 0 {
		return fmt.Errorf("BLOCK_PREFIX_LEN must be positive, got %d", o.BlockPrefixLen)
	}
	if o.DefaultEncodingFallback == "" {
		return fmt.Errorf("DEFAULT_ENCODING_FALLBACK must not be empty")
	}
	if o.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
