package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsWhenEnvUnset(t *testing.T) {
	for _, key := range []string{"REVIEW_THRESHOLD", "INGEST_ROW_LIMIT", "BLOCK_PREFIX_LEN", "DEFAULT_ENCODING_FALLBACK", "DATABASE_URL", "INSTITUTION_EMAIL_SUFFIXES"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := Load()

	assert.Equal(t, DefaultReviewThreshold, cfg.ReviewThreshold)
	assert.Equal(t, DefaultIngestRowLimit, cfg.IngestRowLimit)
	assert.Equal(t, DefaultBlockPrefixLen, cfg.BlockPrefixLen)
	assert.Equal(t, DefaultDefaultEncodingFallback, cfg.DefaultEncodingFallback)
	assert.Empty(t, cfg.InstitutionEmailSuffixes)
}

func TestLoad_ReadsEnvOverrides(t *testing.T) {
	t.Setenv("REVIEW_THRESHOLD", "75")
	t.Setenv("BLOCK_PREFIX_LEN", "6")
	t.Setenv("INSTITUTION_EMAIL_SUFFIXES", "uni.edu, college.edu ,")

	cfg := Load()

	assert.Equal(t, 75, cfg.ReviewThreshold)
	assert.Equal(t, 6, cfg.BlockPrefixLen)
	assert.Equal(t, []string{"uni.edu", "college.edu"}, cfg.InstitutionEmailSuffixes)
}

func TestLoad_IgnoresUnparseableIntAndFallsBackToDefault(t *testing.T) {
	t.Setenv("REVIEW_THRESHOLD", "not-a-number")

	cfg := Load()

	assert.Equal(t, DefaultReviewThreshold, cfg.ReviewThreshold)
}

func validOptions() *Options {
	return &Options{
		ReviewThreshold:         DefaultReviewThreshold,
		DefaultEncodingFallback: DefaultDefaultEncodingFallback,
		IngestRowLimit:          DefaultIngestRowLimit,
		BlockPrefixLen:          DefaultBlockPrefixLen,
		DatabaseURL:             "postgres://localhost/eventregistry",
	}
}

func TestValidate_AcceptsWellFormedOptions(t *testing.T) {
	assert.NoError(t, Validate(validOptions()))
}

func TestValidate_RejectsOutOfRangeReviewThreshold(t *testing.T) {
	o := validOptions()
	o.ReviewThreshold = 101
	assert.ErrorContains(t, Validate(o), "REVIEW_THRESHOLD")
}

func TestValidate_RejectsNonPositiveIngestRowLimit(t *testing.T) {
	o := validOptions()
	o.IngestRowLimit = 0
	assert.ErrorContains(t, Validate(o), "INGEST_ROW_LIMIT")
}

func TestValidate_RejectsNonPositiveBlockPrefixLen(t *testing.T) {
	o := validOptions()
	o.BlockPrefixLen = 0
	assert.ErrorContains(t, Validate(o), "BLOCK_PREFIX_LEN")
}

func TestValidate_RejectsEmptyEncodingFallback(t *testing.T) {
	o := validOptions()
	o.DefaultEncodingFallback = ""
	assert.ErrorContains(t, Validate(o), "DEFAULT_ENCODING_FALLBACK")
}

func TestValidate_RejectsEmptyDatabaseURL(t *testing.T) {
	o := validOptions()
	o.DatabaseURL = ""
	assert.ErrorContains(t, Validate(o), "DATABASE_URL")
}
