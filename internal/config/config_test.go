package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimlens/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLife)
	assert.Equal(t, "claimlens-documents", cfg.S3.Bucket)

	assert.Equal(t, "tesseract", cfg.OCR.Tesseract)
	assert.Equal(t, "pdftoppm", cfg.OCR.Pdftoppm)
	assert.Equal(t, 220, cfg.OCR.DPI)
	assert.Equal(t, 4, cfg.OCR.PageConcurrency)

	assert.Equal(t, "openai", cfg.Extractor.Primary.Provider)
	assert.Equal(t, 1, cfg.Extractor.Primary.MaxRetries)
	assert.InDelta(t, 0.55, cfg.Extractor.FallbackConfidence, 1e-9)
	assert.InDelta(t, 0.6, cfg.Extractor.FallbackCeiling, 1e-9)
	assert.Equal(t, 20, cfg.Extractor.MaxLineItems)

	assert.InDelta(t, 0.01, cfg.Validation.SumTolerance, 1e-9)
	assert.InDelta(t, 0.5, cfg.Scoring.InvalidPenalty, 1e-9)
	assert.InDelta(t, 0.8, cfg.Scoring.FieldWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Scoring.LineItemWeight, 1e-9)
	assert.InDelta(t, 0.8, cfg.Routing.ConfidenceThreshold, 1e-9)

	assert.Empty(t, cfg.Schema.InsuranceCriticalFields)
	assert.Equal(t, "noop", cfg.Email.Provider)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLAIMLENS_ROUTING_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("CLAIMLENS_EXTRACTOR_PRIMARY_PROVIDER", "claude")
	t.Setenv("CLAIMLENS_EXTRACTOR_PRIMARY_TIMEOUT_SECS", "30")
	t.Setenv("CLAIMLENS_SCHEMA_INSURANCE_CRITICAL_FIELDS", "claim_number, policy_number")
	t.Setenv("CLAIMLENS_OCR_DPI", "300")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.9, cfg.Routing.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "claude", cfg.Extractor.Primary.Provider)
	assert.Equal(t, 30, cfg.Extractor.Primary.TimeoutSecs)
	assert.Equal(t, []string{"claim_number", "policy_number"}, cfg.Schema.InsuranceCriticalFields)
	assert.Equal(t, 300, cfg.OCR.DPI)
}

func TestExtractorConfigProviderSelection(t *testing.T) {
	cfg := config.ExtractorConfig{
		Primary: config.ExtractorProviderConfig{
			Provider: "openai",
			APIKey:   "sk-primary",
		},
	}

	primary := cfg.PrimaryConfig()
	require.NotNil(t, primary)
	assert.Equal(t, "openai", primary.Provider)
	assert.Nil(t, cfg.SecondaryConfig())

	cfg.Secondary = config.ExtractorProviderConfig{
		Provider:     "claude",
		APIKey:       "sk-secondary",
		DefaultModel: "claude-sonnet-4-20250514",
	}
	secondary := cfg.SecondaryConfig()
	require.NotNil(t, secondary)
	assert.Equal(t, "claude", secondary.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", secondary.DefaultModel)
}

func TestExtractorConfigNoProviders(t *testing.T) {
	cfg := config.ExtractorConfig{}
	assert.Nil(t, cfg.PrimaryConfig())
	assert.Nil(t, cfg.SecondaryConfig())
}

func TestDSN(t *testing.T) {
	db := config.DBConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		Name:     "claims",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://svc:pw@db.internal:5433/claims?sslmode=require", db.DSN())
}
