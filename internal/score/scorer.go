// Package score turns validated fields into confidence scores and folds
// them into one document-level figure.
package score

import (
	"math"
	"strings"

	"claimlens/internal/domain"
)

// Config holds the scoring constants.
type Config struct {
	// InvalidPenalty multiplies the extraction confidence of a field that
	// failed validation.
	InvalidPenalty float64
	// FieldWeight and LineItemWeight split the document score between
	// header fields and itemized rows. With zero line items the full
	// weight goes to fields.
	FieldWeight    float64
	LineItemWeight float64
}

// Scorer computes per-field, per-row, and document confidence scores.
type Scorer struct {
	cfg Config
}

// New creates a scorer, applying defaults for unset knobs.
func New(cfg Config) *Scorer {
	if cfg.InvalidPenalty <= 0 {
		cfg.InvalidPenalty = 0.5
	}
	if cfg.FieldWeight <= 0 {
		cfg.FieldWeight = 0.8
	}
	if cfg.LineItemWeight <= 0 {
		cfg.LineItemWeight = 0.2
	}
	return &Scorer{cfg: cfg}
}

// Score wraps every field and line item with its score and returns the
// combined document confidence, rounded to four decimals and clamped
// to [0,1].
func (s *Scorer) Score(fields []domain.ValidatedField, items []domain.ValidatedLineItem) ([]domain.ScoredField, []domain.ScoredLineItem, float64) {
	sfields := make([]domain.ScoredField, 0, len(fields))
	var fieldSum float64
	for _, f := range fields {
		sc := s.fieldScore(f)
		fieldSum += sc
		sfields = append(sfields, domain.ScoredField{ValidatedField: f, Score: sc})
	}

	sitems := make([]domain.ScoredLineItem, 0, len(items))
	var itemSum float64
	for _, it := range items {
		sc := s.itemScore(it)
		itemSum += sc
		sitems = append(sitems, domain.ScoredLineItem{ValidatedLineItem: it, Score: sc})
	}

	fieldMean := fieldSum / float64(max(len(fields), 1))

	var doc float64
	if len(items) == 0 {
		doc = fieldMean
	} else {
		itemMean := itemSum / float64(len(items))
		doc = s.cfg.FieldWeight*fieldMean + s.cfg.LineItemWeight*itemMean
	}
	return sfields, sitems, round4(clamp01(doc))
}

// fieldScore is extraction confidence times the validity multiplier:
// 1.0 valid, the configured penalty invalid, 0.0 absent.
func (s *Scorer) fieldScore(f domain.ValidatedField) float64 {
	switch {
	case f.Absent():
		return 0
	case !f.Valid:
		return clamp01(f.Confidence * s.cfg.InvalidPenalty)
	default:
		return clamp01(f.Confidence)
	}
}

// itemScore applies the field formula to each sub-field of the row
// (service, code, amount) and averages the three.
func (s *Scorer) itemScore(it domain.ValidatedLineItem) float64 {
	multipliers := []float64{
		s.subFieldMultiplier(it.Service == nil || *it.Service == "", false),
		s.subFieldMultiplier(it.Code == nil || *it.Code == "", false),
		s.subFieldMultiplier(it.Amount == nil, hasAmountViolation(it.Violations)),
	}
	var sum float64
	for _, m := range multipliers {
		sum += m
	}
	return clamp01(it.Confidence * sum / float64(len(multipliers)))
}

func (s *Scorer) subFieldMultiplier(absent, invalid bool) float64 {
	switch {
	case absent:
		return 0
	case invalid:
		return s.cfg.InvalidPenalty
	default:
		return 1
	}
}

func hasAmountViolation(violations []domain.Violation) bool {
	for _, v := range violations {
		if v.Severity == domain.SeverityError && strings.HasSuffix(v.FieldPath, ".amount") {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
