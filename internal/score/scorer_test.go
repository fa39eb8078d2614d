package score_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimlens/internal/domain"
	"claimlens/internal/score"
)

func strptr(s string) *string { return &s }

func floatptr(f float64) *float64 { return &f }

func validField(name string, conf float64) domain.ValidatedField {
	return domain.ValidatedField{
		FieldCandidate: domain.FieldCandidate{Name: name, Value: strptr("x"), Confidence: conf},
		Valid:          true,
	}
}

func invalidField(name string, conf float64) domain.ValidatedField {
	return domain.ValidatedField{
		FieldCandidate: domain.FieldCandidate{Name: name, Value: strptr("x"), Confidence: conf},
		Valid:          false,
		Violations: []domain.Violation{
			{FieldPath: name, Reason: domain.ViolationNotADate, Severity: domain.SeverityError},
		},
	}
}

func absentField(name string) domain.ValidatedField {
	return domain.ValidatedField{
		FieldCandidate: domain.FieldCandidate{Name: name},
		Valid:          true,
	}
}

func fullItem(conf float64) domain.ValidatedLineItem {
	return domain.ValidatedLineItem{
		LineItem: domain.LineItem{
			Service:    strptr("Consultation"),
			Code:       strptr("99213"),
			Amount:     floatptr(125.0),
			Confidence: conf,
		},
	}
}

func TestFieldScores(t *testing.T) {
	s := score.New(score.Config{})

	sfields, _, _ := s.Score([]domain.ValidatedField{
		validField("claim_number", 0.9),
		invalidField("date_of_service", 0.8),
		absentField("policy_number"),
	}, nil)

	require.Len(t, sfields, 3)
	assert.InDelta(t, 0.9, sfields[0].Score, 1e-9)
	assert.InDelta(t, 0.4, sfields[1].Score, 1e-9, "invalid halves the confidence")
	assert.Zero(t, sfields[2].Score)
}

func TestInvalidPenaltyConfigurable(t *testing.T) {
	s := score.New(score.Config{InvalidPenalty: 0.25})

	sfields, _, _ := s.Score([]domain.ValidatedField{invalidField("date_of_service", 0.8)}, nil)
	assert.InDelta(t, 0.2, sfields[0].Score, 1e-9)
}

func TestLineItemScores(t *testing.T) {
	s := score.New(score.Config{})

	missingCode := fullItem(0.9)
	missingCode.Code = nil

	negative := fullItem(0.6)
	negative.Amount = floatptr(-10)
	negative.Violations = []domain.Violation{{
		FieldPath: "line_items[2].amount",
		Reason:    domain.ViolationOutOfRange,
		Severity:  domain.SeverityError,
	}}

	_, sitems, _ := s.Score(nil, []domain.ValidatedLineItem{fullItem(0.9), missingCode, negative})

	require.Len(t, sitems, 3)
	assert.InDelta(t, 0.9, sitems[0].Score, 1e-9)
	assert.InDelta(t, 0.6, sitems[1].Score, 1e-9, "absent code zeroes one of three sub-fields")
	assert.InDelta(t, 0.5, sitems[2].Score, 1e-9, "penalized amount contributes 0.5 of its share")
}

func TestDocumentScoreWeightsFieldsAndItems(t *testing.T) {
	s := score.New(score.Config{})

	fields := []domain.ValidatedField{
		validField("claim_number", 0.9),
		invalidField("date_of_service", 0.8),
		absentField("policy_number"),
	}
	items := []domain.ValidatedLineItem{fullItem(0.9)}

	_, _, doc := s.Score(fields, items)

	// mean(fields) = (0.9 + 0.4 + 0) / 3, mean(items) = 0.9
	assert.InDelta(t, 0.5267, doc, 1e-9)
}

func TestDocumentScoreRedistributesWithoutItems(t *testing.T) {
	s := score.New(score.Config{})

	fields := []domain.ValidatedField{
		validField("claim_number", 0.9),
		validField("total_amount", 0.7),
	}

	_, _, doc := s.Score(fields, nil)
	assert.InDelta(t, 0.8, doc, 1e-9, "full weight goes to fields when no line items exist")
}

func TestDocumentScoreEmptyFields(t *testing.T) {
	s := score.New(score.Config{})

	_, _, doc := s.Score(nil, nil)
	assert.Zero(t, doc)
}

func TestWarningDoesNotPenalize(t *testing.T) {
	s := score.New(score.Config{})

	f := validField("total_amount", 0.9)
	f.Violations = []domain.Violation{{
		FieldPath: "total_amount",
		Reason:    domain.ViolationSumMismatch,
		Severity:  domain.SeverityWarning,
	}}

	sfields, _, _ := s.Score([]domain.ValidatedField{f}, nil)
	assert.InDelta(t, 0.9, sfields[0].Score, 1e-9)
}
