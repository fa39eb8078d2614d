// Package validator annotates extracted field candidates with per-kind
// validation findings. It never alters or discards a raw value: a candidate
// goes in, a ValidatedField wrapping the same candidate comes out. Absent
// values are valid-but-absent, which downstream scoring and routing treat
// differently from present-but-malformed ones.
package validator

import (
	"fmt"
	"math"

	"claimlens/internal/domain"
	"claimlens/internal/schema"
)

// Config holds the validation knobs.
type Config struct {
	// SumTolerance is the maximum absolute difference allowed between the
	// line-item amount sum and the total_amount field before a sum_mismatch
	// warning is attached.
	SumTolerance float64
	// DateFormats are the layouts tried when checking date fields. Empty
	// uses the built-in list.
	DateFormats []string
}

// Engine runs the per-kind checks for one document's candidates.
type Engine struct {
	cfg Config
}

// New creates a validation engine, applying defaults for unset knobs.
func New(cfg Config) *Engine {
	if cfg.SumTolerance <= 0 {
		cfg.SumTolerance = 0.01
	}
	if len(cfg.DateFormats) == 0 {
		cfg.DateFormats = defaultDateFormats
	}
	return &Engine{cfg: cfg}
}

// Validate annotates every candidate and line item against the schema's
// field definitions. Field order in the output follows the input order.
func (e *Engine) Validate(sch *schema.DocumentTypeSchema, fields []domain.FieldCandidate, items []domain.LineItem) ([]domain.ValidatedField, []domain.ValidatedLineItem) {
	vfields := make([]domain.ValidatedField, 0, len(fields))
	for _, cand := range fields {
		violations := e.checkField(sch, cand)
		vfields = append(vfields, domain.ValidatedField{
			FieldCandidate: cand,
			Valid:          !hasError(violations),
			Violations:     violations,
		})
	}

	vitems := make([]domain.ValidatedLineItem, 0, len(items))
	for i, item := range items {
		vitems = append(vitems, domain.ValidatedLineItem{
			LineItem:   item,
			Violations: checkLineItem(i, item),
		})
	}

	e.sumCheck(vfields, items)
	return vfields, vitems
}

// checkField dispatches on the field definition's kind. Absent candidates
// pass with no findings.
func (e *Engine) checkField(sch *schema.DocumentTypeSchema, cand domain.FieldCandidate) []domain.Violation {
	if cand.Absent() {
		return nil
	}
	def, ok := sch.Field(cand.Name)
	if !ok {
		return nil
	}
	value := *cand.Value

	switch def.Kind {
	case domain.FieldKindDate:
		return e.dateCheck(def.Name, value)
	case domain.FieldKindAmount:
		return amountCheck(def.Name, value)
	case domain.FieldKindIdentifier:
		return identifierCheck(def, value)
	default:
		return nil
	}
}

// sumCheck compares the line-item amount sum against the total_amount field
// and attaches a warning-severity finding on mismatch. Warnings never flip
// the field's Valid flag.
func (e *Engine) sumCheck(vfields []domain.ValidatedField, items []domain.LineItem) {
	total := findField(vfields, "total_amount")
	if total == nil || total.Absent() {
		return
	}
	want, err := parseAmount(*total.Value)
	if err != nil {
		return
	}

	var sum float64
	counted := 0
	for _, item := range items {
		if item.Amount == nil {
			continue
		}
		sum += *item.Amount
		counted++
	}
	if counted == 0 {
		return
	}

	if math.Abs(sum-want) > e.cfg.SumTolerance {
		total.Violations = append(total.Violations, domain.Violation{
			FieldPath: total.Name,
			Reason:    domain.ViolationSumMismatch,
			Severity:  domain.SeverityWarning,
			Message:   fmt.Sprintf("line items sum to %.2f but total_amount is %.2f", sum, want),
		})
	}
}

func findField(vfields []domain.ValidatedField, name string) *domain.ValidatedField {
	for i := range vfields {
		if vfields[i].Name == name {
			return &vfields[i]
		}
	}
	return nil
}

func hasError(violations []domain.Violation) bool {
	for _, v := range violations {
		if v.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}
