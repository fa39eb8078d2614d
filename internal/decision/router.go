// Package decision routes a scored extraction to auto-approval or human
// review. Routing is a pure function of the scored fields and the document
// confidence; it performs no I/O and consults no external state.
package decision

import (
	"claimlens/internal/domain"
	"claimlens/internal/schema"
)

// Machine-readable routing reasons.
const (
	ReasonMissingCritical = "missing_critical"
	ReasonLowConfidence   = "low_confidence"
)

// Config holds the routing policy knobs.
type Config struct {
	// ConfidenceThreshold is the minimum document confidence for
	// auto-approval.
	ConfidenceThreshold float64
}

// Router decides whether an extraction needs human review.
type Router struct {
	cfg Config
}

// New creates a router, applying defaults for unset knobs.
func New(cfg Config) *Router {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	return &Router{cfg: cfg}
}

// Outcome is the routing verdict with its supporting reasons.
type Outcome struct {
	Decision        domain.RouteDecision
	Reasons         []string
	MissingCritical []string
}

// Route applies the review policy: any critical field absent or invalid
// forces review, as does a document confidence below the threshold. A
// malformed critical value counts as missing; validation warnings do not.
func (r *Router) Route(sch *schema.DocumentTypeSchema, fields []domain.ScoredField, confidence float64) Outcome {
	out := Outcome{Decision: domain.RouteAutoApproved}

	for _, name := range sch.CriticalFields() {
		f := findScored(fields, name)
		if f == nil || f.Absent() || !f.Valid {
			out.MissingCritical = append(out.MissingCritical, name)
		}
	}
	if len(out.MissingCritical) > 0 {
		out.Decision = domain.RoutePendingReview
		out.Reasons = append(out.Reasons, ReasonMissingCritical)
	}

	if confidence < r.cfg.ConfidenceThreshold {
		out.Decision = domain.RoutePendingReview
		out.Reasons = append(out.Reasons, ReasonLowConfidence)
	}
	return out
}

func findScored(fields []domain.ScoredField, name string) *domain.ScoredField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}
